// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package transport defines the wire shapes of the HTTP and streaming
// surfaces. The web layer itself lives outside this module; these types make
// the engine's contract complete and testable without a live server.
package transport

import (
	validator "github.com/AccelByte/justice-input-validation-go"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/models"
)

// HTTP route templates consumed by the thin web layer.
const (
	RoutePartyCreate  = "/v1/party"
	RoutePartyGet     = "/v1/party/{id}"
	RoutePartyJoin    = "/v1/party/{id}/join"
	RoutePartyLeave   = "/v1/party/{id}/leave"
	RoutePartyReady   = "/v1/party/{id}/ready"
	RoutePartyQueue   = "/v1/party/{id}/queue"
	RoutePartyUnqueue = "/v1/party/{id}/unqueue"

	RouteSessionGet       = "/v1/session/{match_id}"
	RouteSessionHeartbeat = "/v1/session/{match_id}/heartbeat"
	RouteSessionResult    = "/v1/session/{match_id}/result"

	RoutePartyStream = "/v1/ws/party/{party_id}"
)

// CreatePartyRequest is the body of POST /v1/party.
type CreatePartyRequest struct {
	Region  string `json:"region"   valid:"required"`
	MaxSize int    `json:"max_size" valid:"range(1|64)"`
}

func (r CreatePartyRequest) Validate() error {
	_, err := validator.ValidateStruct(r)
	return err
}

// QueueRequest is the body of POST /v1/party/{id}/queue.
type QueueRequest struct {
	Mode     string `json:"mode"      valid:"required"`
	TeamSize int    `json:"team_size" valid:"range(1|64)"`
}

func (r QueueRequest) Validate() error {
	_, err := validator.ValidateStruct(r)
	return err
}

// ReadyRequest is the body of POST /v1/party/{id}/ready.
type ReadyRequest struct {
	Ready bool `json:"ready"`
}

// Frame is one JSON frame on the party stream. Data carries the event payload
// and Seq the party-scoped sequence number assigned by the event bus.
type Frame struct {
	Event models.EventType `json:"event"`
	Data  interface{}      `json:"data,omitempty"`
	Seq   int64            `json:"seq"`
}

// ClientMessage is what a connected client may send upstream.
type ClientMessage struct {
	Type string `json:"type"`
}

const ClientMessagePing = "ping"

// FrameFromEvent converts a bus event into its wire frame.
func FrameFromEvent(event models.Event) Frame {
	return Frame{Event: event.Event, Data: event.Data, Seq: event.Seq}
}

// ErrorFrame builds the error frame sent before closing a misbehaving stream.
func ErrorFrame(message string) Frame {
	return Frame{Event: models.EventError, Data: map[string]string{"message": message}}
}
