// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of the websocket connection the channel manager needs.
// *websocket.Conn satisfies it; tests substitute an in-memory pipe.
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	SetReadDeadline(t time.Time) error
	Close() error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Cross-origin policy is enforced by the edge in front of this service.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Upgrade hijacks an HTTP request into a websocket connection for the party
// stream endpoint.
func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}
