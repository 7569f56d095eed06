// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package adapters holds the thin interfaces to the platform's external
// collaborators: the identity verifier, the durable party snapshot store and
// the cross-instance message broker. Each has a production implementation and
// an in-memory test double. Adapter I/O is retried with exponential backoff
// and surfaces transport only after exhaustion.
package adapters

import (
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/models"
)

// IdentityVerifier validates a bearer credential and yields the player it
// belongs to. Used on channel attach and on privileged broker messages.
type IdentityVerifier interface {
	Verify(scope *envelope.Scope, credential string) (playerID string, err error)
}

// SnapshotStore durably records party state so reconnecting clients obtain the
// authoritative view. The state machine writes on every transition.
type SnapshotStore interface {
	Get(scope *envelope.Scope, partyID string) (*models.Party, error)
	Put(scope *envelope.Scope, party *models.Party) error
	Delete(scope *envelope.Scope, partyID string) error
}

// BrokerHandler consumes one gossiped event. The payload is the canonical
// JSON of a QueueEntry or Match.
type BrokerHandler func(subject string, payload []byte)

// Broker gossips enqueues and match-found events across engine instances.
type Broker interface {
	Publish(scope *envelope.Scope, subject string, payload interface{}) error
	Subscribe(scope *envelope.Scope, subjectPattern string, handler BrokerHandler) (unsubscribe func(), err error)
}
