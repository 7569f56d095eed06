// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package eventbus is the process-internal publish/subscribe plane, keyed by
// party identifier. Delivery to local subscribers is best-effort in publication
// order; a subscriber that cannot keep up has events dropped rather than
// blocking the publisher. An optional external publisher forwards every event
// to a broker so other instances sharing the party observe them too.
package eventbus

import (
	"sync"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/models"
)

// ExternalPublisher forwards events beyond process boundaries. Failures are
// logged and never propagate to the publishing transition.
type ExternalPublisher interface {
	PublishEvent(scope *envelope.Scope, event models.Event) error
}

// Subscription is one bounded party-keyed event stream. Events arrive on C in
// publication order carrying monotonic per-party sequence numbers.
type Subscription struct {
	C       chan models.Event
	partyID string
	closed  bool
}

// PartyID returns the party this subscription observes.
func (s *Subscription) PartyID() string {
	return s.partyID
}

// Bus fans events out to party subscribers.
type Bus struct {
	mu       sync.RWMutex
	subs     map[string]map[*Subscription]struct{}
	seqs     map[string]int64
	buffer   int
	external ExternalPublisher
}

func New(buffer int) *Bus {
	return &Bus{
		subs:   make(map[string]map[*Subscription]struct{}),
		seqs:   make(map[string]int64),
		buffer: buffer,
	}
}

// SetExternalPublisher plugs a broker-facing publisher into the bus. Pass nil
// to run single-instance.
func (b *Bus) SetExternalPublisher(publisher ExternalPublisher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.external = publisher
}

// Publish assigns the event's sequence number and delivers it to every local
// subscriber of the party. A full subscriber channel drops the event with a
// warning instead of blocking the publisher.
func (b *Bus) Publish(scope *envelope.Scope, partyID string, event models.Event) {
	b.mu.Lock()
	b.seqs[partyID]++
	event.PartyID = partyID
	event.Seq = b.seqs[partyID]
	external := b.external

	// Delivery happens under the lock so an Unsubscribe cannot close a
	// channel mid-send. Sends never block, so the critical section stays short.
	for sub := range b.subs[partyID] {
		select {
		case sub.C <- event:
		default:
			scope.WithParty(partyID).Log.
				Warnf("event bus subscriber full, dropping %s (buffer %d)", event.Event, b.buffer)
		}
	}
	b.mu.Unlock()

	if external != nil {
		if err := external.PublishEvent(scope, event); err != nil {
			scope.WithParty(partyID).Log.
				Warnf("external publish of %s failed: %v", event.Event, err)
		}
	}
}

// Subscribe registers a new bounded subscription for the party.
func (b *Bus) Subscribe(partyID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		C:       make(chan models.Event, b.buffer),
		partyID: partyID,
	}
	if b.subs[partyID] == nil {
		b.subs[partyID] = make(map[*Subscription]struct{})
	}
	b.subs[partyID][sub] = struct{}{}

	return sub
}

// Unsubscribe removes the subscription and closes its channel. Idempotent.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub == nil || sub.closed {
		return
	}

	if subs, ok := b.subs[sub.partyID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sub.partyID)
		}
	}
	sub.closed = true
	close(sub.C)
}

// SubscriberCount returns how many local subscriptions the party has.
func (b *Bus) SubscriberCount(partyID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[partyID])
}

// Seq returns the last sequence number assigned for the party.
func (b *Bus) Seq(partyID string) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seqs[partyID]
}
