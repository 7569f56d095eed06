// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package session maintains the long-lived bidirectional client connections,
// binds each to a party and fans bus events out to every subscriber. Fan-out
// is lossy under backpressure; party state stays eventually consistent through
// the authoritative snapshot endpoint.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/adapters"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/apierror"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/config"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/eventbus"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/metrics"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/models"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/transport"
)

// PartyProvider looks parties up for the membership check on attach. The party
// state machine implements it.
type PartyProvider interface {
	Get(scope *envelope.Scope, partyID string) (*models.Party, error)
}

// Manager owns the session channels.
type Manager struct {
	cfg      *config.Config
	bus      *eventbus.Bus
	identity adapters.IdentityVerifier
	parties  PartyProvider
	metrics  metrics.MatchmakingMetrics

	mu       sync.Mutex
	channels map[string]*channel
}

func NewManager(cfg *config.Config, bus *eventbus.Bus, identity adapters.IdentityVerifier,
	parties PartyProvider, m metrics.MatchmakingMetrics,
) *Manager {
	return &Manager{
		cfg:      cfg,
		bus:      bus,
		identity: identity,
		parties:  parties,
		metrics:  m,
		channels: make(map[string]*channel),
	}
}

// Attach validates the credential, checks the authenticated player is a member
// of the party, then registers the connection as a subscriber of the party's
// channel. The first frame the client receives is `connected`.
func (m *Manager) Attach(scope *envelope.Scope, conn Conn, partyID string, credential string) (*Client, error) {
	playerID, err := m.identity.Verify(scope, credential)
	if err != nil {
		return nil, err
	}

	party, err := m.parties.Get(scope, partyID)
	if err != nil {
		return nil, err
	}
	if !party.IsMember(playerID) {
		return nil, apierror.Wrap(apierror.ErrForbidden, "player %s is not a member of party %s", playerID, partyID)
	}

	client := &Client{
		PlayerID: playerID,
		PartyID:  partyID,
		conn:     conn,
		outbound: make(chan transport.Frame, m.cfg.OutboundQueueSize),
		done:     make(chan struct{}),
	}

	go client.writePump()
	client.enqueue(transport.Frame{Event: models.EventConnected, Data: models.MemberData{UserID: playerID}})

	ch := m.channelFor(partyID)
	ch.addClient(client)

	scope.WithParty(partyID).Log.Infof("player %s attached to party stream", playerID)

	return client, nil
}

// Detach removes the subscriber. The last detach arms the destruction grace
// timer instead of tearing the channel down immediately, so a quick reconnect
// keeps its sequence stream.
func (m *Manager) Detach(scope *envelope.Scope, client *Client, reason string) {
	client.close(reason)

	m.mu.Lock()
	ch, ok := m.channels[client.PartyID]
	m.mu.Unlock()
	if !ok {
		return
	}

	if ch.removeClient(client) {
		m.scheduleDestroy(scope, ch)
	}

	scope.WithParty(client.PartyID).Log.
		Infof("player %s detached from party stream (%s)", client.PlayerID, reason)
}

// SendToParty enqueues the event into every attached client's outbound queue.
// A client whose queue overflows is dropped with reason backpressure.
func (m *Manager) SendToParty(scope *envelope.Scope, partyID string, event models.Event) {
	m.mu.Lock()
	ch, ok := m.channels[partyID]
	m.mu.Unlock()
	if !ok {
		return
	}

	for _, slow := range ch.fanOut(transport.FrameFromEvent(event)) {
		m.metrics.AddChannelDropped(constants.CloseReasonBackpressure)
		scope.WithParty(partyID).Log.
			Warnf("dropping slowest subscriber %s: outbound queue full", slow.PlayerID)
		m.Detach(scope, slow, constants.CloseReasonBackpressure)
	}
}

// Serve pumps inbound frames until the connection dies or goes idle. Clients
// must ping at least every ping interval; the deadline enforces it.
func (m *Manager) Serve(scope *envelope.Scope, client *Client) {
	defer m.Detach(scope, client, constants.CloseReasonIdle)

	for {
		_ = client.conn.SetReadDeadline(time.Now().Add(m.cfg.PingInterval() + m.cfg.PingInterval()/2))

		var msg transport.ClientMessage
		if err := client.conn.ReadJSON(&msg); err != nil {
			return
		}

		if msg.Type == transport.ClientMessagePing {
			client.enqueue(transport.Frame{Event: models.EventPong})
		}
	}
}

// channelFor returns the party's channel, creating it and its bus subscription
// on first attach.
func (m *Manager) channelFor(partyID string) *channel {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, ok := m.channels[partyID]; ok {
		return ch
	}

	ch := &channel{
		partyID: partyID,
		clients: make(map[*Client]struct{}),
		sub:     m.bus.Subscribe(partyID),
	}
	m.channels[partyID] = ch

	go m.pump(ch)

	return ch
}

// pump forwards bus events into the channel's fan-out until the subscription
// closes. A session_ended event destroys the channel after delivery.
func (m *Manager) pump(ch *channel) {
	scope := envelope.NewRootScope(context.Background(), "Session.Pump", "")
	defer scope.Finish()

	for event := range ch.sub.C {
		m.SendToParty(scope, ch.partyID, event)

		if event.Event == models.EventSessionEnded {
			m.destroy(scope, ch, constants.CloseReasonPartyEnded)
			return
		}
	}
}

// scheduleDestroy arms the grace timer; destruction is skipped if a subscriber
// attaches before it fires.
func (m *Manager) scheduleDestroy(scope *envelope.Scope, ch *channel) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.graceTimer != nil {
		ch.graceTimer.Stop()
	}
	ch.graceTimer = time.AfterFunc(m.cfg.ChannelGrace(), func() {
		if ch.isEmpty() {
			m.destroy(scope, ch, constants.CloseReasonIdle)
		}
	})
}

// destroy closes every remaining client, unsubscribes from the bus and drops
// the channel.
func (m *Manager) destroy(scope *envelope.Scope, ch *channel, reason string) {
	m.mu.Lock()
	current, ok := m.channels[ch.partyID]
	if !ok || current != ch {
		m.mu.Unlock()
		return
	}
	delete(m.channels, ch.partyID)
	m.mu.Unlock()

	for _, client := range ch.allClients() {
		client.close(reason)
	}
	m.bus.Unsubscribe(ch.sub)

	scope.WithParty(ch.partyID).Log.Infof("session channel destroyed (%s)", reason)
}

// ChannelCount returns the number of live channels, for telemetry.
func (m *Manager) ChannelCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels)
}
