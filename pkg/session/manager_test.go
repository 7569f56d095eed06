// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package session

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/adapters"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/apierror"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/config"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/eventbus"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/models"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/testsetup"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/transport"
)

// fakeConn is an in-memory stand-in for a websocket connection. Writes can be
// gated to simulate a slow client.
type fakeConn struct {
	mu        sync.Mutex
	written   []transport.Frame
	inbound   chan transport.ClientMessage
	writeGate chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan transport.ClientMessage, 8)}
}

func (f *fakeConn) ReadJSON(v interface{}) error {
	msg, ok := <-f.inbound
	if !ok {
		return io.EOF
	}
	*(v.(*transport.ClientMessage)) = msg
	return nil
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	if f.writeGate != nil {
		<-f.writeGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, v.(transport.Frame))
	return nil
}

func (f *fakeConn) SetReadDeadline(t time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.inbound) })
	return nil
}

func (f *fakeConn) frames() []transport.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	frames := make([]transport.Frame, len(f.written))
	copy(frames, f.written)
	return frames
}

type fakePartyProvider struct {
	party *models.Party
}

func (f *fakePartyProvider) Get(scope *envelope.Scope, partyID string) (*models.Party, error) {
	if f.party == nil || f.party.PartyID != partyID {
		return nil, apierror.Wrap(apierror.ErrNotFound, "party %s is unknown", partyID)
	}
	return f.party, nil
}

func setup(cfg *config.Config) (*Manager, *eventbus.Bus) {
	bus := eventbus.New(cfg.SubscriptionBufferSize)
	identity := &adapters.MockIdentityVerifier{Credentials: map[string]string{
		"token-alice": "alice",
		"token-bob":   "bob",
		"token-eve":   "eve",
	}}
	provider := &fakePartyProvider{party: &models.Party{
		PartyID:  "party-a",
		LeaderID: "alice",
		Region:   "us-west",
		MaxSize:  5,
		Members: []models.PartyMember{
			{UserID: "alice", MMR: 1500},
			{UserID: "bob", MMR: 1520},
		},
		Status: models.PartyStatusIdle,
	}}
	return NewManager(cfg, bus, identity, provider, testsetup.NewMetrics()), bus
}

func TestAttachRejectsBadCredential(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	manager, _ := setup(config.Default())

	_, err := manager.Attach(g.TestScope, newFakeConn(), "party-a", "token-bogus")
	g.Expect(errors.Is(err, apierror.ErrUnauthenticated)).To(BeTrue())
}

func TestAttachRejectsNonMember(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	manager, _ := setup(config.Default())

	_, err := manager.Attach(g.TestScope, newFakeConn(), "party-a", "token-eve")
	g.Expect(errors.Is(err, apierror.ErrForbidden)).To(BeTrue())
}

func TestAttachSendsConnectedFrameFirst(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	manager, _ := setup(config.Default())

	conn := newFakeConn()
	client, err := manager.Attach(g.TestScope, conn, "party-a", "token-alice")
	g.Expect(err).ToNot(HaveOccurred())
	defer manager.Detach(g.TestScope, client, "test_done")

	g.Eventually(func() int { return len(conn.frames()) }).Should(BeNumerically(">=", 1))
	g.Expect(conn.frames()[0].Event).To(Equal(models.EventConnected))
	g.Expect(manager.ChannelCount()).To(Equal(1))
}

func TestBusEventsFanOutToEverySubscriber(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	manager, bus := setup(config.Default())

	connAlice := newFakeConn()
	clientAlice, err := manager.Attach(g.TestScope, connAlice, "party-a", "token-alice")
	g.Expect(err).ToNot(HaveOccurred())
	defer manager.Detach(g.TestScope, clientAlice, "test_done")

	connBob := newFakeConn()
	clientBob, err := manager.Attach(g.TestScope, connBob, "party-a", "token-bob")
	g.Expect(err).ToNot(HaveOccurred())
	defer manager.Detach(g.TestScope, clientBob, "test_done")

	bus.Publish(g.TestScope, "party-a", models.Event{Event: models.EventQueueEntered})

	for _, conn := range []*fakeConn{connAlice, connBob} {
		g.Eventually(func() bool {
			for _, frame := range conn.frames() {
				if frame.Event == models.EventQueueEntered && frame.Seq == 1 {
					return true
				}
			}
			return false
		}).Should(BeTrue())
	}
}

func TestPingIsAnsweredWithPong(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	manager, _ := setup(config.Default())

	conn := newFakeConn()
	client, err := manager.Attach(g.TestScope, conn, "party-a", "token-alice")
	g.Expect(err).ToNot(HaveOccurred())

	go manager.Serve(g.TestScope, client)

	conn.inbound <- transport.ClientMessage{Type: transport.ClientMessagePing}

	g.Eventually(func() bool {
		for _, frame := range conn.frames() {
			if frame.Event == models.EventPong {
				return true
			}
		}
		return false
	}).Should(BeTrue())

	manager.Detach(g.TestScope, client, "test_done")
}

func TestSlowestSubscriberIsDroppedOnOverflow(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)

	cfg := config.Default()
	cfg.OutboundQueueSize = 1
	manager, bus := setup(cfg)

	conn := newFakeConn()
	conn.writeGate = make(chan struct{})

	client, err := manager.Attach(g.TestScope, conn, "party-a", "token-alice")
	g.Expect(err).ToNot(HaveOccurred())

	// The writer is stuck on the connected frame; one event fills the queue,
	// the next overflows it.
	bus.Publish(g.TestScope, "party-a", models.Event{Event: models.EventQueueEntered})
	bus.Publish(g.TestScope, "party-a", models.Event{Event: models.EventPartyUpdated})

	g.Eventually(func() string { return client.CloseReason() }).Should(Equal("backpressure"))
	close(conn.writeGate)
}

func TestSessionEndedDestroysTheChannel(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	manager, bus := setup(config.Default())

	conn := newFakeConn()
	client, err := manager.Attach(g.TestScope, conn, "party-a", "token-alice")
	g.Expect(err).ToNot(HaveOccurred())

	bus.Publish(g.TestScope, "party-a", models.Event{Event: models.EventSessionEnded})

	g.Eventually(func() string { return client.CloseReason() }).Should(Equal("party_ended"))
	g.Eventually(func() int { return manager.ChannelCount() }).Should(Equal(0))
}

func TestReattachWithinGraceKeepsTheChannel(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)

	cfg := config.Default()
	cfg.ChannelGraceSecond = 1
	manager, bus := setup(cfg)

	first := newFakeConn()
	client, err := manager.Attach(g.TestScope, first, "party-a", "token-alice")
	g.Expect(err).ToNot(HaveOccurred())

	manager.Detach(g.TestScope, client, "test_done")
	g.Expect(manager.ChannelCount()).To(Equal(1))

	second := newFakeConn()
	reattached, err := manager.Attach(g.TestScope, second, "party-a", "token-alice")
	g.Expect(err).ToNot(HaveOccurred())
	defer manager.Detach(g.TestScope, reattached, "test_done")

	// The grace timer was cancelled by the reattach; the channel survives and
	// keeps its sequence stream.
	g.Consistently(func() int { return manager.ChannelCount() }, "1500ms").Should(Equal(1))

	bus.Publish(g.TestScope, "party-a", models.Event{Event: models.EventQueueEntered})
	g.Eventually(func() int { return len(second.frames()) }).Should(BeNumerically(">=", 2))
}

func TestChannelIsDestroyedAfterGraceExpires(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)

	cfg := config.Default()
	cfg.ChannelGraceSecond = 1
	manager, _ := setup(cfg)

	conn := newFakeConn()
	client, err := manager.Attach(g.TestScope, conn, "party-a", "token-alice")
	g.Expect(err).ToNot(HaveOccurred())

	manager.Detach(g.TestScope, client, "test_done")

	g.Eventually(func() int { return manager.ChannelCount() }, "3s").Should(Equal(0))
}
