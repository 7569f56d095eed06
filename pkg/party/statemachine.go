// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package party tracks the lifecycle of parties as they move between idle,
// queueing, matched and ended. Every state transition publishes exactly one
// event onto the event bus under the party's identifier and writes a snapshot
// to the durable store so reconnecting clients obtain the authoritative view.
package party

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/adapters"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/apierror"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/eventbus"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/models"
)

// QueueController is the engine-facing side of queue transitions. The tick
// worker serialises the actual store mutations.
type QueueController interface {
	Enqueue(scope *envelope.Scope, entry models.QueueEntry) error
	Dequeue(scope *envelope.Scope, partyID string) error
}

// StateMachine owns the party records. Queue transitions are forwarded to the
// QueueController; membership mutations are only accepted while idle.
type StateMachine struct {
	mu            sync.Mutex
	parties       map[string]*models.Party
	playerToParty map[string]string

	bus       *eventbus.Bus
	queue     QueueController
	snapshots adapters.SnapshotStore

	now func() time.Time
}

func NewStateMachine(bus *eventbus.Bus, queue QueueController, snapshots adapters.SnapshotStore) *StateMachine {
	return &StateMachine{
		parties:       make(map[string]*models.Party),
		playerToParty: make(map[string]string),
		bus:           bus,
		queue:         queue,
		snapshots:     snapshots,
		now:           time.Now,
	}
}

// CreateParty registers a new idle party led by the given member.
func (sm *StateMachine) CreateParty(scope *envelope.Scope, leader models.PartyMember, region string, maxSize int) (*models.Party, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.playerToParty[leader.UserID]; ok {
		return nil, apierror.Wrap(apierror.ErrConflict, "player %s already belongs to a party", leader.UserID)
	}

	party := &models.Party{
		PartyID:   uuid.NewString(),
		LeaderID:  leader.UserID,
		Region:    region,
		MaxSize:   maxSize,
		Members:   []models.PartyMember{leader},
		Status:    models.PartyStatusIdle,
		CreatedAt: sm.now(),
	}

	sm.parties[party.PartyID] = party
	sm.playerToParty[leader.UserID] = party.PartyID

	sm.persistSnapshot(scope, party)
	sm.bus.Publish(scope, party.PartyID, models.Event{
		Event: models.EventPartyUpdated,
		Data:  snapshotData(party),
	})

	return party.Copy()
}

// Join adds a member. Only accepted while the party is idle.
func (sm *StateMachine) Join(scope *envelope.Scope, partyID string, member models.PartyMember) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	party, err := sm.lookup(partyID)
	if err != nil {
		return err
	}
	if party.Status != models.PartyStatusIdle {
		return apierror.Wrap(apierror.ErrIllegalState, "cannot join party in state %s", party.Status)
	}
	if _, ok := sm.playerToParty[member.UserID]; ok {
		return apierror.Wrap(apierror.ErrConflict, "player %s already belongs to a party", member.UserID)
	}
	if len(party.Members) >= party.MaxSize {
		return apierror.Wrap(apierror.ErrConflict, "party %s is full", partyID)
	}

	party.Members = append(party.Members, member)
	sm.playerToParty[member.UserID] = partyID

	sm.persistSnapshot(scope, party)
	sm.bus.Publish(scope, partyID, models.Event{
		Event: models.EventMemberJoined,
		Data:  models.MemberData{UserID: member.UserID},
	})

	return nil
}

// Leave removes a member. While queueing, leaving first breaks the queue entry
// with reason underpopulated, since the entry is immutable for its lifetime.
func (sm *StateMachine) Leave(scope *envelope.Scope, partyID string, userID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	party, err := sm.lookup(partyID)
	if err != nil {
		return err
	}
	if !party.IsMember(userID) {
		return apierror.Wrap(apierror.ErrNotFound, "player %s is not a member of party %s", userID, partyID)
	}

	switch party.Status {
	case models.PartyStatusIdle:
	case models.PartyStatusQueueing:
		if err := sm.leaveQueue(scope, party, models.QueueLeftUnderpopulated); err != nil {
			return err
		}
	default:
		return apierror.Wrap(apierror.ErrIllegalState, "cannot leave party in state %s", party.Status)
	}

	remaining := make([]models.PartyMember, 0, len(party.Members)-1)
	for _, m := range party.Members {
		if m.UserID != userID {
			remaining = append(remaining, m)
		}
	}
	party.Members = remaining
	delete(sm.playerToParty, userID)

	if len(party.Members) == 0 {
		delete(sm.parties, partyID)
		sm.deleteSnapshot(scope, partyID)
		sm.bus.Publish(scope, partyID, models.Event{
			Event: models.EventMemberLeft,
			Data:  models.MemberData{UserID: userID},
		})
		return nil
	}

	// Leadership passes to the longest-standing remaining member.
	if party.LeaderID == userID {
		party.LeaderID = party.Members[0].UserID
	}

	sm.persistSnapshot(scope, party)
	sm.bus.Publish(scope, partyID, models.Event{
		Event: models.EventMemberLeft,
		Data:  models.MemberData{UserID: userID},
	})

	return nil
}

// Ready flags a member's readiness. Only accepted while idle.
func (sm *StateMachine) Ready(scope *envelope.Scope, partyID string, userID string, ready bool) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	party, err := sm.lookup(partyID)
	if err != nil {
		return err
	}
	if party.Status != models.PartyStatusIdle {
		return apierror.Wrap(apierror.ErrIllegalState, "cannot change readiness in state %s", party.Status)
	}

	found := false
	for i := range party.Members {
		if party.Members[i].UserID == userID {
			party.Members[i].Ready = ready
			found = true
			break
		}
	}
	if !found {
		return apierror.Wrap(apierror.ErrNotFound, "player %s is not a member of party %s", userID, partyID)
	}

	sm.persistSnapshot(scope, party)
	sm.bus.Publish(scope, partyID, models.Event{
		Event: models.EventMemberReady,
		Data:  models.MemberData{UserID: userID, Ready: ready},
	})

	return nil
}

// EnterQueue transitions idle -> queueing. Only the leader may queue, every
// member must be ready, and the party must fit inside one team.
func (sm *StateMachine) EnterQueue(scope *envelope.Scope, partyID string, actorID string, mode string, teamSize int) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	party, err := sm.lookup(partyID)
	if err != nil {
		return err
	}
	if party.LeaderID != actorID {
		return apierror.Wrap(apierror.ErrForbidden, "only the leader may queue party %s", partyID)
	}
	if party.Status != models.PartyStatusIdle {
		return apierror.Wrap(apierror.ErrIllegalState, "cannot queue party in state %s", party.Status)
	}
	if !party.AllReady() {
		return apierror.Wrap(apierror.ErrIllegalState, "all members must be ready to queue")
	}
	if len(party.Members) > teamSize {
		return apierror.Wrap(apierror.ErrIllegalState, "%v", models.ValidationErrorPartyOverTeamSize)
	}

	entry := models.NewQueueEntry(party, mode, teamSize, sm.now())

	// Flip to queueing before releasing the lock: the status guard rejects
	// concurrent mutations while the enqueue round-trips through the tick
	// worker's mailbox. Holding the lock across that round-trip would
	// deadlock against the worker's own listener callbacks.
	party.Status = models.PartyStatusQueueing
	sm.mu.Unlock()
	err = sm.queue.Enqueue(scope, entry)
	sm.mu.Lock()

	if err != nil {
		if party.Status == models.PartyStatusQueueing {
			party.Status = models.PartyStatusIdle
		}
		return err
	}

	sm.persistSnapshot(scope, party)
	sm.bus.Publish(scope, partyID, models.Event{
		Event: models.EventQueueEntered,
		Data:  entry,
	})

	return nil
}

// CancelQueue transitions queueing -> idle at the leader's request.
func (sm *StateMachine) CancelQueue(scope *envelope.Scope, partyID string, actorID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	party, err := sm.lookup(partyID)
	if err != nil {
		return err
	}
	if party.LeaderID != actorID {
		return apierror.Wrap(apierror.ErrForbidden, "only the leader may cancel queueing for party %s", partyID)
	}
	if party.Status != models.PartyStatusQueueing {
		return apierror.Wrap(apierror.ErrIllegalState, "party %s is not queueing", partyID)
	}

	return sm.leaveQueue(scope, party, models.QueueLeftCancelled)
}

// HandleQueueTimeout transitions queueing -> idle after the engine retired the
// entry. The engine has already removed the entry from the queue store.
func (sm *StateMachine) HandleQueueTimeout(scope *envelope.Scope, partyID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	party, err := sm.lookup(partyID)
	if err != nil || party.Status != models.PartyStatusQueueing {
		return
	}

	party.Status = models.PartyStatusIdle

	sm.persistSnapshot(scope, party)
	sm.bus.Publish(scope, partyID, models.Event{
		Event: models.EventQueueLeft,
		Data:  models.QueueLeftData{Reason: models.QueueLeftTimeout},
	})
}

// HandleMatchFound transitions every constituent party queueing -> matched.
func (sm *StateMachine) HandleMatchFound(scope *envelope.Scope, match models.Match) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, partyID := range match.PartyIDs {
		party, err := sm.lookup(partyID)
		if err != nil || party.Status != models.PartyStatusQueueing {
			scope.WithParty(partyID).Log.
				Warnf("match %s references party not in queueing state", match.MatchID)
			continue
		}

		party.Status = models.PartyStatusMatched

		sm.persistSnapshot(scope, party)
		sm.bus.Publish(scope, partyID, models.Event{
			Event: models.EventMatchFound,
			Data:  models.MatchFoundData{MatchID: match.MatchID, Teams: match.Teams},
		})
	}
}

// EndSession transitions matched -> ended when the downstream session
// terminates or times out without starting. The party record is released so
// its players can regroup.
func (sm *StateMachine) EndSession(scope *envelope.Scope, partyID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	party, err := sm.lookup(partyID)
	if err != nil {
		return err
	}
	if party.Status != models.PartyStatusMatched {
		return apierror.Wrap(apierror.ErrIllegalState, "party %s has no active session", partyID)
	}

	party.Status = models.PartyStatusEnded

	for _, member := range party.Members {
		delete(sm.playerToParty, member.UserID)
	}
	delete(sm.parties, partyID)
	sm.deleteSnapshot(scope, partyID)

	sm.bus.Publish(scope, partyID, models.Event{
		Event: models.EventSessionEnded,
	})

	return nil
}

// Get returns a deep copy of the party record.
func (sm *StateMachine) Get(scope *envelope.Scope, partyID string) (*models.Party, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	party, err := sm.lookup(partyID)
	if err != nil {
		return nil, err
	}
	return party.Copy()
}

// PartyOf returns the party a player currently belongs to, if any.
func (sm *StateMachine) PartyOf(scope *envelope.Scope, userID string) (string, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	partyID, ok := sm.playerToParty[userID]
	return partyID, ok
}

// leaveQueue is called with sm.mu held and returns with it held. The lock is
// released around the dequeue so the tick worker can keep processing; if a
// match claimed the party in that window, the leave loses with conflict.
func (sm *StateMachine) leaveQueue(scope *envelope.Scope, party *models.Party, reason models.QueueLeftReason) error {
	sm.mu.Unlock()
	err := sm.queue.Dequeue(scope, party.PartyID)
	sm.mu.Lock()

	if err != nil {
		return err
	}
	if party.Status != models.PartyStatusQueueing {
		return apierror.Wrap(apierror.ErrConflict, "party %s already left the queue", party.PartyID)
	}

	party.Status = models.PartyStatusIdle

	sm.persistSnapshot(scope, party)
	sm.bus.Publish(scope, party.PartyID, models.Event{
		Event: models.EventQueueLeft,
		Data:  models.QueueLeftData{Reason: reason},
	})

	return nil
}

func (sm *StateMachine) lookup(partyID string) (*models.Party, error) {
	party, ok := sm.parties[partyID]
	if !ok {
		return nil, apierror.Wrap(apierror.ErrNotFound, "party %s is unknown", partyID)
	}
	return party, nil
}

// persistSnapshot writes a deep copy of the party to the durable store so a
// concurrent mutation cannot race the adapter call.
func (sm *StateMachine) persistSnapshot(scope *envelope.Scope, party *models.Party) {
	if sm.snapshots == nil {
		return
	}

	copied, err := party.Copy()
	if err != nil {
		scope.WithParty(party.PartyID).Log.Warnf("snapshot copy failed: %v", err)
		return
	}
	if err := sm.snapshots.Put(scope, copied); err != nil {
		scope.WithParty(party.PartyID).Log.Warnf("snapshot write failed: %v", err)
	}
}

func (sm *StateMachine) deleteSnapshot(scope *envelope.Scope, partyID string) {
	if sm.snapshots == nil {
		return
	}
	if err := sm.snapshots.Delete(scope, partyID); err != nil {
		scope.WithParty(partyID).Log.Warnf("snapshot delete failed: %v", err)
	}
}

func snapshotData(party *models.Party) interface{} {
	copied, err := party.Copy()
	if err != nil {
		return nil
	}
	return copied
}
