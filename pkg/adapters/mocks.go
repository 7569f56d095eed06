// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package adapters

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/apierror"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/models"
)

// MockIdentityVerifier resolves credentials from a static map. For tests and
// local development.
type MockIdentityVerifier struct {
	Credentials map[string]string // credential -> player ID
}

func (m *MockIdentityVerifier) Verify(scope *envelope.Scope, credential string) (string, error) {
	playerID, ok := m.Credentials[credential]
	if !ok {
		return "", apierror.Wrap(apierror.ErrUnauthenticated, "unknown credential")
	}
	return playerID, nil
}

// MemorySnapshotStore keeps party snapshots in a map. For tests and
// single-instance deployments without durability requirements.
type MemorySnapshotStore struct {
	mu      sync.RWMutex
	parties map[string]*models.Party
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{parties: make(map[string]*models.Party)}
}

func (m *MemorySnapshotStore) Get(scope *envelope.Scope, partyID string) (*models.Party, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	party, ok := m.parties[partyID]
	if !ok {
		return nil, apierror.Wrap(apierror.ErrNotFound, "no snapshot for party %s", partyID)
	}
	return party, nil
}

func (m *MemorySnapshotStore) Put(scope *envelope.Scope, party *models.Party) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.parties[party.PartyID] = party
	return nil
}

func (m *MemorySnapshotStore) Delete(scope *envelope.Scope, partyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.parties, partyID)
	return nil
}

type memorySubscriber struct {
	pattern string
	handler BrokerHandler
}

// MemoryBroker delivers published events to in-process subscribers. Pattern
// matching supports a single trailing "*" wildcard, which covers the
// matchmaker subject hierarchy.
type MemoryBroker struct {
	mu          sync.Mutex
	subscribers map[int]*memorySubscriber
	nextID      int

	Published []PublishedEvent
}

// PublishedEvent records one Publish call for assertions.
type PublishedEvent struct {
	Subject string
	Payload interface{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subscribers: make(map[int]*memorySubscriber)}
}

func (m *MemoryBroker) Publish(scope *envelope.Scope, subject string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.Published = append(m.Published, PublishedEvent{Subject: subject, Payload: payload})
	subscribers := make([]*memorySubscriber, 0, len(m.subscribers))
	for _, sub := range m.subscribers {
		subscribers = append(subscribers, sub)
	}
	m.mu.Unlock()

	for _, sub := range subscribers {
		if subjectMatches(sub.pattern, subject) {
			sub.handler(subject, raw)
		}
	}
	return nil
}

// PublishedSubjects returns the subjects published so far, for assertions.
func (m *MemoryBroker) PublishedSubjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	subjects := make([]string, 0, len(m.Published))
	for _, published := range m.Published {
		subjects = append(subjects, published.Subject)
	}
	return subjects
}

func (m *MemoryBroker) Subscribe(scope *envelope.Scope, subjectPattern string, handler BrokerHandler) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subscribers[id] = &memorySubscriber{pattern: subjectPattern, handler: handler}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}, nil
}

func subjectMatches(pattern, subject string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(subject, prefix)
	}
	return pattern == subject
}
