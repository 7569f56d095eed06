// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"sync"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/models"
)

// RecordingListener captures tick outcomes for assertions in engine tests.
type RecordingListener struct {
	mu       sync.Mutex
	TimedOut []string
	Matches  []models.Match
}

func (r *RecordingListener) HandleQueueTimeout(scope *envelope.Scope, partyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.TimedOut = append(r.TimedOut, partyID)
}

func (r *RecordingListener) HandleMatchFound(scope *envelope.Scope, match models.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Matches = append(r.Matches, match)
}
