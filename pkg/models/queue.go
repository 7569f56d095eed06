// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"fmt"
	"time"
)

// QueueBucket is the (region, mode, team size) partition within which matching
// is attempted. Parties never match across buckets.
type QueueBucket struct {
	Region   string `json:"region"`
	Mode     string `json:"mode"`
	TeamSize int    `json:"team_size"`
}

// Key returns a stable string form of the bucket, used for metrics labels and
// per-bucket rule set lookups.
func (b QueueBucket) Key() string {
	return fmt.Sprintf("%s:%s:%d", b.Region, b.Mode, b.TeamSize)
}

// QueueEntry is the immutable record of one party waiting in the queue.
// Membership changes while queueing require dequeue + re-enqueue.
type QueueEntry struct {
	PartyID    string    `json:"party_id" x-nullable:"false"`
	Region     string    `json:"region"`
	Mode       string    `json:"mode"`
	TeamSize   int       `json:"team_size"`
	PartySize  int       `json:"party_size"`
	AvgMMR     int       `json:"avg_mmr"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	PlayerIDs  []string  `json:"player_ids"`
}

// Bucket returns the bucket this entry belongs to.
func (e QueueEntry) Bucket() QueueBucket {
	return QueueBucket{Region: e.Region, Mode: e.Mode, TeamSize: e.TeamSize}
}

// WaitTime returns how long the entry has been waiting at the given instant.
func (e QueueEntry) WaitTime(now time.Time) time.Duration {
	return now.Sub(e.EnqueuedAt)
}

// NewQueueEntry snapshots a party into a queue entry at enqueue time.
func NewQueueEntry(party *Party, mode string, teamSize int, now time.Time) QueueEntry {
	return QueueEntry{
		PartyID:    party.PartyID,
		Region:     party.Region,
		Mode:       mode,
		TeamSize:   teamSize,
		PartySize:  len(party.Members),
		AvgMMR:     party.AvgMMR(),
		EnqueuedAt: now,
		PlayerIDs:  party.MemberIDs(),
	}
}
