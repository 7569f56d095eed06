// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package models holds the data model of the real-time matchmaking platform:
// parties, queue entries, buckets, matches, events and the per-bucket rule set.
package models

import (
	"time"

	pie "github.com/elliotchance/pie/v2"
	"github.com/mitchellh/copystructure"
)

// PartyStatus is the lifecycle state of a party.
type PartyStatus string

const (
	PartyStatusIdle     PartyStatus = "idle"
	PartyStatusQueueing PartyStatus = "queueing"
	PartyStatusMatched  PartyStatus = "matched"
	PartyStatusEnded    PartyStatus = "ended"
)

// PartyMember is a single player inside a party.
type PartyMember struct {
	UserID string `json:"user_id" x-nullable:"false"`
	MMR    int    `json:"mmr"`
	Ready  bool   `json:"ready"`
}

// Party is a group of 1..MaxSize players that queues as a unit.
// The leader is always a member; a player belongs to at most one party.
type Party struct {
	PartyID   string        `json:"party_id"  x-nullable:"false"`
	LeaderID  string        `json:"leader_id" x-nullable:"false"`
	Region    string        `json:"region"`
	MaxSize   int           `json:"max_size"`
	Members   []PartyMember `json:"members"`
	Status    PartyStatus   `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// IsMember reports whether userID is currently part of the party.
func (p *Party) IsMember(userID string) bool {
	return pie.Any(p.Members, func(m PartyMember) bool { return m.UserID == userID })
}

// MemberIDs returns the user IDs of the current members, in join order.
func (p *Party) MemberIDs() []string {
	return pie.Map(p.Members, func(m PartyMember) string { return m.UserID })
}

// AllReady reports whether every member has flagged ready.
func (p *Party) AllReady() bool {
	return pie.All(p.Members, func(m PartyMember) bool { return m.Ready })
}

// AvgMMR returns the integer average MMR of the current members.
func (p *Party) AvgMMR() int {
	if len(p.Members) == 0 {
		return 0
	}
	total := 0
	for _, m := range p.Members {
		total += m.MMR
	}
	return total / len(p.Members)
}

// Copy returns a deep copy of the party, safe to hand to adapters while the
// original keeps mutating on the owning goroutine.
func (p *Party) Copy() (*Party, error) {
	copied, err := copystructure.Copy(p)
	if err != nil {
		return nil, err
	}
	party, ok := copied.(*Party)
	if !ok {
		return nil, ErrPartyCopyFailed
	}
	return party, nil
}
