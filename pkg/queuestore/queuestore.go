// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package queuestore indexes waiting parties by (region, mode, team_size)
// bucket with cheap iteration and O(1) membership checks. The store is owned
// by the tick worker and is not safe for concurrent use; every mutation is
// serialised onto that worker through the engine's command mailbox.
package queuestore

import (
	"sort"

	pie "github.com/elliotchance/pie/v2"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/apierror"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/models"
)

// Store holds the queued entries. The partyToBucket index is always consistent
// with the bucket membership.
type Store struct {
	buckets       map[models.QueueBucket][]models.QueueEntry
	partyToBucket map[string]models.QueueBucket
	pool          *models.Pool
}

func New() *Store {
	return &Store{
		buckets:       make(map[models.QueueBucket][]models.QueueEntry),
		partyToBucket: make(map[string]models.QueueBucket),
		pool:          models.NewPool(),
	}
}

// Enqueue appends the entry to its bucket. Enqueuing an already-queued party
// fails with conflict.
func (s *Store) Enqueue(entry models.QueueEntry) error {
	if _, queued := s.partyToBucket[entry.PartyID]; queued {
		return apierror.Wrap(apierror.ErrConflict, "party %s is already queued", entry.PartyID)
	}

	bucket := entry.Bucket()
	s.buckets[bucket] = append(s.buckets[bucket], entry)
	s.partyToBucket[entry.PartyID] = bucket

	return nil
}

// Dequeue removes the party's entry and drops the index.
// Idempotent for absent parties.
func (s *Store) Dequeue(partyID string) {
	bucket, ok := s.partyToBucket[partyID]
	if !ok {
		return
	}

	s.buckets[bucket] = pie.FilterNot(s.buckets[bucket], func(e models.QueueEntry) bool {
		return e.PartyID == partyID
	})
	if len(s.buckets[bucket]) == 0 {
		delete(s.buckets, bucket)
	}
	delete(s.partyToBucket, partyID)
}

// IsQueued reports whether the party currently has an entry in any bucket.
func (s *Store) IsQueued(partyID string) bool {
	_, ok := s.partyToBucket[partyID]
	return ok
}

// TickBuckets yields each non-empty bucket's entries sorted oldest-first as a
// mutable working view. Removing entries through RemoveAll during the same
// walk does not invalidate the view already handed out.
func (s *Store) TickBuckets(walk func(bucket models.QueueBucket, entries []models.QueueEntry)) {
	for bucket, entries := range s.buckets {
		if len(entries) == 0 {
			continue
		}

		view := s.pool.QueueEntries.Get()
		view = append(view, entries...)
		sort.SliceStable(view, func(i, j int) bool {
			return view[i].EnqueuedAt.Before(view[j].EnqueuedAt)
		})

		walk(bucket, view)

		s.pool.QueueEntries.Put(view[:0])
	}
}

// RemoveAll drops the given parties from their buckets and the index. Parties
// not currently queued are skipped.
func (s *Store) RemoveAll(partyIDs []string) {
	for _, partyID := range partyIDs {
		s.Dequeue(partyID)
	}
}

// Size returns the total number of queued entries.
func (s *Store) Size() int {
	return len(s.partyToBucket)
}

// SizeIn returns the number of entries in one bucket.
func (s *Store) SizeIn(bucket models.QueueBucket) int {
	return len(s.buckets[bucket])
}

// SizesByBucket returns per-bucket entry counts keyed by bucket key.
func (s *Store) SizesByBucket() map[string]int {
	sizes := make(map[string]int, len(s.buckets))
	for bucket, entries := range s.buckets {
		sizes[bucket.Key()] = len(entries)
	}
	return sizes
}
