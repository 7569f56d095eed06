// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/apierror"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/config"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/models"
)

const snapshotKeyPrefix = "rtmm:party:"

// RedisSnapshotStore persists party snapshots as JSON blobs keyed by party id.
type RedisSnapshotStore struct {
	client      *redis.Client
	timeout     time.Duration
	maxAttempts int
}

func NewRedisSnapshotStore(cfg *config.Config) *RedisSnapshotStore {
	return &RedisSnapshotStore{
		client:      redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
		timeout:     cfg.AdapterTimeout(),
		maxAttempts: cfg.AdapterMaxAttempts,
	}
}

func (s *RedisSnapshotStore) Get(scope *envelope.Scope, partyID string) (*models.Party, error) {
	var raw string
	err := withRetry(scope, "snapshot get", s.maxAttempts, func() error {
		ctx, cancel := context.WithTimeout(scope.Ctx, s.timeout)
		defer cancel()

		value, err := s.client.Get(ctx, snapshotKeyPrefix+partyID).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		raw = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, apierror.Wrap(apierror.ErrNotFound, "no snapshot for party %s", partyID)
	}

	var party models.Party
	if err := json.Unmarshal([]byte(raw), &party); err != nil {
		return nil, apierror.Wrap(apierror.ErrTransport, "corrupt snapshot for party %s: %v", partyID, err)
	}
	return &party, nil
}

func (s *RedisSnapshotStore) Put(scope *envelope.Scope, party *models.Party) error {
	raw, err := json.Marshal(party)
	if err != nil {
		return err
	}

	return withRetry(scope, "snapshot put", s.maxAttempts, func() error {
		ctx, cancel := context.WithTimeout(scope.Ctx, s.timeout)
		defer cancel()

		return s.client.Set(ctx, snapshotKeyPrefix+party.PartyID, raw, 0).Err()
	})
}

func (s *RedisSnapshotStore) Delete(scope *envelope.Scope, partyID string) error {
	return withRetry(scope, "snapshot delete", s.maxAttempts, func() error {
		ctx, cancel := context.WithTimeout(scope.Ctx, s.timeout)
		defer cancel()

		return s.client.Del(ctx, snapshotKeyPrefix+partyID).Err()
	})
}
