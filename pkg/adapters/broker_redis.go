// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package adapters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/config"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/envelope"
)

// RedisBroker gossips queue and match events across engine instances over
// Redis pub/sub. Redis offers no delivery guarantee, so received events are
// deduplicated within a rolling window before reaching the handler.
type RedisBroker struct {
	client      *redis.Client
	timeout     time.Duration
	maxAttempts int
	dedup       *gocache.Cache
}

func NewRedisBroker(cfg *config.Config) *RedisBroker {
	window := cfg.BrokerDedupWindow()
	return &RedisBroker{
		client:      redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
		timeout:     cfg.AdapterTimeout(),
		maxAttempts: cfg.AdapterMaxAttempts,
		dedup:       gocache.New(window, 2*window),
	}
}

// Publish sends the payload's canonical JSON on the subject.
func (b *RedisBroker) Publish(scope *envelope.Scope, subject string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return withRetry(scope, "broker publish", b.maxAttempts, func() error {
		ctx, cancel := context.WithTimeout(scope.Ctx, b.timeout)
		defer cancel()

		return b.client.Publish(ctx, subject, raw).Err()
	})
}

// Subscribe registers a pattern subscription (Redis PSUBSCRIBE syntax, e.g.
// "matchmaker.queue.*") and pumps deduplicated messages into the handler until
// the returned unsubscribe function is called.
func (b *RedisBroker) Subscribe(scope *envelope.Scope, subjectPattern string, handler BrokerHandler) (func(), error) {
	pubsub := b.client.PSubscribe(scope.Ctx, subjectPattern)

	// Wait for the subscription to be confirmed so no event published right
	// after Subscribe returns is missed.
	if _, err := pubsub.Receive(scope.Ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				if b.seenBefore(msg.Channel, []byte(msg.Payload)) {
					scope.Log.Debugf("suppressing duplicate broker event on %s", msg.Channel)
					continue
				}
				handler(msg.Channel, []byte(msg.Payload))
			case <-done:
				return
			}
		}
	}()

	var closed bool
	return func() {
		if closed {
			return
		}
		closed = true
		close(done)
		_ = pubsub.Close()
	}, nil
}

// seenBefore records the event in the dedup window and reports whether it was
// already delivered within it.
func (b *RedisBroker) seenBefore(subject string, payload []byte) bool {
	sum := sha256.Sum256(append([]byte(subject+"|"), payload...))
	key := hex.EncodeToString(sum[:])

	return b.dedup.Add(key, struct{}{}, gocache.DefaultExpiration) != nil
}
