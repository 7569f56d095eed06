// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package engine runs the matchmaking clock. A single dedicated worker owns
// the queue store; every mutation arrives through a bounded command mailbox,
// which makes the engine single-writer and lock-free internally.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/apierror"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/common"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/config"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/metrics"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/models"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/queuestore"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/teambuilder"
)

// Listener observes queue outcomes decided by the tick worker. The party state
// machine implements it: timeout retires a queue entry the engine has already
// removed, match found moves every constituent party to matched.
type Listener interface {
	HandleQueueTimeout(scope *envelope.Scope, partyID string)
	HandleMatchFound(scope *envelope.Scope, match models.Match)
}

// BrokerPublisher gossips queue and match events to sibling engine instances.
// Publishing is best-effort; a failing broker demotes gossip, never matching.
type BrokerPublisher interface {
	Publish(scope *envelope.Scope, subject string, payload interface{}) error
}

// Engine is the tick-driven queue processor.
type Engine struct {
	cfg      *config.Config
	store    *queuestore.Store
	metrics  metrics.MatchmakingMetrics
	listener Listener
	broker   BrokerPublisher

	// per-bucket rule overrides, keyed by QueueBucket.Key()
	rules map[string]models.MatchRuleSet

	mailbox chan command
	quit    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool

	now func() time.Time
}

// New builds an engine around its queue store. The listener must be set with
// SetListener before Run; the broker is optional.
func New(cfg *config.Config, m metrics.MatchmakingMetrics) *Engine {
	return &Engine{
		cfg:     cfg,
		store:   queuestore.New(),
		metrics: m,
		rules:   make(map[string]models.MatchRuleSet),
		mailbox: make(chan command, cfg.MailboxSize),
		quit:    make(chan struct{}),
		now:     time.Now,
	}
}

// SetListener wires the party state machine in. Must be called before Run.
func (e *Engine) SetListener(listener Listener) {
	e.listener = listener
}

// SetBroker plugs the cross-instance gossip publisher in. Optional.
func (e *Engine) SetBroker(broker BrokerPublisher) {
	e.broker = broker
}

// SetRuleSet registers a per-bucket override of the default tunables.
func (e *Engine) SetRuleSet(bucket models.QueueBucket, ruleSet models.MatchRuleSet) error {
	if err := ruleSet.Validate(); err != nil {
		return err
	}
	ruleSet.SetDefaultValues()
	e.rules[bucket.Key()] = ruleSet
	return nil
}

// Run starts the tick worker. It returns immediately; Shutdown stops it.
func (e *Engine) Run(scope *envelope.Scope) {
	e.wg.Add(1)
	go e.loop(scope)
}

// Shutdown drains the mailbox, runs a final tick, then stops the worker. After
// Shutdown the engine refuses new commands.
func (e *Engine) Shutdown(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(e.quit)

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue hands a queue entry to the tick worker and waits for the outcome.
func (e *Engine) Enqueue(scope *envelope.Scope, entry models.QueueEntry) error {
	if e.closed.Load() {
		return apierror.Wrap(apierror.ErrIllegalState, "engine is shut down")
	}

	cmd := enqueueCommand{entry: entry, reply: make(chan error, 1)}
	e.mailbox <- cmd
	return <-cmd.reply
}

// Dequeue removes a party's entry. A no-op for parties that are not queued.
func (e *Engine) Dequeue(scope *envelope.Scope, partyID string) error {
	if e.closed.Load() {
		return apierror.Wrap(apierror.ErrIllegalState, "engine is shut down")
	}

	cmd := dequeueCommand{partyID: partyID, reply: make(chan error, 1)}
	e.mailbox <- cmd
	return <-cmd.reply
}

// IsQueued reports whether the party currently has a queue entry.
func (e *Engine) IsQueued(scope *envelope.Scope, partyID string) bool {
	if e.closed.Load() {
		return false
	}

	cmd := isQueuedCommand{partyID: partyID, reply: make(chan bool, 1)}
	e.mailbox <- cmd
	return <-cmd.reply
}

// QueueSizes returns per-bucket entry counts for telemetry.
func (e *Engine) QueueSizes(scope *envelope.Scope) map[string]int {
	if e.closed.Load() {
		return nil
	}

	cmd := sizesCommand{reply: make(chan map[string]int, 1)}
	e.mailbox <- cmd
	return <-cmd.reply
}

func (e *Engine) loop(rootScope *envelope.Scope) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case cmd := <-e.mailbox:
			cmd.apply(rootScope, e)
		case <-ticker.C:
			e.runTick(rootScope)
		case <-e.quit:
			e.drainMailbox(rootScope)
			e.runTick(rootScope)
			// A command can slip past the closed check into the mailbox
			// after the drain; answer those so their callers never hang.
			go e.rejectCommands()
			return
		}
	}
}

// drainMailbox applies every command already enqueued at shutdown time.
func (e *Engine) drainMailbox(scope *envelope.Scope) {
	deadline := time.After(constants.TickWorkerDrainTimeLimit)
	for {
		select {
		case cmd := <-e.mailbox:
			cmd.apply(scope, e)
		case <-deadline:
			return
		default:
			return
		}
	}
}

func (e *Engine) rejectCommands() {
	for cmd := range e.mailbox {
		cmd.reject()
	}
}

func (e *Engine) runTick(rootScope *envelope.Scope) {
	scope := rootScope.NewChildScope("Engine.Tick")
	defer scope.Finish()

	start := e.now()
	matches := e.tick(scope, start)
	e.metrics.AddTickElapsedTimeMs(constants.TickFunction, e.now().Sub(start))

	for _, match := range matches {
		if e.listener != nil {
			e.listener.HandleMatchFound(scope, match)
		}
		e.gossip(scope, constants.SubjectMatchFound, match)
	}
}

// tick walks every bucket once: retire timeouts, then emit matches until the
// bucket runs dry or quality drops below the configured minimum.
func (e *Engine) tick(scope *envelope.Scope, now time.Time) []models.Match {
	var matches []models.Match

	e.store.TickBuckets(func(bucket models.QueueBucket, entries []models.QueueEntry) {
		bucketScope := scope.WithBucket(bucket.Key())
		ruleSet := e.ruleSetFor(bucket)

		remaining := e.retireTimeouts(bucketScope, bucket, entries, ruleSet, now)

		if len(remaining) < 2 {
			if len(remaining) > 0 {
				e.metrics.AddUnmatchedReason(bucket.Region, bucket.Mode, constants.ReasonNotEnoughParties)
			}
			e.reportQueueDepth(bucket, remaining)
			return
		}

		for len(remaining) >= 2 {
			tolerance := e.tolerance(ruleSet, remaining[0], now)

			candidate, ok := teambuilder.TryFormMatch(remaining, bucket.TeamSize, ruleSet.TeamCount, tolerance)
			if !ok {
				// With enough players present, the failure is the MMR spread
				// (or an unpackable party mix) rather than headcount.
				reason := constants.ReasonNotEnoughPlayers
				if playerCount(remaining) >= bucket.TeamSize*ruleSet.TeamCount {
					reason = constants.ReasonSpreadOverTolerance
				}
				e.metrics.AddUnmatchedReason(bucket.Region, bucket.Mode, reason)
				break
			}
			if candidate.QualityScore < ruleSet.MinMatchQuality {
				e.metrics.AddUnmatchedReason(bucket.Region, bucket.Mode, constants.ReasonBelowQualityMinimum)
				break
			}

			candidate.MatchID = common.GenerateMatchID()
			candidate.Region = bucket.Region
			candidate.Mode = bucket.Mode

			e.store.RemoveAll(candidate.PartyIDs)
			remaining = removeParties(remaining, candidate.PartyIDs)

			e.metrics.AddMatchQuality(bucket.Region, bucket.Mode, candidate.QualityScore)
			matches = append(matches, candidate)

			matchScope := bucketScope.WithMatch(candidate.MatchID)
			matchScope.RecordMatchEmission(candidate.PlayerCount(), candidate.QualityScore)
			matchScope.Log.Infof("emitted match with %d parties, quality %.3f",
				len(candidate.PartyIDs), candidate.QualityScore)
		}

		e.reportQueueDepth(bucket, remaining)
	})

	return matches
}

// retireTimeouts removes entries past the bucket's max wait and notifies the
// listener with a timeout outcome for each.
func (e *Engine) retireTimeouts(scope *envelope.Scope, bucket models.QueueBucket,
	entries []models.QueueEntry, ruleSet models.MatchRuleSet, now time.Time,
) []models.QueueEntry {
	maxWait := time.Duration(ruleSet.MaxWaitTimeSecond) * time.Second

	remaining := entries[:0]
	for _, entry := range entries {
		if entry.WaitTime(now) > maxWait {
			e.store.Dequeue(entry.PartyID)
			e.metrics.AddUnmatchedReason(bucket.Region, bucket.Mode, constants.ReasonEntryTimedOut)
			scope.WithParty(entry.PartyID).Log.
				Infof("queue entry timed out after %s", entry.WaitTime(now))
			if e.listener != nil {
				e.listener.HandleQueueTimeout(scope, entry.PartyID)
			}
			continue
		}
		remaining = append(remaining, entry)
	}

	return remaining
}

// tolerance widens the MMR band with the oldest entry's wait, capped at the max.
func (e *Engine) tolerance(ruleSet models.MatchRuleSet, oldest models.QueueEntry, now time.Time) int {
	waitSec := int(oldest.WaitTime(now) / time.Second)
	band := ruleSet.MMRBandInitial + waitSec*ruleSet.MMRBandGrowthPerSecond
	if band > ruleSet.MMRBandMax {
		band = ruleSet.MMRBandMax
	}
	return band
}

func (e *Engine) ruleSetFor(bucket models.QueueBucket) models.MatchRuleSet {
	if ruleSet, ok := e.rules[bucket.Key()]; ok {
		return ruleSet
	}
	return models.MatchRuleSet{
		MMRBandInitial:         e.cfg.MMRBandInitial,
		MMRBandGrowthPerSecond: e.cfg.MMRBandGrowthPerSecond,
		MMRBandMax:             e.cfg.MMRBandMax,
		MinMatchQuality:        e.cfg.MinMatchQuality,
		MaxWaitTimeSecond:      e.cfg.MaxWaitTimeSecond,
		TeamCount:              e.cfg.TeamCount,
	}
}

func (e *Engine) reportQueueDepth(bucket models.QueueBucket, remaining []models.QueueEntry) {
	e.metrics.PartiesInQueue(bucket.Region, bucket.Mode, bucket.TeamSize, len(remaining), playerCount(remaining))
}

func playerCount(entries []models.QueueEntry) int {
	total := 0
	for _, entry := range entries {
		total += entry.PartySize
	}
	return total
}

func (e *Engine) gossip(scope *envelope.Scope, subject string, payload interface{}) {
	if e.broker == nil {
		return
	}
	if err := e.broker.Publish(scope, subject, payload); err != nil {
		scope.Log.Warnf("broker publish to %s failed, continuing single-instance: %v", subject, err)
	}
}

func removeParties(entries []models.QueueEntry, partyIDs []string) []models.QueueEntry {
	matched := make(map[string]struct{}, len(partyIDs))
	for _, partyID := range partyIDs {
		matched[partyID] = struct{}{}
	}

	remaining := entries[:0]
	for _, entry := range entries {
		if _, ok := matched[entry.PartyID]; ok {
			continue
		}
		remaining = append(remaining, entry)
	}
	return remaining
}
