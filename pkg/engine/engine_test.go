// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package engine

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/config"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/models"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/testsetup"
)

var matchIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func newTestEngine() (*Engine, *testsetup.RecordingListener) {
	e := New(config.Default(), testsetup.NewMetrics())
	listener := &testsetup.RecordingListener{}
	e.SetListener(listener)
	return e, listener
}

func solo(index int, mmr int, region, mode string, teamSize int, enqueuedAt time.Time) models.QueueEntry {
	partyID := fmt.Sprintf("party-%d", index)
	return models.QueueEntry{
		PartyID:    partyID,
		Region:     region,
		Mode:       mode,
		TeamSize:   teamSize,
		PartySize:  1,
		AvgMMR:     mmr,
		EnqueuedAt: enqueuedAt,
		PlayerIDs:  []string{fmt.Sprintf("player-%d", index)},
	}
}

func TestTickMatchesTenSolosIntoOneMatch(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	e, _ := newTestEngine()

	base := time.Now()
	for i := 0; i < 10; i++ {
		entry := solo(i, 1500+i*10, "us-west", "ranked", 5, base.Add(time.Duration(i)*time.Millisecond))
		g.Expect(e.store.Enqueue(entry)).To(Succeed())
	}

	matches := e.tick(g.TestScope, base.Add(time.Second))

	g.Expect(matches).To(HaveLen(1))
	g.Expect(matches[0].QualityScore).To(BeNumerically(">", 0.7))
	g.Expect(matches[0].Region).To(Equal("us-west"))
	g.Expect(matches[0].Mode).To(Equal("ranked"))
	g.Expect(matches[0].TeamSize).To(Equal(5))
	g.Expect(matches[0].PlayerCount()).To(Equal(10))
	g.Expect(matchIDPattern.MatchString(matches[0].MatchID)).To(BeTrue())
	g.Expect(e.store.Size()).To(Equal(0))
}

func TestTickKeepsPartiesTogetherAcrossTeams(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	e, _ := newTestEngine()

	base := time.Now()
	trio := models.QueueEntry{
		PartyID:    "party-trio",
		Region:     "us-west",
		Mode:       "ranked",
		TeamSize:   5,
		PartySize:  3,
		AvgMMR:     1500,
		EnqueuedAt: base,
		PlayerIDs:  []string{"trio-1", "trio-2", "trio-3"},
	}
	g.Expect(e.store.Enqueue(trio)).To(Succeed())
	for i := 0; i < 7; i++ {
		entry := solo(i, 1500, "us-west", "ranked", 5, base.Add(time.Duration(i+1)*time.Millisecond))
		g.Expect(e.store.Enqueue(entry)).To(Succeed())
	}

	matches := e.tick(g.TestScope, base.Add(time.Second))

	g.Expect(matches).To(HaveLen(1))
	g.Expect(matches[0].PlayerCount()).To(Equal(10))
	g.Expect(matches[0].Teams[0]).To(HaveLen(5))
	g.Expect(matches[0].Teams[1]).To(HaveLen(5))
	g.Expect(matches[0].Teams).To(ContainElement(ContainElements("trio-1", "trio-2", "trio-3")))
	g.Expect(e.store.Size()).To(Equal(0))
}

func TestWideSpreadPairTimesOutInsteadOfMatching(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	e, listener := newTestEngine()

	base := time.Now()
	g.Expect(e.store.Enqueue(solo(0, 1000, "us-west", "ranked", 5, base))).To(Succeed())
	g.Expect(e.store.Enqueue(solo(1, 2000, "us-west", "ranked", 5, base))).To(Succeed())

	// Two players can never fill two teams of five, so ticks up to the wait
	// bound emit nothing.
	for _, elapsed := range []time.Duration{0, time.Second, 60 * time.Second, 120 * time.Second} {
		g.Expect(e.tick(g.TestScope, base.Add(elapsed))).To(BeEmpty())
		g.Expect(e.store.Size()).To(Equal(2))
	}

	g.Expect(e.tick(g.TestScope, base.Add(121*time.Second))).To(BeEmpty())
	g.Expect(e.store.Size()).To(Equal(0))
	g.Expect(listener.TimedOut).To(ConsistOf("party-0", "party-1"))
}

func TestNoCrossRegionMatching(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	e, _ := newTestEngine()

	base := time.Now()
	west := solo(0, 1500, "us-west", "ranked", 1, base)
	east := solo(1, 1500, "eu-west", "ranked", 1, base)
	g.Expect(e.store.Enqueue(west)).To(Succeed())
	g.Expect(e.store.Enqueue(east)).To(Succeed())

	g.Expect(e.tick(g.TestScope, base.Add(time.Second))).To(BeEmpty())
	g.Expect(e.store.Size()).To(Equal(2))
}

func TestNoCrossModeMatching(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	e, _ := newTestEngine()

	base := time.Now()
	ranked := solo(0, 1500, "us-west", "ranked", 1, base)
	casual := solo(1, 1500, "us-west", "casual", 1, base)
	g.Expect(e.store.Enqueue(ranked)).To(Succeed())
	g.Expect(e.store.Enqueue(casual)).To(Succeed())

	g.Expect(e.tick(g.TestScope, base.Add(time.Second))).To(BeEmpty())
	g.Expect(e.store.Size()).To(Equal(2))
}

func TestToleranceWidensWithOldestWait(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	e, _ := newTestEngine()

	base := time.Now()
	mmrs := []int{1000, 1100, 1200, 1300}
	for i, mmr := range mmrs {
		g.Expect(e.store.Enqueue(solo(i, mmr, "us-west", "ranked", 2, base.Add(time.Duration(i)*time.Millisecond)))).To(Succeed())
	}

	// Spread 300 over the initial band of 100: nothing at t=0.
	g.Expect(e.tick(g.TestScope, base)).To(BeEmpty())
	g.Expect(e.store.Size()).To(Equal(4))

	// After 20 s the band reaches 100 + 20*10 = 300 and admits the spread.
	matches := e.tick(g.TestScope, base.Add(20*time.Second))
	g.Expect(matches).To(HaveLen(1))
	g.Expect(matches[0].PlayerCount()).To(Equal(4))
	g.Expect(e.store.Size()).To(Equal(0))
}

func TestEmittedMatchesDrainTheBucketRepeatedly(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	e, _ := newTestEngine()

	base := time.Now()
	for i := 0; i < 4; i++ {
		g.Expect(e.store.Enqueue(solo(i, 1500, "us-west", "ranked", 1, base.Add(time.Duration(i)*time.Millisecond)))).To(Succeed())
	}

	matches := e.tick(g.TestScope, base.Add(time.Second))

	g.Expect(matches).To(HaveLen(2))
	g.Expect(matches[0].MatchID).ToNot(Equal(matches[1].MatchID))
	g.Expect(e.store.Size()).To(Equal(0))

	// Fairness: the oldest pair forms the first match.
	g.Expect(matches[0].PartyIDs).To(ConsistOf("party-0", "party-1"))
	g.Expect(matches[1].PartyIDs).To(ConsistOf("party-2", "party-3"))
}

func TestPerBucketRuleSetOverridesDefaults(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	e, _ := newTestEngine()

	bucket := models.QueueBucket{Region: "us-west", Mode: "ranked", TeamSize: 1}
	g.Expect(e.SetRuleSet(bucket, models.MatchRuleSet{
		MMRBandInitial:         500,
		MMRBandGrowthPerSecond: 0,
		MMRBandMax:             500,
		MinMatchQuality:        0.99,
		MaxWaitTimeSecond:      120,
	})).To(Succeed())

	base := time.Now()
	g.Expect(e.store.Enqueue(solo(0, 1300, "us-west", "ranked", 1, base))).To(Succeed())
	g.Expect(e.store.Enqueue(solo(1, 1700, "us-west", "ranked", 1, base))).To(Succeed())

	// The pair is admitted by the widened band but rejected by the raised
	// quality floor.
	g.Expect(e.tick(g.TestScope, base.Add(time.Second))).To(BeEmpty())
	g.Expect(e.store.Size()).To(Equal(2))
}

func TestUnmatchedReasonsDistinguishSpreadFromHeadcount(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)

	m := testsetup.NewRecordingMetrics()
	e := New(config.Default(), m)
	e.SetListener(&testsetup.RecordingListener{})

	base := time.Now()
	// Enough players for a 2v2, but a spread the initial band cannot admit.
	for i, mmr := range []int{1000, 1500, 2500, 3000} {
		g.Expect(e.store.Enqueue(solo(i, mmr, "us-west", "ranked", 2, base.Add(time.Duration(i)*time.Millisecond)))).To(Succeed())
	}
	// A second bucket that is simply short on players.
	g.Expect(e.store.Enqueue(solo(10, 1500, "eu-west", "ranked", 5, base))).To(Succeed())
	g.Expect(e.store.Enqueue(solo(11, 1500, "eu-west", "ranked", 5, base))).To(Succeed())

	g.Expect(e.tick(g.TestScope, base.Add(time.Second))).To(BeEmpty())

	g.Expect(m.UnmatchedReasonCount(constants.ReasonSpreadOverTolerance)).To(Equal(1))
	g.Expect(m.UnmatchedReasonCount(constants.ReasonNotEnoughPlayers)).To(Equal(1))
}

func TestRunProcessesCommandsAndShutdownRefusesNewOnes(t *testing.T) {
	g := testsetup.WithGomega(t)
	e, _ := newTestEngine()

	e.Run(g.TestScope)

	entry := solo(0, 1500, "us-west", "ranked", 5, time.Now())
	g.Expect(e.Enqueue(g.TestScope, entry)).To(Succeed())
	g.Expect(e.IsQueued(g.TestScope, "party-0")).To(BeTrue())
	g.Expect(e.QueueSizes(g.TestScope)).To(HaveLen(1))
	g.Expect(e.Dequeue(g.TestScope, "party-0")).To(Succeed())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	g.Expect(e.Shutdown(ctx)).To(Succeed())

	err := e.Enqueue(g.TestScope, entry)
	g.Expect(err).To(HaveOccurred())
}
