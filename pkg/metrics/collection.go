// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type prometheusMetrics struct {
	partiesInQueue   prometheus.GaugeVec
	tickElapsedTime  prometheus.HistogramVec
	matchQuality     prometheus.HistogramVec
	unmatchedReasons prometheus.CounterVec
	channelsDropped  prometheus.CounterVec
}

func setupPrometheusMetrics(registry *prometheus.Registry) prometheusMetrics {
	factory := promauto.With(registry)
	bucketLabelDimensions := []string{"region", "mode", "team_size"}

	partiesInQueue := factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ab_rtmm_parties_in_match_queue",
			Help: "A gauge of numbers of parties per bucket in the match queue",
		}, append(bucketLabelDimensions, "num_players"))

	//nolint:promlinter
	tickElapsedTime := factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ab_rtmm_tick_elapsed_time_ms",
			Help:    "A histogram of tick engine functions elapsed time in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"function"})

	matchQuality := factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ab_rtmm_match_quality_score",
			Help:    "A histogram of emitted match quality scores",
			Buckets: prometheus.LinearBuckets(0.5, 0.05, 10),
		}, []string{"region", "mode"})

	//nolint:promlinter
	unmatchedReasons := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ab_rtmm_unmatched_reasons",
			Help: "A counter for reasons a bucket produced no match on a tick",
		}, []string{"region", "mode", "reason"})

	channelsDropped := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ab_rtmm_session_channels_dropped_total",
			Help: "A counter of session channel subscribers dropped, by reason",
		}, []string{"reason"})

	return prometheusMetrics{
		partiesInQueue:   *partiesInQueue,
		tickElapsedTime:  *tickElapsedTime,
		matchQuality:     *matchQuality,
		unmatchedReasons: *unmatchedReasons,
		channelsDropped:  *channelsDropped,
	}
}

func (metrics prometheusMetrics) PartiesInQueue(region string, mode string, teamSize int, numParties int, numPlayers int) {
	metrics.partiesInQueue.With(prometheus.Labels{
		"region":      region,
		"mode":        mode,
		"team_size":   strconv.Itoa(teamSize),
		"num_players": strconv.Itoa(numPlayers),
	}).Set(float64(numParties))
}

func (metrics prometheusMetrics) AddTickElapsedTimeMs(function string, elapsedTime time.Duration) {
	metrics.tickElapsedTime.With(prometheus.Labels{"function": function}).Observe(float64(elapsedTime.Milliseconds()))
}

func (metrics prometheusMetrics) AddMatchQuality(region string, mode string, quality float64) {
	metrics.matchQuality.With(prometheus.Labels{"region": region, "mode": mode}).Observe(quality)
}

func (metrics prometheusMetrics) AddUnmatchedReason(region string, mode string, reason string) {
	metrics.unmatchedReasons.With(prometheus.Labels{"region": region, "mode": mode, "reason": reason}).Add(float64(1))
}

func (metrics prometheusMetrics) AddChannelDropped(reason string) {
	metrics.channelsDropped.With(prometheus.Labels{"reason": reason}).Add(float64(1))
}
