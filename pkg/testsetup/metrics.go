package testsetup

import (
	"sync"
	"time"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/metrics"
)

type stubMetricsCollection struct{}

func (s stubMetricsCollection) PartiesInQueue(region string, mode string, teamSize int, numParties int, numPlayers int) {
}

func (s stubMetricsCollection) AddTickElapsedTimeMs(function string, elapsedTime time.Duration) {
}

func (s stubMetricsCollection) AddMatchQuality(region string, mode string, quality float64) {
}

func (s stubMetricsCollection) AddUnmatchedReason(region string, mode string, reason string) {
}

func (s stubMetricsCollection) AddChannelDropped(reason string) {
}

func NewMetrics() metrics.MatchmakingMetrics {
	return stubMetricsCollection{}
}

// RecordingMetrics counts unmatched reasons and channel drops for assertions.
type RecordingMetrics struct {
	mu               sync.Mutex
	unmatchedReasons map[string]int
	channelDrops     map[string]int
}

func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{
		unmatchedReasons: make(map[string]int),
		channelDrops:     make(map[string]int),
	}
}

func (r *RecordingMetrics) PartiesInQueue(region string, mode string, teamSize int, numParties int, numPlayers int) {
}

func (r *RecordingMetrics) AddTickElapsedTimeMs(function string, elapsedTime time.Duration) {
}

func (r *RecordingMetrics) AddMatchQuality(region string, mode string, quality float64) {
}

func (r *RecordingMetrics) AddUnmatchedReason(region string, mode string, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unmatchedReasons[reason]++
}

func (r *RecordingMetrics) AddChannelDropped(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channelDrops[reason]++
}

// UnmatchedReasonCount returns how often the reason was reported.
func (r *RecordingMetrics) UnmatchedReasonCount(reason string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unmatchedReasons[reason]
}
