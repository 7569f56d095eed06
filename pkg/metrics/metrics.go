// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type MatchmakingMetrics interface {
	PartiesInQueue(region string, mode string, teamSize int, numParties int, numPlayers int)
	AddTickElapsedTimeMs(function string, elapsedTime time.Duration)
	AddMatchQuality(region string, mode string, quality float64)
	AddUnmatchedReason(region string, mode string, reason string)
	AddChannelDropped(reason string)
}

func NewMetrics(registry *prometheus.Registry) MatchmakingMetrics {
	return setupPrometheusMetrics(registry)
}
