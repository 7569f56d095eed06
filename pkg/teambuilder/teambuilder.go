// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package teambuilder forms balanced teams out of queue entries in a single
// bucket. It is a pure function of its inputs; the engine applies the quality
// threshold and stamps the match ID.
package teambuilder

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/mathutil"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/models"
)

const (
	balanceWeight      = 0.5
	varianceWeight     = 0.3
	waitFairnessWeight = 0.2

	balanceClampMax  = 500
	varianceClampMax = 1000
)

// waitFairness is a first-class quality factor kept constant for now.
// TODO: score down matches that leave long-waiting parties behind once wait
// statistics are fed through from the queue store.
const waitFairness = 1.0

// TryFormMatch attempts to form a match from the oldest-first candidates under
// the given MMR tolerance. It returns the match without an ID, region or mode;
// the caller stamps those. The second return is false when no prefix of the
// candidates yields a valid assignment.
func TryFormMatch(candidates []models.QueueEntry, teamSize, teamCount, tolerance int) (models.Match, bool) {
	if len(candidates) == 0 {
		return models.Match{}, false
	}

	required := teamSize * teamCount

	totalAvailable := 0
	for _, entry := range candidates {
		totalAvailable += entry.PartySize
	}
	if totalAvailable < required {
		return models.Match{}, false
	}

	for k := 2; k <= len(candidates); k++ {
		prefix := candidates[:k]

		playerCount := 0
		for _, entry := range prefix {
			playerCount += entry.PartySize
		}
		if playerCount < required {
			continue
		}

		if mmrSpread(prefix) > tolerance {
			continue
		}

		teams, ok := balanceTeams(prefix, teamCount, teamSize)
		if !ok {
			continue
		}

		match := models.Match{
			TeamSize:    teamSize,
			Teams:       make([][]string, teamCount),
			PartyIDs:    make([]string, 0, k),
			AvgMMR:      weightedAvgMMR(prefix),
			MMRVariance: mmrStdDev(prefix),
		}
		for i, team := range teams {
			for _, entry := range team {
				match.Teams[i] = append(match.Teams[i], entry.PlayerIDs...)
				match.PartyIDs = append(match.PartyIDs, entry.PartyID)
			}
		}
		match.QualityScore = qualityScore(teams, match.MMRVariance)

		return match, true
	}

	return models.Match{}, false
}

// mmrSpread is max - min of the party average MMRs.
func mmrSpread(entries []models.QueueEntry) int {
	minMMR, maxMMR := entries[0].AvgMMR, entries[0].AvgMMR
	for _, entry := range entries[1:] {
		minMMR = mathutil.Min(minMMR, entry.AvgMMR)
		maxMMR = mathutil.Max(maxMMR, entry.AvgMMR)
	}
	return maxMMR - minMMR
}

// weightedAvgMMR is the player-weighted integer average of party MMRs.
func weightedAvgMMR(entries []models.QueueEntry) int {
	totalMMR, totalPlayers := 0, 0
	for _, entry := range entries {
		totalMMR += entry.AvgMMR * entry.PartySize
		totalPlayers += entry.PartySize
	}
	if totalPlayers == 0 {
		return 0
	}
	return totalMMR / totalPlayers
}

// mmrStdDev is the floor of the player-weighted standard deviation of the
// party average MMRs across the combination.
func mmrStdDev(entries []models.QueueEntry) int {
	xs := make([]float64, len(entries))
	ws := make([]float64, len(entries))
	for i, entry := range entries {
		xs[i] = float64(entry.AvgMMR)
		ws[i] = float64(entry.PartySize)
	}

	mean := stat.Mean(xs, ws)
	variance := stat.MomentAbout(2, xs, mean, ws)

	return int(math.Floor(math.Sqrt(variance)))
}

// balanceTeams sorts parties by average MMR descending and greedily assigns
// each to the team with the lowest weighted MMR sum that still has room for
// the whole party. Ties go to the lower-indexed team. This longest-processing-
// time-first heuristic keeps the inter-team MMR imbalance small without
// searching assignments. The assignment is valid only when every team ends up
// with exactly teamSize players; parties are never split across teams.
func balanceTeams(entries []models.QueueEntry, teamCount, teamSize int) ([][]models.QueueEntry, bool) {
	sorted := make([]models.QueueEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AvgMMR > sorted[j].AvgMMR
	})

	teams := make([][]models.QueueEntry, teamCount)
	mmrSums := make([]int, teamCount)
	playerCounts := make([]int, teamCount)

	for _, entry := range sorted {
		lowest := -1
		for i := 0; i < teamCount; i++ {
			if playerCounts[i]+entry.PartySize > teamSize {
				continue
			}
			if lowest == -1 || mmrSums[i] < mmrSums[lowest] {
				lowest = i
			}
		}
		if lowest == -1 {
			return nil, false
		}
		teams[lowest] = append(teams[lowest], entry)
		mmrSums[lowest] += entry.AvgMMR * entry.PartySize
		playerCounts[lowest] += entry.PartySize
	}

	for i := 0; i < teamCount; i++ {
		if playerCounts[i] != teamSize {
			return nil, false
		}
	}

	return teams, true
}

// qualityScore combines inter-team balance, intra-match variance and wait
// fairness into a single score in [0, 1].
func qualityScore(teams [][]models.QueueEntry, stdDev int) float64 {
	teamMMRs := make([]int, 0, len(teams))
	for _, team := range teams {
		mmrSum, playerCount := 0, 0
		for _, entry := range team {
			mmrSum += entry.AvgMMR * entry.PartySize
			playerCount += entry.PartySize
		}
		if playerCount > 0 {
			teamMMRs = append(teamMMRs, mmrSum/playerCount)
		}
	}

	balance := 1.0
	if len(teamMMRs) >= 2 {
		minMMR, maxMMR := teamMMRs[0], teamMMRs[0]
		for _, mmr := range teamMMRs[1:] {
			minMMR = mathutil.Min(minMMR, mmr)
			maxMMR = mathutil.Max(maxMMR, mmr)
		}
		diff := mathutil.Clamp(maxMMR-minMMR, 0, balanceClampMax)
		balance = 1.0 - float64(diff)/float64(balanceClampMax)
	}

	varianceScore := 1.0 - float64(mathutil.Clamp(stdDev, 0, varianceClampMax))/float64(varianceClampMax)

	return balanceWeight*balance + varianceWeight*varianceScore + waitFairnessWeight*waitFairness
}
