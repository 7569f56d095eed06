// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"testing"

	. "github.com/onsi/gomega"
)

func validRuleSetJSON() string {
	return `{
		"mmr_band_initial": 100,
		"mmr_band_growth_per_second": 10,
		"mmr_band_max": 500,
		"min_match_quality": 0.6,
		"max_wait_time_second": 120
	}`
}

func TestRuleSetFromJSONAppliesDefaults(t *testing.T) {
	t.Parallel()
	g := NewGomegaWithT(t)

	ruleSet, err := RuleSetFromJSON(validRuleSetJSON())
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ruleSet.TeamCount).To(Equal(2))
	g.Expect(ruleSet.MMRBandInitial).To(Equal(100))
}

func TestRuleSetRejectsBandInitialOverMax(t *testing.T) {
	t.Parallel()
	g := NewGomegaWithT(t)

	ruleSet := MatchRuleSet{
		MMRBandInitial:    600,
		MMRBandMax:        500,
		MinMatchQuality:   0.6,
		MaxWaitTimeSecond: 120,
	}
	g.Expect(ruleSet.Validate()).To(MatchError(ValidationErrorBandInitialOverMax))
}

func TestRuleSetRejectsZeroMaxWait(t *testing.T) {
	t.Parallel()
	g := NewGomegaWithT(t)

	ruleSet := MatchRuleSet{
		MMRBandInitial:  100,
		MMRBandMax:      500,
		MinMatchQuality: 0.6,
	}
	g.Expect(ruleSet.Validate()).To(MatchError(ValidationErrorZeroMaxWaitTime))
}

func TestRuleSetFromJSONRejectsMalformedInput(t *testing.T) {
	t.Parallel()
	g := NewGomegaWithT(t)

	_, err := RuleSetFromJSON(`{"mmr_band_initial": "fast"}`)
	g.Expect(err).To(HaveOccurred())
}

func TestValidationErrorCodes(t *testing.T) {
	t.Parallel()
	g := NewGomegaWithT(t)

	g.Expect(ValidationErrorCode(ValidationErrorZeroMaxWaitTime)).To(Equal(510216))
	g.Expect(ValidationErrorCode(ErrPartyCopyFailed)).To(Equal(20002))
}
