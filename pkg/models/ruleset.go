// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"encoding/json"

	validator "github.com/AccelByte/justice-input-validation-go"
)

// MatchRuleSet carries the per-bucket matchmaking tunables. A deployment can
// override the engine defaults for a single (region, mode, team_size) bucket
// by registering a rule set under the bucket key.
type MatchRuleSet struct {
	MMRBandInitial         int     `json:"mmr_band_initial"            valid:"range(0|2147483647)"`
	MMRBandGrowthPerSecond int     `json:"mmr_band_growth_per_second"  valid:"range(0|2147483647)"`
	MMRBandMax             int     `json:"mmr_band_max"                valid:"range(0|2147483647)"`
	MinMatchQuality        float64 `json:"min_match_quality"           valid:"range(0|1)"`
	MaxWaitTimeSecond      int     `json:"max_wait_time_second"        valid:"range(0|2147483647)"`
	TeamCount              int     `json:"team_count,omitempty"        valid:"range(0|64)" optional:"true"`

	// internal use
	isDefaultSet bool
}

func (r *MatchRuleSet) Validate() error {
	if _, err := validator.ValidateStruct(r); err != nil {
		return err
	}

	if r.MMRBandInitial > r.MMRBandMax {
		return ValidationErrorBandInitialOverMax
	}

	if r.MaxWaitTimeSecond == 0 {
		return ValidationErrorZeroMaxWaitTime
	}

	return nil
}

// SetDefaultValues fills unset optional fields. Idempotent.
func (r *MatchRuleSet) SetDefaultValues() {
	if r.isDefaultSet {
		return
	}

	if r.TeamCount == 0 {
		r.TeamCount = 2
	}

	r.isDefaultSet = true
}

// RuleSetFromJSON decodes and validates a rule set override.
func RuleSetFromJSON(raw string) (MatchRuleSet, error) {
	var ruleSet MatchRuleSet
	if err := json.Unmarshal([]byte(raw), &ruleSet); err != nil {
		return MatchRuleSet{}, err
	}

	if err := ruleSet.Validate(); err != nil {
		return MatchRuleSet{}, err
	}

	ruleSet.SetDefaultValues()

	return ruleSet, nil
}
