// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"errors"
)

var (
	ValidationErrorBandInitialOverMax = errors.New("initial MMR band cannot exceed max band")
	ValidationErrorZeroMaxWaitTime    = errors.New("max wait time cannot be 0")
	ValidationErrorLeaderNotMember    = errors.New("party leader must be a member")
	ValidationErrorPartyOverMaxSize   = errors.New("party size cannot exceed max size")
	ValidationErrorPartyOverTeamSize  = errors.New("party size cannot exceed team size")
	ErrPartyCopyFailed                = errors.New("party deep copy returned unexpected type")
)

var validationErrorCodeMap = map[error]int{
	ValidationErrorBandInitialOverMax: 510215,
	ValidationErrorZeroMaxWaitTime:    510216,
	ValidationErrorLeaderNotMember:    510217,
	ValidationErrorPartyOverMaxSize:   510218,
	ValidationErrorPartyOverTeamSize:  510219,
}

// ValidationErrorCode returns a code for the error.
// It returns 20002 if the error is not registered in the map.
func ValidationErrorCode(err error) int {
	code, ok := validationErrorCodeMap[err]
	if !ok {
		return 20002
	}
	return code
}
