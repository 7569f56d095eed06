// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package apierror defines the surface-visible error kinds of the matchmaking
// platform. Errors of these kinds wrap exactly one of these sentinels so
// callers can classify with errors.Is. Rule-set validation errors from
// pkg/models and JSON encoding errors are returned as they are and wrap none.
package apierror

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrIllegalState    = errors.New("illegal_state")
	ErrNotFound        = errors.New("not_found")
	ErrConflict        = errors.New("conflict")
	ErrTimeout         = errors.New("timeout")
	ErrBackpressure    = errors.New("backpressure")
	ErrTransport       = errors.New("transport")
)

var errorCodeMap = map[error]int{
	ErrUnauthenticated: 520101,
	ErrForbidden:       520102,
	ErrIllegalState:    520103,
	ErrNotFound:        520104,
	ErrConflict:        520105,
	ErrTimeout:         520106,
	ErrBackpressure:    520107,
	ErrTransport:       520108,
}

// ErrorCode returns a code for the error.
// It returns 20002 if the error does not wrap a registered sentinel.
func ErrorCode(err error) int {
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return 20002
}

// Wrap annotates a sentinel with a human-readable detail while keeping the
// sentinel reachable through errors.Is.
func Wrap(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{sentinel}, args...)...)
}
