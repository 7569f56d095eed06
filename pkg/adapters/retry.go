// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package adapters

import (
	"time"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/apierror"
	"github.com/AccelByte/extend-realtime-matchmaker/pkg/envelope"
)

const retryBaseDelay = 100 * time.Millisecond

// withRetry runs fn up to maxAttempts times with exponential backoff between
// attempts. Exhaustion surfaces as a transport error wrapping the last failure.
func withRetry(scope *envelope.Scope, operation string, maxAttempts int, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	delay := retryBaseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < maxAttempts {
			scope.Log.Warnf("%s attempt %d/%d failed, retrying in %s: %v",
				operation, attempt, maxAttempts, delay, lastErr)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return apierror.Wrap(apierror.ErrTransport, "%s failed after %d attempts: %v", operation, maxAttempts, lastErr)
}
