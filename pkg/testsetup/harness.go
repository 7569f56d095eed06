// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"context"
	"testing"

	"github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/envelope"
)

// GomegaWithScope bundles a gomega asserter with a scope rooted at the test's
// name. The scope's logger is raised to warn level so tick-loop and fan-out
// chatter doesn't drown test output.
type GomegaWithScope struct {
	TestScope *envelope.Scope
	*gomega.GomegaWithT
}

func ParallelWithGomega(t *testing.T) GomegaWithScope {
	t.Parallel()
	return WithGomega(t)
}

func WithGomega(t *testing.T) GomegaWithScope {
	return GomegaWithScope{NewTestScope(t), gomega.NewGomegaWithT(t)}
}

// NewTestScope roots a scope at the test's name, so trace spans and log lines
// from a failing parallel run can be attributed to their test.
func NewTestScope(t *testing.T) *envelope.Scope {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	scope := envelope.NewRootScope(context.Background(), t.Name(), "")
	scope.SetLogger(logger)

	return scope
}
