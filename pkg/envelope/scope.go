// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package envelope carries request- and tick-scoped context through the
// matchmaking call chains: a context, an OTel span, a trace ID and a
// structured logger that pick up the domain's identifiers (party, queue
// bucket, match) as the work narrows.
package envelope

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/AccelByte/extend-realtime-matchmaker/pkg/common"
)

const (
	traceIdLogField = "traceID"
	tracerName      = "rtmm-engine"

	partyIDAttr      = "rtmm.party_id"
	matchIDAttr      = "rtmm.match_id"
	queueBucketAttr  = "rtmm.queue_bucket"
	matchQualityAttr = "rtmm.match_quality"
	matchPlayersAttr = "rtmm.match_players"
)

// Scope is the envelope handed down a call chain. Narrowing helpers return a
// scope whose logger carries the identifier; the span is shared with the
// parent so a whole tick or request stays one trace.
type Scope struct {
	Ctx     context.Context
	TraceID string
	span    oteltrace.Span
	Log     *logrus.Entry
}

// NewRootScope opens the root span for one request or one engine tick. An
// empty or malformed trace ID is replaced with a fresh one.
func NewRootScope(rootCtx context.Context, name string, traceID string) *Scope {
	if len(traceID) != 32 {
		traceID = common.GenerateUUID()
	}

	ctx, span := otel.Tracer(tracerName).Start(rootCtx, name)

	return &Scope{
		Ctx:     ctx,
		TraceID: traceID,
		span:    span,
		Log:     logrus.WithField(traceIdLogField, traceID),
	}
}

// NewChildScope opens a child span under the same trace ID and logger.
func (s *Scope) NewChildScope(name string) *Scope {
	ctx, span := s.span.TracerProvider().Tracer(tracerName).Start(s.Ctx, name)

	return &Scope{
		Ctx:     ctx,
		TraceID: s.TraceID,
		span:    span,
		Log:     s.Log,
	}
}

// WithParty narrows the scope to one party: the span is tagged and every log
// line carries the party ID.
func (s *Scope) WithParty(partyID string) *Scope {
	s.span.SetAttributes(attribute.String(partyIDAttr, partyID))
	return s.withLogField("partyID", partyID)
}

// WithBucket narrows the scope to one queue bucket during a tick walk.
func (s *Scope) WithBucket(bucketKey string) *Scope {
	s.span.SetAttributes(attribute.String(queueBucketAttr, bucketKey))
	return s.withLogField("bucket", bucketKey)
}

// WithMatch narrows the scope to one emitted match.
func (s *Scope) WithMatch(matchID string) *Scope {
	s.span.SetAttributes(attribute.String(matchIDAttr, matchID))
	return s.withLogField("matchID", matchID)
}

// RecordMatchEmission annotates the span with the shape of an emitted match.
func (s *Scope) RecordMatchEmission(players int, quality float64) {
	s.span.SetAttributes(
		attribute.Int(matchPlayersAttr, players),
		attribute.Float64(matchQualityAttr, quality),
	)
}

func (s *Scope) withLogField(key string, value string) *Scope {
	return &Scope{
		Ctx:     s.Ctx,
		TraceID: s.TraceID,
		span:    s.span,
		Log:     s.Log.WithField(key, value),
	}
}

// SetLogger allows for setting a different logger than the default std logger. This is mostly useful for testing.
func (s *Scope) SetLogger(logger *logrus.Logger) {
	s.Log = logger.WithField(traceIdLogField, s.TraceID)
}

// Finish finishes current scope
func (s *Scope) Finish() {
	s.span.End()
}
