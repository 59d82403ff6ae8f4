// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	traceIDLogField = "traceID"
	tracerName      = "account-sync"
)

// Scope pairs the span of one session or economy operation with a logger carrying its trace id
// and tags.
type Scope struct {
	Ctx     context.Context
	TraceID string
	Log     *log.Entry
	span    oteltrace.Span
}

// StartScope opens a span named name under whatever span ctx carries.
func StartScope(ctx context.Context, name string) *Scope {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, name)
	traceID := span.SpanContext().TraceID().String()

	return &Scope{
		Ctx:     spanCtx,
		TraceID: traceID,
		Log:     log.WithField(traceIDLogField, traceID),
		span:    span,
	}
}

// Child opens a nested span sharing the parent's logger.
func (s *Scope) Child(name string) *Scope {
	ctx, span := s.span.TracerProvider().Tracer(tracerName).Start(s.Ctx, name)
	return &Scope{Ctx: ctx, TraceID: s.TraceID, Log: s.Log, span: span}
}

// Tag sets a span attribute and adds the same field to every later log line of the scope.
func (s *Scope) Tag(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
	s.Log = s.Log.WithField(key, value)
}

// Count sets a numeric span attribute.
func (s *Scope) Count(key string, n int) {
	s.span.SetAttributes(attribute.Int(key, n))
}

// Event marks a point in the operation, e.g. the remote procedure answering.
func (s *Scope) Event(name string) {
	s.span.AddEvent(name)
}

// Fail records err on the span and marks it failed.
func (s *Scope) Fail(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *Scope) Finish() {
	s.span.End()
}
