// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestScope_TagAndCount(t *testing.T) {
	rec := recordSpans(t)

	scope := StartScope(context.Background(), "account.Load")
	scope.Tag("account_id", "acc-1")
	scope.Count("outbox_replayed", 2)
	scope.Finish()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, expected 1", len(ended))
	}
	got := attrs(ended[0])
	if got["account_id"].AsString() != "acc-1" {
		t.Errorf("account_id = %q, expected acc-1", got["account_id"].AsString())
	}
	if got["outbox_replayed"].AsInt64() != 2 {
		t.Errorf("outbox_replayed = %d, expected 2", got["outbox_replayed"].AsInt64())
	}
	if scope.Log.Data["account_id"] != "acc-1" {
		t.Errorf("log fields = %v, expected account_id", scope.Log.Data)
	}
	if scope.Log.Data[traceIDLogField] != scope.TraceID {
		t.Errorf("log trace id = %v, expected %s", scope.Log.Data[traceIDLogField], scope.TraceID)
	}
}

func TestScope_ChildAndFail(t *testing.T) {
	rec := recordSpans(t)

	parent := StartScope(context.Background(), "account.Economy")
	child := parent.Child("account.LoadRemote")
	child.Fail(errors.New("remote store unavailable"))
	child.Finish()
	parent.Finish()

	ended := rec.Ended()
	if len(ended) != 2 {
		t.Fatalf("ended spans = %d, expected 2", len(ended))
	}
	c, p := ended[0], ended[1]
	if c.Parent().SpanID() != p.SpanContext().SpanID() {
		t.Error("child span is not nested under its parent")
	}
	if child.TraceID != parent.TraceID {
		t.Errorf("child trace id = %s, expected %s", child.TraceID, parent.TraceID)
	}
	if c.Status().Code != codes.Error {
		t.Errorf("child status = %v, expected error", c.Status().Code)
	}
	if p.Status().Code == codes.Error {
		t.Error("parent status should not be affected by the child failure")
	}
}
