// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/AccelByte/extend-account-sync/pkg/metrics"
)

func TestMetricsServer_ServesSyncCollectors(t *testing.T) {
	m := NewMetricsServer(0, "/metrics")
	if err := m.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	metrics.SessionLoadTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"account_sync_session_loads_total", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Errorf("scrape is missing %s", name)
		}
	}
}

func TestMetricsServer_StartFailsOnBusyPort(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen error = %v", err)
	}
	defer busy.Close()

	m := NewMetricsServer(busy.Addr().(*net.TCPAddr).Port, "/metrics")
	if err := m.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := m.Start(context.Background()); err == nil {
		_ = m.Shutdown(context.Background())
		t.Error("Start() expected an error for a port in use")
	}
}

func TestMetricsServer_ShutdownBeforeSetup(t *testing.T) {
	if err := NewMetricsServer(0, "/metrics").Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestSetupTelemetry_InvalidEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_ZIPKIN_ENDPOINT", "not-a-url")

	if _, err := SetupTelemetry(context.Background(), "account-sync", "test", 0); err == nil {
		t.Error("SetupTelemetry() expected an error for an endpoint without scheme or host")
	}
}

func TestSetupTelemetry_InstallsProvider(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_ZIPKIN_ENDPOINT", "http://127.0.0.1:9411/api/v2/spans")
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := SetupTelemetry(context.Background(), "account-sync", "test", 0)
	if err != nil {
		t.Fatalf("SetupTelemetry() error = %v", err)
	}
	if otel.GetTracerProvider() == prev {
		t.Error("tracer provider was not replaced")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown error = %v", err)
	}
}
