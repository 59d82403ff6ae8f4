// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegister_Twice(t *testing.T) {
	reg := prometheus.NewRegistry()

	if err := Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := Register(reg); err != nil {
		t.Errorf("second Register() error = %v, expected nil", err)
	}
}

func TestFlushTotal_Labels(t *testing.T) {
	FlushTotal.Reset()
	FlushTotal.WithLabelValues("profile", OutcomeSuccess).Inc()
	FlushTotal.WithLabelValues("profile", OutcomeSuccess).Inc()

	if got := testutil.ToFloat64(FlushTotal.WithLabelValues("profile", OutcomeSuccess)); got != 2 {
		t.Errorf("flush_total = %v, expected 2", got)
	}
}
