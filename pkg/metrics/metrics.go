// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package metrics defines the Prometheus collectors of the sync engine.
// Collectors are created unregistered; the metrics server registers them with Register.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "account_sync"

// Outcome label values.
const (
	OutcomeSuccess       = "success"
	OutcomeFailure       = "failure"
	OutcomeStale         = "stale"
	OutcomeUnauthorized  = "unauthorized"
	OutcomeOffline       = "offline"
	OutcomeConfirmed     = "confirmed"
	OutcomeRejected      = "rejected"
	OutcomeIndeterminate = "indeterminate"
	OutcomeDeclined      = "declined"
	OutcomeNotFound      = "not_found"
	OutcomeDropped       = "dropped"
)

var FlushTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "flush_total",
	Help:      "Record pushes to the remote store by record kind and outcome",
}, []string{"kind", "outcome"})

var FlushDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "flush_duration_seconds",
	Help:      "Duration of a single record push",
	Buckets:   prometheus.DefBuckets,
}, []string{"kind"})

var RetryQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "retry_queue_depth",
	Help:      "Record kinds waiting for a retry push",
})

var MergeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "merge_total",
	Help:      "Local/remote merges by record kind and whether the result diverged from remote",
}, []string{"kind", "diverged"})

var EconomyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "economy_actions_total",
	Help:      "Economy actions by action id and outcome",
}, []string{"action", "outcome"})

var AppendTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "append_records_total",
	Help:      "Append-only record deliveries by collection and outcome",
}, []string{"collection", "outcome"})

var OutboxDepth = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "outbox_depth",
	Help:      "Append records queued for delivery",
})

var SessionLoadTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "session_loads_total",
	Help:      "Session loads by outcome",
}, []string{"outcome"})

// Collectors returns every collector of the package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		FlushTotal,
		FlushDuration,
		RetryQueueDepth,
		MergeTotal,
		EconomyTotal,
		AppendTotal,
		OutboxDepth,
		SessionLoadTotal,
	}
}

// Register adds the collectors to reg. Collectors already registered with reg are skipped.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
