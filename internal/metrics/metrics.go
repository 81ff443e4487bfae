// Package metrics exposes Prometheus counters and histograms for the
// bridge's pipeline and egress stages — an enrichment beyond spec.md's
// core scope, grounded on the teacher's internal/api/metrics.go
// promauto pattern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesIngested counts messages entering C6, by source transport.
	// Only MQTT messages reach C6; UDP datagrams are published to the broker.
	MessagesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loxrelay_messages_ingested_total",
		Help: "Messages received by the ingress pipeline, by source transport.",
	}, []string{"source"})

	// PairsDropped counts pairs rejected by a pipeline gate, by gate name.
	PairsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loxrelay_pairs_dropped_total",
		Help: "Pairs dropped by an ingress pipeline gate, by gate.",
	}, []string{"gate"})

	// EgressDispatches counts egress attempts by mode and result code.
	EgressDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loxrelay_egress_dispatches_total",
		Help: "Egress dispatch attempts, by mode and result code.",
	}, []string{"mode", "code"})

	// EgressLatencySeconds records per-dispatch latency, by mode.
	EgressLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loxrelay_egress_latency_seconds",
		Help:    "Latency of egress dispatches, by mode.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	// WhitelistSyncResult counts C9 sync attempts by outcome.
	WhitelistSyncResult = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loxrelay_whitelist_sync_total",
		Help: "Whitelist sync attempts, by outcome (success|failure).",
	}, []string{"outcome"})

	// HTTPSemaphoreInUse gauges how many HTTP egress slots are currently held.
	HTTPSemaphoreInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loxrelay_http_semaphore_in_use",
		Help: "Number of in-flight HTTP egress dispatches currently holding a semaphore slot.",
	})
)
