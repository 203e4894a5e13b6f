// Package metrics exposes the non-authoritative instrumentation path for the
// synchronization loop. Nothing here influences scheduling decisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts requests sent across the engine boundary by kind.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridflow_engine_requests_total",
			Help: "Total number of requests sent to the evaluation engine",
		},
		[]string{"kind"},
	)

	// RoundTripDuration measures wall-clock time from request dispatch to the
	// accepted terminal response.
	RoundTripDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridflow_engine_round_trip_seconds",
			Help:    "Wall-clock round trip duration per engine request",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"kind"},
	)

	// EngineElapsed tracks the engine's own reported evaluation time.
	EngineElapsed = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridflow_engine_reported_seconds",
			Help:    "Engine-reported evaluation time per request",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 1},
		},
		[]string{"kind"},
	)

	// StaleResponsesTotal counts responses discarded because a newer request
	// superseded them. Discards are normal under rapid editing, never errors.
	StaleResponsesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridflow_stale_responses_total",
			Help: "Responses discarded by the last-request-wins rule",
		},
	)

	// ValueMapSize tracks the number of node values currently held.
	ValueMapSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gridflow_value_map_size",
			Help: "Number of entries in the cumulative value map",
		},
	)

	// NodesEvaluated counts nodes the engine evaluated on our behalf.
	NodesEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridflow_nodes_evaluated_total",
			Help: "Total nodes evaluated across all accepted responses",
		},
	)

	// PartialResults counts accepted responses flagged as partial.
	PartialResults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridflow_partial_results_total",
			Help: "Accepted engine responses flagged partial",
		},
	)
)
