// Package observability exposes Prometheus metrics for the swap engine.
// Counters live here as package-level promauto vars; the API server mounts
// the /metrics handler.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Swap Lifecycle Metrics ─────────────────────────────────────────────────

// SwapsCreated counts swap requests entering the ledger.
var SwapsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "rewear",
	Subsystem: "swaps",
	Name:      "created_total",
	Help:      "Total swap requests created.",
})

// SwapTransitions counts committed status transitions by target status.
var SwapTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rewear",
	Subsystem: "swaps",
	Name:      "transitions_total",
	Help:      "Total committed swap status transitions by target status.",
}, []string{"to"})

// SwapsRejected counts operations refused by the ledger, by failure kind.
var SwapsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rewear",
	Subsystem: "swaps",
	Name:      "rejected_total",
	Help:      "Total swap operations refused, by failure kind.",
}, []string{"reason"})

// ─── Points Metrics ─────────────────────────────────────────────────────────

// PointsCredited counts points credited, by reward reason.
var PointsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rewear",
	Subsystem: "points",
	Name:      "credited_total",
	Help:      "Total points credited to members, by reward reason.",
}, []string{"reason"})

// ─── Shipping Metrics ───────────────────────────────────────────────────────

// CourierQuoteCost observes the total cost of every quote produced.
var CourierQuoteCost = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "rewear",
	Subsystem: "shipping",
	Name:      "quote_cost",
	Help:      "Total cost of produced courier quotes.",
	Buckets:   []float64{25, 50, 75, 100, 150, 200, 300},
})
