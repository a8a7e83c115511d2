package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Walk outcomes.
const (
	OutcomeSatisfied = "satisfied"
	OutcomeTruncated = "truncated"
	OutcomeStalled   = "stalled"
	OutcomeError     = "error"
)

// Prometheus metrics for bulk selection.
var (
	bulkWalksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_bulk_walks_total",
		Help: "Total bulk-select walks by outcome",
	}, []string{"outcome"})

	bulkPagesConsumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_bulk_pages_consumed_total",
		Help: "Total pages a bulk-select quota selected records on",
	})

	selectedRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_selected_records",
		Help: "Records currently selected across all open sessions",
	})
)
