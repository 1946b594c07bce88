package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risklake_build_info",
			Help: "Build information of the risklake indexer",
		},
		[]string{"version", "commit", "date"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risklake_runs_total",
			Help: "Completed batch runs per source",
		},
		[]string{"source"},
	)

	RowsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risklake_rows_inserted_total",
			Help: "Rows newly inserted per source",
		},
		[]string{"source"},
	)

	RowsSuperseded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risklake_rows_superseded_total",
			Help: "Rows superseded on natural-key collision per source",
		},
		[]string{"source"},
	)

	RecordsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risklake_records_rejected_total",
			Help: "Records excluded from the load per source and reason",
		},
		[]string{"source", "reason"},
	)
)
