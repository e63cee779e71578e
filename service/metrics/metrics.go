package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Solana RPC metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Confirmation polling metrics
	pollQueriesTotal     *prometheus.CounterVec
	pollOutcomesTotal    *prometheus.CounterVec
	confirmationDuration *prometheus.HistogramVec

	// Transfer metrics
	transfersSubmittedTotal *prometheus.CounterVec
	snapshotsFetchedTotal   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		pollQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confirmation_poll_queries_total",
				Help: "Total number of signature status queries issued by the poller",
			},
			[]string{"endpoint"},
		),
		pollOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confirmation_poll_outcomes_total",
				Help: "Terminal confirmation poll outcomes by status",
			},
			[]string{"status"},
		),
		confirmationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "confirmation_duration_seconds",
				Help:    "Time from submission to a terminal confirmation state",
				Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90},
			},
			[]string{"status"},
		),
		transfersSubmittedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfers_submitted_total",
				Help: "Total number of transfer submissions by result",
			},
			[]string{"status"},
		),
		snapshotsFetchedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "account_snapshots_fetched_total",
				Help: "Total number of account snapshot fetches by result",
			},
			[]string{"status"},
		),
	}
}

// RecordRPCCall records a Solana RPC call with its duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordPollQuery records one signature status query issued by the poller.
func (m *Metrics) RecordPollQuery(endpoint string) {
	if m == nil {
		return
	}
	m.pollQueriesTotal.WithLabelValues(endpoint).Inc()
}

// RecordPollOutcome records the terminal state a poll reached and how long
// it took to get there.
func (m *Metrics) RecordPollOutcome(status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.pollOutcomesTotal.WithLabelValues(status).Inc()
	m.confirmationDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordTransferSubmitted records a transfer submission attempt.
func (m *Metrics) RecordTransferSubmitted(status string) {
	if m == nil {
		return
	}
	m.transfersSubmittedTotal.WithLabelValues(status).Inc()
}

// RecordSnapshotFetched records an account snapshot fetch attempt.
func (m *Metrics) RecordSnapshotFetched(status string) {
	if m == nil {
		return
	}
	m.snapshotsFetchedTotal.WithLabelValues(status).Inc()
}
