// Package telemetry provides logging and Prometheus metrics for the vesting
// program.
//
// Metrics are registered against a caller-supplied registry, never the
// global default, so tests and concurrent programs do not collide.
//
//   - vesting_operations_total{operation, outcome}: every executed instruction,
//     labelled by its journal outcome ("ok" or an error code)
//   - vesting_claimed_tokens_total: base units transferred out of custody
//   - vesting_claim_amount: distribution of individual claim sizes
//
// A CLI run is short-lived, so metrics are exported by writing the text
// exposition format to a file for a node-exporter textfile collector.
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records program activity. It implements vesting.Recorder.
type Metrics struct {
	operations  *prometheus.CounterVec
	claimed     prometheus.Counter
	claimAmount prometheus.Histogram
}

// NewMetrics registers the vesting metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vesting",
				Name:      "operations_total",
				Help:      "Executed vesting instructions, by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		claimed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vesting",
			Name:      "claimed_tokens_total",
			Help:      "Token base units transferred from custody to beneficiaries.",
		}),
		claimAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vesting",
			Name:      "claim_amount",
			Help:      "Size of individual claims in token base units.",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 12),
		}),
	}
}

// Operation counts one executed instruction.
func (m *Metrics) Operation(name, outcome string) {
	m.operations.WithLabelValues(name, outcome).Inc()
}

// Claimed records a successful claim.
func (m *Metrics) Claimed(amount uint64) {
	m.claimed.Add(float64(amount))
	m.claimAmount.Observe(float64(amount))
}

// WriteTextfile writes everything in g to path in the Prometheus text format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
