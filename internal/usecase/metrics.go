package usecase

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	prometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "market"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Operations by op and outcome ("ok" or the rejection code).
	Operations metrics.Counter
	// Number of active listings.
	Listings metrics.Gauge
	// Purchases rolled back after a collaborator failure.
	Rollbacks metrics.Counter
	// Notifications that failed to publish.
	PublishFailures metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	opLabels := append(append([]string{}, labels...), "op", "outcome")
	return &Metrics{
		Operations: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "operations_total",
			Help:      "Number of listing operations by op and outcome.",
		}, opLabels).With(labelsAndValues...),
		Listings: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "listings",
			Help:      "Number of active listings.",
		}, labels).With(labelsAndValues...),
		Rollbacks: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "purchase_rollbacks_total",
			Help:      "Number of purchases rolled back after a collaborator failure.",
		}, labels).With(labelsAndValues...),
		PublishFailures: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "publish_failures_total",
			Help:      "Number of notifications that failed to publish.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Operations:      discard.NewCounter(),
		Listings:        discard.NewGauge(),
		Rollbacks:       discard.NewCounter(),
		PublishFailures: discard.NewCounter(),
	}
}
