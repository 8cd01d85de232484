// Package metrics exposes Prometheus collectors for the delivery daemon.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "recall"

// Delivery results.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Prune reasons.
const (
	ReasonSettled = "settled"
	ReasonStale   = "stale"
)

// Metrics holds the daemon's collectors.
type Metrics struct {
	activations  *prometheus.CounterVec
	deliveries   *prometheus.CounterVec
	pruned       *prometheus.CounterVec
	backlog      prometheus.Gauge
	scanDuration prometheus.Histogram
}

// MustNewMetrics creates the collectors and registers them with reg, or
// with the default registerer when reg is nil. Collectors already
// registered under the same name are reused; any other registration error
// panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		activations: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "daemon",
			Name:      "activations_total",
			Help:      "Daemon activations by trigger.",
		}, []string{"trigger"})),
		deliveries: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catchup",
			Name:      "deliveries_total",
			Help:      "Recall deliveries attempted by the catch-up scan, by result.",
		}, []string{"result"})),
		pruned: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "janitor",
			Name:      "pruned_total",
			Help:      "Schedule records deleted by the retention janitor, by reason.",
		}, []string{"reason"})),
		backlog: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catchup",
			Name:      "backlog",
			Help:      "Overdue records found by the most recent scan.",
		})),
		scanDuration: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catchup",
			Name:      "scan_duration_seconds",
			Help:      "Time spent in a catch-up scan.",
			Buckets:   prometheus.DefBuckets,
		})),
	}
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Activation counts one daemon activation.
func (m *Metrics) Activation(trigger string) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(trigger).Inc()
}

// Delivery counts one delivery attempt.
func (m *Metrics) Delivery(result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(result).Inc()
}

// Pruned adds n deleted records for reason.
func (m *Metrics) Pruned(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pruned.WithLabelValues(reason).Add(float64(n))
}

// Scan records a finished scan and the backlog it found.
func (m *Metrics) Scan(found int, d time.Duration) {
	if m == nil {
		return
	}
	m.backlog.Set(float64(found))
	m.scanDuration.Observe(d.Seconds())
}
