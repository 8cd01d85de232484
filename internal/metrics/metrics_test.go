package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)

	m.Activation("startup")
	m.Activation("timer")
	m.Activation("timer")
	m.Delivery(ResultSent)
	m.Delivery(ResultFailed)
	m.Pruned(ReasonSettled, 3)
	m.Pruned(ReasonStale, 0)
	m.Scan(7, 150*time.Millisecond)

	if got := testutil.ToFloat64(m.activations.WithLabelValues("timer")); got != 2 {
		t.Fatalf("timer activations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.deliveries.WithLabelValues(ResultSent)); got != 1 {
		t.Fatalf("sent deliveries = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.pruned.WithLabelValues(ReasonSettled)); got != 3 {
		t.Fatalf("settled pruned = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.backlog); got != 7 {
		t.Fatalf("backlog = %v, want 7", got)
	}

	expected := `
# HELP recall_janitor_pruned_total Schedule records deleted by the retention janitor, by reason.
# TYPE recall_janitor_pruned_total counter
recall_janitor_pruned_total{reason="settled"} 3
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "recall_janitor_pruned_total"); err != nil {
		t.Fatalf("gather: %v", err)
	}
}

func TestMustNewMetrics_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNewMetrics(reg)
	second := MustNewMetrics(reg)

	first.Activation("rpc")
	if got := testutil.ToFloat64(second.activations.WithLabelValues("rpc")); got != 1 {
		t.Fatalf("expected shared collector, got %v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Activation("x")
	m.Delivery(ResultSent)
	m.Pruned(ReasonStale, 1)
	m.Scan(1, time.Second)
}
