package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSchedulingMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)
	m.ObserveScheduleWrite("ok")
	m.ObserveScheduleWrite("ok")
	m.ObserveScheduleWrite("invalid")
	m.ObserveLookup("GetSchedule", "not_found")

	if got := testutil.ToFloat64(m.scheduleWrites.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected 2 ok writes, got %v", got)
	}
	if got := testutil.CollectAndCount(m.lookups); got != 1 {
		t.Fatalf("expected 1 lookup series, got %d", got)
	}
}

func TestSchedulingMetricsNilSafe(t *testing.T) {
	var m *SchedulingMetrics
	m.ObserveScheduleWrite("ok")
	m.ObserveLookup("GetEvent", "ok")
}
