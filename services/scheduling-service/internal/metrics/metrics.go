package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics counts schedule writes and lookups.
type SchedulingMetrics struct {
	scheduleWrites *prometheus.CounterVec
	lookups        *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		scheduleWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elevacare",
			Subsystem: "scheduling",
			Name:      "schedule_writes_total",
			Help:      "Schedule replace requests by outcome",
		}, []string{"outcome"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elevacare",
			Subsystem: "scheduling",
			Name:      "lookups_total",
			Help:      "Schedule and event lookups by method and outcome",
		}, []string{"method", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.scheduleWrites, m.lookups)
	return m
}

func (m *SchedulingMetrics) ObserveScheduleWrite(outcome string) {
	if m == nil {
		return
	}
	m.scheduleWrites.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveLookup(method, outcome string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(method, outcome).Inc()
}
