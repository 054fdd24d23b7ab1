package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics covers slot resolution, calendar fetches and bookings.
type BookingMetrics struct {
	resolutions     *prometheus.HistogramVec
	resolveDuration prometheus.Histogram
	calendarFetches *prometheus.CounterVec
	bookings        *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		resolutions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "elevacare",
			Subsystem: "availability",
			Name:      "resolution_size",
			Help:      "Candidate and accepted slot counts per resolution",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"kind"}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "elevacare",
			Subsystem: "availability",
			Name:      "resolve_duration_seconds",
			Help:      "Time spent resolving available slots",
			Buckets:   prometheus.DefBuckets,
		}),
		calendarFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elevacare",
			Subsystem: "calendar",
			Name:      "fetches_total",
			Help:      "External calendar busy-time fetches by outcome",
		}, []string{"outcome"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elevacare",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Booking requests by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.resolutions, m.resolveDuration, m.calendarFetches, m.bookings)
	return m
}

func (m *BookingMetrics) ObserveResolution(candidates, accepted int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues("candidates").Observe(float64(candidates))
	m.resolutions.WithLabelValues("accepted").Observe(float64(accepted))
	m.resolveDuration.Observe(elapsed.Seconds())
}

func (m *BookingMetrics) ObserveCalendarFetch(outcome string) {
	if m == nil {
		return
	}
	m.calendarFetches.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
}
