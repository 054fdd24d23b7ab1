package handlers

import (
	"context"
	"net/http"

	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/calendar"
)

type HealthReporter interface {
	Status(ctx context.Context) (calendar.HealthStatus, error)
}

// CalendarHealth reports the external calendar success rate over the
// monitor's window.
func CalendarHealth(monitor HealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		st, err := monitor.Status(r.Context())
		if err != nil {
			http.Error(w, "health unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
