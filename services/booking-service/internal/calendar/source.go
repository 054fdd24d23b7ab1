// Package calendar gathers the busy time of an expert from the local
// bookings table and from connected external calendars.
package calendar

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/model"
	"golang.org/x/sync/errgroup"
)

// BusySource reports intervals in [from, until) during which an expert
// cannot be booked.
type BusySource interface {
	Busy(ctx context.Context, expertID string, from, until time.Time) ([]availability.Interval, error)
}

// BookedLister is the part of the booking repository BookingSource reads.
type BookedLister interface {
	ListBookedIntervals(ctx context.Context, expertID string, start, end time.Time) ([]model.Appointment, error)
}

// BookingSource turns booked appointments into busy intervals.
type BookingSource struct {
	repo BookedLister
}

func NewBookingSource(repo BookedLister) *BookingSource {
	return &BookingSource{repo: repo}
}

func (s *BookingSource) Busy(ctx context.Context, expertID string, from, until time.Time) ([]availability.Interval, error) {
	appts, err := s.repo.ListBookedIntervals(ctx, expertID, from, until)
	if err != nil {
		return nil, err
	}
	out := make([]availability.Interval, 0, len(appts))
	for _, a := range appts {
		out = append(out, availability.Interval{Start: a.StartTime, End: a.EndTime})
	}
	return out, nil
}

// BusyResult is the merged busy time of an expert. Degraded is set when the
// external calendar could not be read and only local bookings are included.
type BusyResult struct {
	Intervals []availability.Interval
	Degraded  bool
}

// Combined merges local bookings with an optional external calendar. Local
// bookings are authoritative: their failure fails the call. A calendar
// failure is logged, recorded and tolerated.
type Combined struct {
	bookings BusySource
	external BusySource
	health   *HealthMonitor
	metrics  *metrics.BookingMetrics
	logger   *slog.Logger
}

func NewCombined(bookings, external BusySource, health *HealthMonitor, m *metrics.BookingMetrics, logger *slog.Logger) *Combined {
	return &Combined{bookings: bookings, external: external, health: health, metrics: m, logger: logger}
}

func (c *Combined) Busy(ctx context.Context, expertID string, from, until time.Time) (BusyResult, error) {
	var local, external []availability.Interval
	var externalErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		local, err = c.bookings.Busy(gctx, expertID, from, until)
		return err
	})
	if c.external != nil {
		g.Go(func() error {
			external, externalErr = c.external.Busy(gctx, expertID, from, until)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BusyResult{}, err
	}

	res := BusyResult{Intervals: local}
	if c.external != nil {
		ok := externalErr == nil
		c.health.Record(ctx, ok)
		if ok {
			c.metrics.ObserveCalendarFetch("ok")
			res.Intervals = append(res.Intervals, external...)
		} else {
			c.metrics.ObserveCalendarFetch("error")
			c.logger.Warn("external calendar unavailable; using local bookings only", "expert_id", expertID, "err", externalErr)
			res.Degraded = true
		}
	}
	sort.Slice(res.Intervals, func(i, j int) bool { return res.Intervals[i].Start.Before(res.Intervals[j].Start) })
	return res, nil
}
