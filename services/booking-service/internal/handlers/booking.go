package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/elevacare/libs/outbox"
	"github.com/md-rashed-zaman/elevacare/libs/schedule"
	"github.com/md-rashed-zaman/elevacare/libs/schedulingv1"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/scheduling"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/storage"
)

const maxSlotDays = 62

// BusyReader returns the merged busy time of an expert.
type BusyReader interface {
	Busy(ctx context.Context, expertID string, from, until time.Time) (calendar.BusyResult, error)
}

type Config struct {
	Step          time.Duration
	HorizonMonths int
}

type BookingHandler struct {
	repo       *storage.BookingRepository
	outboxRepo *outbox.Repository
	scheduling scheduling.Provider
	busy       BusyReader
	resolver   *availability.Resolver
	metrics    *metrics.BookingMetrics
	logger     *slog.Logger
	cfg        Config
	now        func() time.Time
}

func NewBookingHandler(repo *storage.BookingRepository, outboxRepo *outbox.Repository, schedulingProvider scheduling.Provider, busy BusyReader, m *metrics.BookingMetrics, logger *slog.Logger, cfg Config) *BookingHandler {
	if cfg.Step <= 0 {
		cfg.Step = availability.DefaultStep
	}
	if cfg.HorizonMonths <= 0 {
		cfg.HorizonMonths = availability.DefaultHorizonMonths
	}
	return &BookingHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		scheduling: schedulingProvider,
		busy:       busy,
		resolver:   availability.NewResolver(logger),
		metrics:    m,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

type createBookingRequest struct {
	EventID       string `json:"event_id"`
	StartTime     string `json:"start_time"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

type createBookingResponse struct {
	AppointmentID string `json:"appointment_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

type cancelBookingRequest struct {
	ExpertID      string `json:"expert_id"`
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type cancelBookingResponse struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at"`
}

type listAppointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	EventID       string `json:"event_id"`
	CustomerName  string `json:"customer_name"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type slotsResponse struct {
	EventID          string     `json:"event_id"`
	ExpertID         string     `json:"expert_id"`
	Timezone         string     `json:"timezone"`
	DurationMinutes  int        `json:"duration_minutes"`
	Slots            []slotItem `json:"slots"`
	NextAvailable    string     `json:"next_available,omitempty"`
	CalendarDegraded bool       `json:"calendar_degraded"`
}

// Slots lists the bookable start times of an event.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	eventID := strings.TrimSpace(q.Get("event_id"))
	if eventID == "" {
		http.Error(w, "event_id is required", http.StatusBadRequest)
		return
	}
	now := h.now()
	from := now
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return
		}
		if t.After(now) {
			from = t
		}
	}
	days := 0
	if raw := strings.TrimSpace(q.Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxSlotDays {
			http.Error(w, "days must be between 1 and 62", http.StatusBadRequest)
			return
		}
		days = n
	}

	ctx := r.Context()
	evt, ok := h.loadEvent(ctx, w, eventID)
	if !ok {
		return
	}
	sched, err := h.scheduling.GetSchedule(ctx, evt.ExpertID)
	if err != nil {
		h.logger.Error("schedule lookup failed", "expert_id", evt.ExpertID, "err", err)
		http.Error(w, "availability service unavailable", http.StatusServiceUnavailable)
		return
	}

	resp := slotsResponse{
		EventID:         evt.ID,
		ExpertID:        evt.ExpertID,
		DurationMinutes: evt.DurationMinutes,
		Slots:           []slotItem{},
	}
	if sched == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.Timezone = sched.Timezone

	loc, err := sched.Location()
	if err != nil {
		// The resolver rejects the schedule too; candidates are still
		// generated so the rejection is logged once in one place.
		loc = time.UTC
	}
	var candidates []time.Time
	if days > 0 {
		until := availability.EndOfDay(from.AddDate(0, 0, days-1), loc)
		candidates = availability.CandidatesBetween(from, until, h.cfg.Step)
	} else {
		candidates = availability.Candidates(from, loc, h.cfg.HorizonMonths, h.cfg.Step)
	}
	if len(candidates) == 0 {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	event := availability.Event{OwnerID: evt.ExpertID, DurationMinutes: evt.DurationMinutes}
	busy, err := h.busy.Busy(ctx, evt.ExpertID, candidates[0], candidates[len(candidates)-1].Add(event.Duration()))
	if err != nil {
		h.logger.Error("busy time lookup failed", "expert_id", evt.ExpertID, "err", err)
		http.Error(w, "failed to load busy time", http.StatusInternalServerError)
		return
	}
	resp.CalendarDegraded = busy.Degraded

	started := time.Now()
	starts := h.resolver.Resolve(candidates, event, sched, busy.Intervals)
	h.metrics.ObserveResolution(len(candidates), len(starts), time.Since(started))

	for _, s := range availability.ToSlots(starts, event.Duration()) {
		resp.Slots = append(resp.Slots, slotItem{
			StartTime: s.Start.UTC().Format(time.RFC3339),
			EndTime:   s.End.UTC().Format(time.RFC3339),
		})
	}
	if next, ok := availability.NextAvailable(starts); ok {
		resp.NextAvailable = next.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create books a slot. The requested start is re-checked against the
// expert's schedule and fresh busy time because slot lists go stale.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.EventID = strings.TrimSpace(req.EventID)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.EventID == "" || req.CustomerName == "" {
		http.Error(w, "event_id and customer_name are required", http.StatusBadRequest)
		return
	}
	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}
	if !startTime.After(h.now()) {
		http.Error(w, "start_time must be in the future", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	evt, ok := h.loadEvent(ctx, w, req.EventID)
	if !ok {
		return
	}
	event := availability.Event{OwnerID: evt.ExpertID, DurationMinutes: evt.DurationMinutes}
	appt := &model.Appointment{
		ExpertID:      evt.ExpertID,
		EventID:       evt.ID,
		CustomerName:  req.CustomerName,
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		StartTime:     startTime.UTC(),
		EndTime:       startTime.Add(event.Duration()).UTC(),
		Status:        model.StatusBooked,
	}

	sched, err := h.scheduling.GetSchedule(ctx, evt.ExpertID)
	if err != nil {
		h.logger.Error("schedule lookup failed", "expert_id", evt.ExpertID, "err", err)
		http.Error(w, "availability service unavailable", http.StatusServiceUnavailable)
		return
	}
	busy, err := h.busy.Busy(ctx, appt.ExpertID, appt.StartTime, appt.EndTime)
	if err != nil {
		h.logger.Error("busy time lookup failed", "expert_id", appt.ExpertID, "err", err)
		http.Error(w, "failed to load busy time", http.StatusInternalServerError)
		return
	}
	if busy.Degraded {
		h.logger.Warn("booking validated without external calendar", "expert_id", appt.ExpertID)
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.repo.LockIdempotencyKey(ctx, tx, appt.ExpertID, idempotencyKey)
		if err != nil {
			http.Error(w, "failed to lock idempotency key", http.StatusInternalServerError)
			return
		}
		if exists && rec.StatusCode > 0 {
			h.metrics.ObserveBooking("replayed")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			if len(rec.ResponsePayload) > 0 {
				_, _ = w.Write(rec.ResponsePayload)
				return
			}
			_ = json.NewEncoder(w).Encode(createBookingResponse{AppointmentID: rec.AppointmentID})
			return
		}
	}

	if accepted := h.resolver.Resolve([]time.Time{appt.StartTime}, event, sched, busy.Intervals); len(accepted) == 0 {
		h.metrics.ObserveBooking("unavailable")
		const msg = "requested time is no longer available"
		if idempotencyKey != "" && h.finalizeIdempotencyError(ctx, tx, appt.ExpertID, idempotencyKey, http.StatusUnprocessableEntity, msg) {
			_ = tx.Commit(ctx)
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": msg})
			return
		}
		http.Error(w, msg, http.StatusUnprocessableEntity)
		return
	}

	id, err := h.repo.Create(ctx, tx, appt)
	if err != nil {
		if storage.IsConflict(err) {
			h.metrics.ObserveBooking("conflict")
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		h.logger.Error("create appointment failed", "err", err)
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}

	evtPayload, err := json.Marshal(map[string]any{
		"appointment_id": id,
		"expert_id":      appt.ExpertID,
		"event_id":       appt.EventID,
		"customer_name":  appt.CustomerName,
		"customer_email": appt.CustomerEmail,
		"start_time":     appt.StartTime.Format(time.RFC3339),
		"end_time":       appt.EndTime.Format(time.RFC3339),
		"timezone":       timezoneOf(sched),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   id,
		EventType:     outbox.EventAppointmentBooked,
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	respBody, err := json.Marshal(createBookingResponse{
		AppointmentID: id,
		StartTime:     appt.StartTime.Format(time.RFC3339),
		EndTime:       appt.EndTime.Format(time.RFC3339),
	})
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	if idempotencyKey != "" {
		if err := h.repo.FinalizeIdempotency(ctx, tx, appt.ExpertID, idempotencyKey, id, http.StatusCreated, respBody); err != nil {
			http.Error(w, "failed to finalize idempotency key", http.StatusInternalServerError)
			return
		}
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	h.metrics.ObserveBooking("created")
	h.logger.Info("appointment booked", "appointment_id", id, "expert_id", appt.ExpertID, "start_time", appt.StartTime)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(respBody)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ExpertID = strings.TrimSpace(req.ExpertID)
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.ExpertID == "" || req.AppointmentID == "" {
		http.Error(w, "expert_id and appointment_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.repo.GetAppointmentForUpdate(ctx, tx, req.ExpertID, req.AppointmentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}

	if appt.Status == model.StatusCancelled && appt.CancelledAt != nil {
		writeJSON(w, http.StatusOK, cancelResponse(appt.ID, *appt.CancelledAt))
		return
	}
	if appt.Status != model.StatusBooked {
		http.Error(w, "appointment cannot be cancelled", http.StatusConflict)
		return
	}

	cancelledAt, err := h.repo.CancelAppointment(ctx, tx, req.ExpertID, appt.ID, req.Reason)
	if err != nil {
		http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		return
	}

	cancelPayload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"expert_id":      appt.ExpertID,
		"event_id":       appt.EventID,
		"start_time":     appt.StartTime.UTC().Format(time.RFC3339),
		"end_time":       appt.EndTime.UTC().Format(time.RFC3339),
		"cancelled_at":   cancelledAt.UTC().Format(time.RFC3339),
		"reason":         req.Reason,
	})
	if err != nil {
		http.Error(w, "failed to build cancellation event", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     outbox.EventAppointmentCancelled,
		Payload:       cancelPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse(appt.ID, cancelledAt))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	expertID := strings.TrimSpace(r.Header.Get("X-Expert-Id"))
	if expertID == "" {
		expertID = strings.TrimSpace(r.URL.Query().Get("expert_id"))
	}
	if expertID == "" {
		http.Error(w, "expert_id required", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	appts, err := h.repo.ListByExpert(r.Context(), expertID, limit)
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]listAppointmentItem, 0, len(appts))
	for _, appt := range appts {
		item := listAppointmentItem{
			AppointmentID: appt.ID,
			EventID:       appt.EventID,
			CustomerName:  appt.CustomerName,
			StartTime:     appt.StartTime.UTC().Format(time.RFC3339),
			EndTime:       appt.EndTime.UTC().Format(time.RFC3339),
			Status:        appt.Status,
			CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
		}
		if appt.CancelledAt != nil {
			item.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

// loadEvent resolves an active event or writes the error response.
func (h *BookingHandler) loadEvent(ctx context.Context, w http.ResponseWriter, eventID string) (schedulingv1.Event, bool) {
	evt, err := h.scheduling.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, scheduling.ErrNotFound) {
			http.Error(w, "event not found", http.StatusNotFound)
			return schedulingv1.Event{}, false
		}
		h.logger.Error("event lookup failed", "event_id", eventID, "err", err)
		http.Error(w, "availability service unavailable", http.StatusServiceUnavailable)
		return schedulingv1.Event{}, false
	}
	if !evt.Active {
		http.Error(w, "event not found", http.StatusNotFound)
		return schedulingv1.Event{}, false
	}
	return evt, true
}

func (h *BookingHandler) finalizeIdempotencyError(ctx context.Context, tx pgx.Tx, expertID, key string, statusCode int, msg string) bool {
	body, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return false
	}
	if err := h.repo.FinalizeIdempotency(ctx, tx, expertID, key, "", statusCode, body); err != nil {
		h.logger.Error("failed to finalize idempotency (error)", "err", err)
		return false
	}
	return true
}

func timezoneOf(s *schedule.Schedule) string {
	if s == nil {
		return ""
	}
	return s.Timezone
}

func cancelResponse(appointmentID string, cancelledAt time.Time) cancelBookingResponse {
	return cancelBookingResponse{
		AppointmentID: appointmentID,
		Status:        model.StatusCancelled,
		CancelledAt:   cancelledAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
