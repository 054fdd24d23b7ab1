package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/elevacare/libs/schedule"
	"github.com/md-rashed-zaman/elevacare/libs/schedulingv1"
	"github.com/md-rashed-zaman/elevacare/services/scheduling-service/internal/metrics"
	"github.com/md-rashed-zaman/elevacare/services/scheduling-service/internal/storage"
)

const maxEventMinutes = 8 * 60

// Store is the persistence the HTTP API needs.
type Store interface {
	GetSchedule(ctx context.Context, expertID string) (*schedule.Schedule, error)
	ReplaceSchedule(ctx context.Context, s *schedule.Schedule) error
	CreateEvent(ctx context.Context, evt schedulingv1.Event) (string, error)
	ListEvents(ctx context.Context, expertID string) ([]schedulingv1.Event, error)
}

type Handler struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.SchedulingMetrics
}

func New(store Store, logger *slog.Logger, m *metrics.SchedulingMetrics) *Handler {
	return &Handler{store: store, logger: logger, metrics: m}
}

// Routes mounts the expert API under /api/v1/experts.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1/experts/{expertID}", func(r chi.Router) {
		r.Get("/schedule", h.GetSchedule)
		r.Put("/schedule", h.PutSchedule)
		r.Get("/events", h.ListEvents)
		r.Post("/events", h.CreateEvent)
	})
	return r
}

type scheduleRequest struct {
	Timezone string            `json:"timezone"`
	Windows  []schedule.Window `json:"windows"`
}

type createEventRequest struct {
	Slug            string `json:"slug"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Active          *bool  `json:"active"`
}

func expertIDFromPath(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "expertID"))
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	expertID := expertIDFromPath(r)
	s, err := h.store.GetSchedule(r.Context(), expertID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "schedule not found", http.StatusNotFound)
			return
		}
		h.logger.Error("load schedule failed", "expert_id", expertID, "err", err)
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) PutSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	s := &schedule.Schedule{
		OwnerID:  expertIDFromPath(r),
		Timezone: strings.TrimSpace(req.Timezone),
		Windows:  req.Windows,
	}
	if err := schedule.Validate(s); err != nil {
		h.metrics.ObserveScheduleWrite("invalid")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": schedule.Problems(err)})
		return
	}
	if err := h.store.ReplaceSchedule(r.Context(), s); err != nil {
		h.metrics.ObserveScheduleWrite("error")
		h.logger.Error("replace schedule failed", "expert_id", s.OwnerID, "err", err)
		http.Error(w, "failed to save schedule", http.StatusInternalServerError)
		return
	}
	h.metrics.ObserveScheduleWrite("ok")
	h.logger.Info("schedule replaced", "expert_id", s.OwnerID, "windows", len(s.Windows))
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Slug = strings.TrimSpace(req.Slug)
	req.Name = strings.TrimSpace(req.Name)
	if req.Slug == "" || req.Name == "" {
		http.Error(w, "slug and name are required", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes <= 0 || req.DurationMinutes > maxEventMinutes {
		http.Error(w, "duration_minutes must be between 1 and 480", http.StatusBadRequest)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	id, err := h.store.CreateEvent(r.Context(), schedulingv1.Event{
		ExpertID:        expertIDFromPath(r),
		Slug:            req.Slug,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		Active:          active,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			http.Error(w, "event slug already exists", http.StatusConflict)
			return
		}
		h.logger.Error("create event failed", "err", err)
		http.Error(w, "failed to create event", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"event_id": id})
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.ListEvents(r.Context(), expertIDFromPath(r))
	if err != nil {
		h.logger.Error("list events failed", "err", err)
		http.Error(w, "failed to list events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []schedulingv1.Event{}
	}
	writeJSON(w, http.StatusOK, events)
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
