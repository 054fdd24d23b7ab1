package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/elevacare/libs/db"
	"github.com/md-rashed-zaman/elevacare/libs/outbox"
	"github.com/md-rashed-zaman/elevacare/libs/schedule"
	"github.com/md-rashed-zaman/elevacare/libs/schedulingv1"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type Repository struct {
	pool   db.Querier
	outbox *outbox.Repository
}

func NewRepository(pool db.Querier, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

func (r *Repository) GetSchedule(ctx context.Context, expertID string) (*schedule.Schedule, error) {
	s := &schedule.Schedule{OwnerID: expertID}
	err := r.pool.QueryRow(ctx, `
		SELECT timezone
		FROM expert_schedules
		WHERE expert_id = $1
	`, expertID).Scan(&s.Timezone)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT day_of_week, start_time, end_time
		FROM schedule_availabilities
		WHERE expert_id = $1
		ORDER BY day_of_week, start_time
	`, expertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var w schedule.Window
		if err := rows.Scan(&w.DayOfWeek, &w.StartTime, &w.EndTime); err != nil {
			return nil, err
		}
		s.Windows = append(s.Windows, w)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return s, nil
}

// ReplaceSchedule stores s as the expert's whole schedule and records a
// schedule-updated event in the same transaction. s must already be valid.
func (r *Repository) ReplaceSchedule(ctx context.Context, s *schedule.Schedule) error {
	windows := make([]schedule.ParsedWindow, 0, len(s.Windows))
	for _, w := range s.Windows {
		pw, err := w.Parse()
		if err != nil {
			return fmt.Errorf("window %s %s-%s: %w", w.DayOfWeek, w.StartTime, w.EndTime, err)
		}
		windows = append(windows, pw)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO expert_schedules (expert_id, timezone)
		VALUES ($1, $2)
		ON CONFLICT (expert_id) DO UPDATE
		SET timezone = EXCLUDED.timezone,
			updated_at = now()
	`, s.OwnerID, s.Timezone); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM schedule_availabilities WHERE expert_id = $1`, s.OwnerID); err != nil {
		return err
	}

	stored := &schedule.Schedule{OwnerID: s.OwnerID, Timezone: s.Timezone}
	for _, pw := range windows {
		w := schedule.Window{
			DayOfWeek: strings.ToLower(pw.Day.String()),
			StartTime: pw.Start.String(),
			EndTime:   pw.End.String(),
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO schedule_availabilities (expert_id, day_of_week, start_time, end_time)
			VALUES ($1, $2, $3, $4)
		`, s.OwnerID, w.DayOfWeek, w.StartTime, w.EndTime); err != nil {
			return err
		}
		stored.Windows = append(stored.Windows, w)
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "schedule",
		AggregateID:   s.OwnerID,
		EventType:     outbox.EventScheduleUpdated,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) CreateEvent(ctx context.Context, evt schedulingv1.Event) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO expert_events (id, expert_id, slug, name, duration_minutes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, evt.ExpertID, evt.Slug, evt.Name, evt.DurationMinutes, evt.Active)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", err
	}
	return id, nil
}

func (r *Repository) GetEvent(ctx context.Context, eventID string) (schedulingv1.Event, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return schedulingv1.Event{}, ErrNotFound
	}
	var evt schedulingv1.Event
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, expert_id, slug, name, duration_minutes, is_active
		FROM expert_events
		WHERE id = $1
	`, eventID).Scan(&evt.ID, &evt.ExpertID, &evt.Slug, &evt.Name, &evt.DurationMinutes, &evt.Active)
	if err != nil {
		if db.IsNoRows(err) {
			return schedulingv1.Event{}, ErrNotFound
		}
		return schedulingv1.Event{}, err
	}
	return evt, nil
}

func (r *Repository) ListEvents(ctx context.Context, expertID string) ([]schedulingv1.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, expert_id, slug, name, duration_minutes, is_active
		FROM expert_events
		WHERE expert_id = $1
		ORDER BY created_at DESC
	`, expertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedulingv1.Event
	for rows.Next() {
		var evt schedulingv1.Event
		if err := rows.Scan(&evt.ID, &evt.ExpertID, &evt.Slug, &evt.Name, &evt.DurationMinutes, &evt.Active); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
