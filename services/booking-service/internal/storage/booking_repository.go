package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/elevacare/libs/db"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/model"
)

var ErrNotFound = errors.New("appointment not found")

type BookingRepository struct {
	pool db.Querier
}

type IdempotencyRecord struct {
	ExpertID        string
	IdempotencyKey  string
	AppointmentID   string
	StatusCode      int
	ResponsePayload []byte
}

func NewBookingRepository(pool db.Querier) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// LockIdempotencyKey returns the stored record for key, creating and locking
// an empty one when the key is new. exists reports whether the row was there
// before the call.
func (r *BookingRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, expertID, key string) (rec IdempotencyRecord, exists bool, err error) {
	rec, err = r.selectIdempotencyForUpdate(ctx, tx, expertID, key)
	if err == nil {
		return rec, true, nil
	}
	if !db.IsNoRows(err) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (expert_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (expert_id, idempotency_key) DO NOTHING
	`, expertID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, expertID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *BookingRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, expertID, key, appointmentID string, statusCode int, response []byte) error {
	var apptID any
	if appointmentID != "" {
		apptID = appointmentID
	}
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE expert_id = $1 AND idempotency_key = $2
	`, expertID, key, apptID, statusCode, response)
	return err
}

func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(expert_id, event_id, customer_name, customer_email, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text
	`, appt.ExpertID, appt.EventID, appt.CustomerName, appt.CustomerEmail,
		appt.StartTime, appt.EndTime, appt.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

const appointmentColumns = `id::text, expert_id, event_id, customer_name, customer_email,
	start_time, end_time, status, cancelled_at, COALESCE(cancellation_reason, ''), created_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.ExpertID,
		&appt.EventID,
		&appt.CustomerName,
		&appt.CustomerEmail,
		&appt.StartTime,
		&appt.EndTime,
		&appt.Status,
		&appt.CancelledAt,
		&appt.CancelReason,
		&appt.CreatedAt,
	)
	return appt, err
}

func (r *BookingRepository) GetAppointmentForUpdate(ctx context.Context, tx pgx.Tx, expertID, appointmentID string) (model.Appointment, error) {
	appt, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id::text = $1 AND expert_id = $2
		FOR UPDATE
	`, appointmentID, expertID))
	if err != nil {
		if db.IsNoRows(err) {
			return model.Appointment{}, ErrNotFound
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *BookingRepository) CancelAppointment(ctx context.Context, tx pgx.Tx, expertID, appointmentID, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = now(),
			cancellation_reason = $3
		WHERE id::text = $1 AND expert_id = $2
		RETURNING cancelled_at
	`, appointmentID, expertID, reason).Scan(&cancelledAt)
	return cancelledAt, err
}

// ListBookedIntervals returns booked appointments of the expert overlapping
// [start, end). Cancelled appointments do not block time.
func (r *BookingRepository) ListBookedIntervals(ctx context.Context, expertID string, start, end time.Time) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE expert_id = $1
			AND status = 'booked'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, expertID, start, end)
}

func (r *BookingRepository) ListByExpert(ctx context.Context, expertID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE expert_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, expertID, limit)
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// IsConflict reports an overlapping booking rejected by the exclusion constraint.
func IsConflict(err error) bool {
	return db.IsExclusionViolation(err)
}

func (r *BookingRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, expertID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT expert_id,
			idempotency_key,
			COALESCE(appointment_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE expert_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, expertID, key).Scan(
		&rec.ExpertID,
		&rec.IdempotencyKey,
		&rec.AppointmentID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}
