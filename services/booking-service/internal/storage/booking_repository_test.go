package storage

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/model"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var appointmentCols = []string{
	"id", "expert_id", "event_id", "customer_name", "customer_email",
	"start_time", "end_time", "status", "cancelled_at", "cancellation_reason", "created_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestListBookedIntervals(t *testing.T) {
	mock := newMock(t)
	repo := NewBookingRepository(mock)

	start := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	mock.ExpectQuery("FROM appointments").
		WithArgs("expert-1", start, end).
		WillReturnRows(pgxmock.NewRows(appointmentCols).
			AddRow("a-1", "expert-1", "evt-1", "Ana", "ana@example.com",
				start.Add(time.Hour), start.Add(2*time.Hour), model.StatusBooked, (*time.Time)(nil), "", start))

	appts, err := repo.ListBookedIntervals(context.Background(), "expert-1", start, end)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	require.Equal(t, start.Add(time.Hour), appts[0].StartTime)
	require.Nil(t, appts[0].CancelledAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReportsConflict(t *testing.T) {
	mock := newMock(t)
	repo := NewBookingRepository(mock)

	start := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs("expert-1", "evt-1", "Ana", "", start, start.Add(30*time.Minute), model.StatusBooked).
		WillReturnError(&pgconn.PgError{Code: "23P01"})
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	_, err = repo.Create(ctx, tx, &model.Appointment{
		ExpertID:     "expert-1",
		EventID:      "evt-1",
		CustomerName: "Ana",
		StartTime:    start,
		EndTime:      start.Add(30 * time.Minute),
		Status:       model.StatusBooked,
	})
	require.True(t, IsConflict(err))
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockIdempotencyKeyCreatesRow(t *testing.T) {
	mock := newMock(t)
	repo := NewBookingRepository(mock)
	idemCols := []string{"expert_id", "idempotency_key", "appointment_id", "status_code", "response_payload"}

	mock.ExpectBegin()
	mock.ExpectQuery("FROM booking_idempotency_keys").
		WithArgs("expert-1", "key-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO booking_idempotency_keys").
		WithArgs("expert-1", "key-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM booking_idempotency_keys").
		WithArgs("expert-1", "key-1").
		WillReturnRows(pgxmock.NewRows(idemCols).AddRow("expert-1", "key-1", "", 0, ""))

	ctx := context.Background()
	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	rec, exists, err := repo.LockIdempotencyKey(ctx, tx, "expert-1", "key-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.Equal(t, 0, rec.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAppointmentForUpdateNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewBookingRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a-404", "expert-1").
		WillReturnError(pgx.ErrNoRows)

	ctx := context.Background()
	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	_, err = repo.GetAppointmentForUpdate(ctx, tx, "expert-1", "a-404")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCalendarTokenMissingIsNotAnError(t *testing.T) {
	mock := newMock(t)
	repo := NewCalendarTokenRepository(mock)

	mock.ExpectQuery("FROM expert_calendar_tokens").
		WithArgs("expert-1").
		WillReturnError(pgx.ErrNoRows)

	tok, err := repo.Token(context.Background(), "expert-1")
	require.NoError(t, err)
	require.Nil(t, tok)
}

func TestCalendarTokenRoundTrip(t *testing.T) {
	mock := newMock(t)
	repo := NewCalendarTokenRepository(mock)
	expiry := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO expert_calendar_tokens").
		WithArgs("expert-1", "access", "refresh", "Bearer", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM expert_calendar_tokens").
		WithArgs("expert-1").
		WillReturnRows(pgxmock.NewRows([]string{"access_token", "refresh_token", "token_type", "expires_at"}).
			AddRow("access", "refresh", "Bearer", &expiry))

	ctx := context.Background()
	require.NoError(t, repo.SaveToken(ctx, "expert-1", &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       expiry,
	}))
	tok, err := repo.Token(ctx, "expert-1")
	require.NoError(t, err)
	require.Equal(t, "access", tok.AccessToken)
	require.True(t, tok.Expiry.Equal(expiry))
	require.NoError(t, mock.ExpectationsWereMet())
}
