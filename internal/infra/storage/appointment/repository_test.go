package appointment

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	"github.com/m04kA/SMC-ScheduleService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ScheduleService/pkg/ptr"
)

var (
	now   = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	start = time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	end   = start.Add(30 * time.Minute)
)

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func apptRow(id int64, status domain.AppointmentStatus) []driver.Value {
	return []driver.Value{id, int64(7), int64(42), "consultation", start, end, string(status), nil, nil, nil, now, now}
}

func TestRepository_Create(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO appointments")).
		WithArgs(int64(7), int64(42), "consultation", start, end, "SCHEDULED", "first visit").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(5), now, now))

	created, err := repo.Create(context.Background(), &domain.Appointment{
		DoctorID:  7,
		PatientID: 42,
		Type:      "consultation",
		StartTime: start,
		EndTime:   end,
		Status:    domain.StatusScheduled,
		Notes:     ptr.Ptr("first visit"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create_ExclusionViolation(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO appointments")).
		WillReturnError(&pq.Error{Code: "23P01"})

	_, err := repo.Create(context.Background(), &domain.Appointment{DoctorID: 7, StartTime: start, EndTime: end})
	assert.ErrorIs(t, err, ErrOverlap)
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE id = \\$1").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestRepository_ListActiveOverlapping_LocksInsideTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE doctor_id = $1 AND status IN ($2,$3,$4,$5) AND start_time < $6 AND end_time > $7 ORDER BY start_time ASC FOR UPDATE")).
		WithArgs(int64(7), "SCHEDULED", "CONFIRMED", "CHECKED_IN", "IN_PROGRESS", end, start).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(apptRow(1, domain.StatusConfirmed)...))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	ctx := dbmetrics.WithTx(context.Background(), &dbmetrics.SqlTxWrapper{Tx: tx})

	appointments, err := repo.ListActiveOverlapping(ctx, 7, start, end)
	require.NoError(t, err)
	require.Len(t, appointments, 1)
	assert.Equal(t, domain.StatusConfirmed, appointments[0].Status)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListInRange(t *testing.T) {
	repo, mock := newMock(t)
	from := start.Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, 1)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE doctor_id = $1 AND start_time >= $2 AND start_time < $3 AND status IN")).
		WithArgs(int64(7), from, to, "SCHEDULED", "CONFIRMED", "CHECKED_IN", "IN_PROGRESS").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(apptRow(1, domain.StatusScheduled)...).
			AddRow(apptRow(2, domain.StatusCheckedIn)...))

	appointments, err := repo.ListInRange(context.Background(), 7, from, to, true)
	require.NoError(t, err)
	assert.Len(t, appointments, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListActiveInScope(t *testing.T) {
	t.Run("weekday without date bound", func(t *testing.T) {
		repo, mock := newMock(t)

		mock.ExpectQuery(regexp.QuoteMeta("EXTRACT(DOW FROM start_time AT TIME ZONE $6) = $7")).
			WithArgs(int64(7), "SCHEDULED", "CONFIRMED", "CHECKED_IN", "IN_PROGRESS", "Europe/Moscow", 1).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(apptRow(1, domain.StatusScheduled)...))

		appointments, err := repo.ListActiveInScope(context.Background(),
			domain.RuleScope{DoctorID: 7, IsRecurring: true, DayOfWeek: 1}, "Europe/Moscow")
		require.NoError(t, err)
		assert.Len(t, appointments, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("specific date", func(t *testing.T) {
		repo, mock := newMock(t)

		mock.ExpectQuery(regexp.QuoteMeta("(start_time AT TIME ZONE $6)::date = $7")).
			WithArgs(int64(7), "SCHEDULED", "CONFIRMED", "CHECKED_IN", "IN_PROGRESS", "UTC", "2025-01-06").
			WillReturnRows(sqlmock.NewRows(columns))

		appointments, err := repo.ListActiveInScope(context.Background(),
			domain.RuleScope{DoctorID: 7, DayOfWeek: 1, Date: "2025-01-06"}, "UTC")
		require.NoError(t, err)
		assert.Empty(t, appointments)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_UpdateStatus(t *testing.T) {
	t.Run("cancel stores reason", func(t *testing.T) {
		repo, mock := newMock(t)
		row := apptRow(1, domain.StatusCancelled)
		row[8] = "patient request"
		row[9] = now

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE appointments SET status = $1, updated_at = NOW(), cancellation_reason = $2, cancelled_at = NOW() WHERE id = $3 RETURNING")).
			WithArgs("CANCELLED", "patient request", int64(1)).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(row...))

		appt, err := repo.UpdateStatus(context.Background(), 1, domain.StatusCancelled, ptr.Ptr("patient request"))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, appt.Status)
		require.NotNil(t, appt.CancellationReason)
		assert.Equal(t, "patient request", *appt.CancellationReason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMock(t)

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE appointments SET status = $1")).
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.UpdateStatus(context.Background(), 404, domain.StatusConfirmed, nil)
		assert.ErrorIs(t, err, ErrAppointmentNotFound)
	})
}
