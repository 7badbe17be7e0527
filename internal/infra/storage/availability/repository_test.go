package availability

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
	"github.com/m04kA/SMC-ScheduleService/pkg/types"
)

var now = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func ruleRow(id int64, dow int, start, end string, recurring bool, date interface{}) []driver.Value {
	return []driver.Value{id, int64(7), int64(dow), start, end, recurring, date, true, int64(30), int64(0), nil, now, now}
}

func TestRepository_Create(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO availability_rules")).
		WithArgs(int64(7), 1, "09:00", "17:00", true, nil, true, 30, 0, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), now, now))

	rule := &domain.AvailabilityRule{
		DoctorID:            7,
		DayOfWeek:           1,
		StartTime:           types.MustTimeOfDay("09:00"),
		EndTime:             types.MustTimeOfDay("17:00"),
		IsRecurring:         true,
		IsAvailable:         true,
		SlotDurationMinutes: 30,
	}

	created, err := repo.Create(context.Background(), rule)
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.ID)
	assert.Equal(t, now, created.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create_ExclusionViolation(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO availability_rules")).
		WillReturnError(&pq.Error{Code: "23P01", Message: "conflicting key value violates exclusion constraint"})

	date := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	_, err := repo.Create(context.Background(), &domain.AvailabilityRule{
		DoctorID:     7,
		DayOfWeek:    1,
		StartTime:    types.MustTimeOfDay("09:00"),
		EndTime:      types.MustTimeOfDay("10:00"),
		SpecificDate: &date,
	})

	assert.ErrorIs(t, err, ErrOverlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, doctor_id, day_of_week")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(ruleRow(11, 1, "09:00:00", "24:00:00", true, nil)...))

	rule, err := repo.GetByID(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, "09:00", rule.StartTime.String())
	assert.Equal(t, types.MinutesPerDay, rule.EndTime.Minutes())
	assert.Nil(t, rule.SpecificDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM availability_rules").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestRepository_GetByID_LocksInsideTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM availability_rules WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(ruleRow(11, 1, "09:00:00", "12:00:00", true, nil)...))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	ctx := dbmetrics.WithTx(context.Background(), &dbmetrics.SqlTxWrapper{Tx: tx})

	_, err = repo.GetByID(ctx, 11)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByScope(t *testing.T) {
	t.Run("recurring scope filters by weekday", func(t *testing.T) {
		repo, mock := newMock(t)

		mock.ExpectQuery("SELECT (.+) FROM availability_rules WHERE doctor_id = \\$1 AND is_recurring = \\$2 AND day_of_week = \\$3").
			WithArgs(int64(7), true, 1).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(ruleRow(1, 1, "09:00:00", "12:00:00", true, nil)...).
				AddRow(ruleRow(2, 1, "13:00:00", "17:00:00", true, nil)...))

		rules, err := repo.ListByScope(context.Background(), domain.RuleScope{DoctorID: 7, IsRecurring: true, DayOfWeek: 1})
		require.NoError(t, err)
		assert.Len(t, rules, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("date scope filters by specific date", func(t *testing.T) {
		repo, mock := newMock(t)
		date := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery("SELECT (.+) FROM availability_rules WHERE doctor_id = \\$1 AND is_recurring = \\$2 AND specific_date = \\$3").
			WithArgs(int64(7), false, "2025-01-06").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(ruleRow(3, 1, "09:00:00", "12:00:00", false, date)...))

		rules, err := repo.ListByScope(context.Background(), domain.RuleScope{DoctorID: 7, DayOfWeek: 1, Date: "2025-01-06"})
		require.NoError(t, err)
		require.Len(t, rules, 1)
		require.NotNil(t, rules[0].SpecificDate)
		assert.Equal(t, "2025-01-06", rules[0].SpecificDate.Format(domain.DateFormat))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_List_Predicate(t *testing.T) {
	repo, mock := newMock(t)
	from := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 6)

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE doctor_id = $1 AND ((is_recurring = $2 AND day_of_week = $3) OR (is_recurring = $4 AND specific_date >= $5 AND specific_date <= $6))")).
		WithArgs(int64(7), true, 1, false, "2025-01-06", "2025-01-12").
		WillReturnRows(sqlmock.NewRows(columns))

	rules, err := repo.List(context.Background(), domain.AvailabilityQuery{
		DoctorID:  7,
		Recurring: &domain.RecurringClause{DayOfWeek: ptr.Ptr(1)},
		DateRange: &domain.DateRangeClause{From: &from, To: &to},
	})
	require.NoError(t, err)
	assert.Empty(t, rules)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_List_AllRules(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM availability_rules WHERE doctor_id = \\$1 ORDER BY").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(ruleRow(1, 1, "09:00:00", "12:00:00", true, nil)...))

	rules, err := repo.List(context.Background(), domain.AvailabilityQuery{DoctorID: 7})
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestRepository_Update(t *testing.T) {
	repo, mock := newMock(t)
	later := now.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE availability_rules SET")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, later))

	rule := &domain.AvailabilityRule{
		ID:          11,
		DoctorID:    7,
		DayOfWeek:   1,
		StartTime:   types.MustTimeOfDay("09:00"),
		EndTime:     types.MustTimeOfDay("12:00"),
		IsRecurring: true,
		Notes:       ptr.Ptr("morning"),
	}
	updated, err := repo.Update(context.Background(), rule)
	require.NoError(t, err)
	assert.Equal(t, later, updated.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Update_NotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE availability_rules SET")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))

	_, err := repo.Update(context.Background(), &domain.AvailabilityRule{ID: 404, IsRecurring: true})
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestRepository_Delete(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availability_rules WHERE id = $1")).
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availability_rules WHERE id = $1")).
		WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 11))
	assert.ErrorIs(t, repo.Delete(context.Background(), 12), ErrRuleNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
