package availability

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	"github.com/m04kA/SMC-ScheduleService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ScheduleService/pkg/pgerr"
	"github.com/m04kA/SMC-ScheduleService/pkg/psqlbuilder"
)

const tableName = "availability_rules"

var columns = []string{
	"id",
	"doctor_id",
	"day_of_week",
	"start_time",
	"end_time",
	"is_recurring",
	"specific_date",
	"is_available",
	"slot_duration_minutes",
	"max_patients_per_slot",
	"notes",
	"created_at",
	"updated_at",
}

// Repository репозиторий правил доступности врачей
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория правил
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет правило. Пересечение с существующим правилом той же области
// отклоняется exclusion constraint'ом и возвращается как ErrOverlap.
func (r *Repository) Create(ctx context.Context, rule *domain.AvailabilityRule) (*domain.AvailabilityRule, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(tableName).
		Columns(
			"doctor_id",
			"day_of_week",
			"start_time",
			"end_time",
			"is_recurring",
			"specific_date",
			"is_available",
			"slot_duration_minutes",
			"max_patients_per_slot",
			"notes",
		).
		Values(
			rule.DoctorID,
			rule.DayOfWeek,
			rule.StartTime,
			rule.EndTime,
			rule.IsRecurring,
			dateValue(rule),
			rule.IsAvailable,
			rule.SlotDurationMinutes,
			rule.MaxPatientsPerSlot,
			rule.Notes,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %w", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&rule.ID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if pgerr.IsExclusionViolation(err) {
			return nil, ErrOverlap
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	rule.CreatedAt = createdAt.Time
	rule.UpdatedAt = updatedAt.Time

	return rule, nil
}

// GetByID получает правило по ID. Внутри транзакции строка блокируется (FOR UPDATE).
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.AvailabilityRule, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"id": id})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %w", ErrBuildQuery, err)
	}

	rule, err := scanRule(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan rule: %w", ErrScanRow, err)
	}

	return rule, nil
}

// ListByScope получает правила врача в одной области: день недели для регулярных,
// дата для разовых. Внутри транзакции строки блокируются (FOR UPDATE), чтобы
// параллельная запись в ту же область дождалась коммита.
func (r *Repository) ListByScope(ctx context.Context, scope domain.RuleScope) ([]*domain.AvailabilityRule, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"doctor_id": scope.DoctorID, "is_recurring": scope.IsRecurring}).
		OrderBy("start_time ASC")

	if scope.IsRecurring {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"day_of_week": scope.DayOfWeek})
	} else {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"specific_date": scope.Date})
	}

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListByScope - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByScope - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanRules(rows)
}

// List получает правила врача по фильтру.
// Клаузы фильтра объединяются через OR, без клауз возвращаются все правила врача.
//
// Примеры:
//
// 1. Все правила врача:
//    domain.AvailabilityQuery{DoctorID: 7}
//
// 2. Регулярные правила на понедельник и разовые за неделю:
//    domain.AvailabilityQuery{
//        DoctorID:  7,
//        Recurring: &domain.RecurringClause{DayOfWeek: ptr.Ptr(1)},
//        DateRange: &domain.DateRangeClause{From: &from, To: &to},
//    }
func (r *Repository) List(ctx context.Context, q domain.AvailabilityQuery) ([]*domain.AvailabilityRule, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"doctor_id": q.DoctorID}).
		OrderBy("is_recurring DESC", "day_of_week ASC", "specific_date ASC", "start_time ASC")

	if predicate := buildPredicate(q); predicate != nil {
		selectBuilder = selectBuilder.Where(predicate)
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: List - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: List - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanRules(rows)
}

// ListForDate получает правила, которые могут действовать в указанную дату
func (r *Repository) ListForDate(ctx context.Context, doctorID int64, date time.Time) ([]*domain.AvailabilityRule, error) {
	return r.List(ctx, domain.QueryForDate(doctorID, date))
}

// Update сохраняет все изменяемые поля правила
func (r *Repository) Update(ctx context.Context, rule *domain.AvailabilityRule) (*domain.AvailabilityRule, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(tableName).
		Set("day_of_week", rule.DayOfWeek).
		Set("start_time", rule.StartTime).
		Set("end_time", rule.EndTime).
		Set("is_recurring", rule.IsRecurring).
		Set("specific_date", dateValue(rule)).
		Set("is_available", rule.IsAvailable).
		Set("slot_duration_minutes", rule.SlotDurationMinutes).
		Set("max_patients_per_slot", rule.MaxPatientsPerSlot).
		Set("notes", rule.Notes).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": rule.ID}).
		Suffix("RETURNING created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Update - build update query: %w", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		if pgerr.IsExclusionViolation(err) {
			return nil, ErrOverlap
		}
		return nil, fmt.Errorf("%w: Update - execute update: %w", ErrExecQuery, err)
	}

	rule.CreatedAt = createdAt.Time
	rule.UpdatedAt = updatedAt.Time

	return rule, nil
}

// Delete удаляет правило
func (r *Repository) Delete(ctx context.Context, id int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete(tableName).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Delete - build delete query: %w", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Delete - execute delete: %w", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Delete - get rows affected: %w", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrRuleNotFound
	}

	return nil
}

// buildPredicate переводит фильтр в условие WHERE.
// nil означает, что дополнительных условий нет.
func buildPredicate(q domain.AvailabilityQuery) squirrel.Sqlizer {
	var or squirrel.Or

	if q.Recurring != nil {
		clause := squirrel.And{squirrel.Eq{"is_recurring": true}}
		if q.Recurring.DayOfWeek != nil {
			clause = append(clause, squirrel.Eq{"day_of_week": *q.Recurring.DayOfWeek})
		}
		or = append(or, clause)
	}

	if q.DateRange != nil {
		clause := squirrel.And{squirrel.Eq{"is_recurring": false}}
		if q.DateRange.From != nil {
			clause = append(clause, squirrel.GtOrEq{"specific_date": q.DateRange.From.Format(domain.DateFormat)})
		}
		if q.DateRange.To != nil {
			clause = append(clause, squirrel.LtOrEq{"specific_date": q.DateRange.To.Format(domain.DateFormat)})
		}
		if q.DateRange.DayOfWeek != nil {
			clause = append(clause, squirrel.Eq{"day_of_week": *q.DateRange.DayOfWeek})
		}
		or = append(or, clause)
	}

	if len(or) == 0 {
		return nil
	}
	return or
}

// dateValue возвращает дату разового правила в формате колонки DATE
func dateValue(rule *domain.AvailabilityRule) interface{} {
	if rule.IsRecurring || rule.SpecificDate == nil {
		return nil
	}
	return rule.SpecificDate.Format(domain.DateFormat)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*domain.AvailabilityRule, error) {
	var rule domain.AvailabilityRule
	var specificDate, createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&rule.ID,
		&rule.DoctorID,
		&rule.DayOfWeek,
		&rule.StartTime,
		&rule.EndTime,
		&rule.IsRecurring,
		&specificDate,
		&rule.IsAvailable,
		&rule.SlotDurationMinutes,
		&rule.MaxPatientsPerSlot,
		&rule.Notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if specificDate.Valid {
		d := specificDate.Time
		rule.SpecificDate = &d
	}
	rule.CreatedAt = createdAt.Time
	rule.UpdatedAt = updatedAt.Time

	return &rule, nil
}

// scanRules сканирует результаты запроса в слайс правил
func scanRules(rows *sql.Rows) ([]*domain.AvailabilityRule, error) {
	rules := make([]*domain.AvailabilityRule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanRules - scan row: %w", ErrScanRow, err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanRules - rows error: %w", ErrScanRow, err)
	}

	return rules, nil
}
