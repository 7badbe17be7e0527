package domain

import "time"

// RecurringClause отбирает регулярные правила, опционально по дню недели
type RecurringClause struct {
	DayOfWeek *int
}

// DateRangeClause отбирает разовые правила с датой в диапазоне [From, To]. nil - граница открыта.
// DayOfWeek дополнительно ограничивает даты днём недели.
type DateRangeClause struct {
	From      *time.Time
	To        *time.Time
	DayOfWeek *int
}

// AvailabilityQuery фильтр правил врача. Клаузы объединяются через OR,
// отсутствие обеих клауз означает "все правила врача".
type AvailabilityQuery struct {
	DoctorID  int64
	Recurring *RecurringClause
	DateRange *DateRangeClause
}

// QueryForDate возвращает фильтр правил, которые могут действовать в указанную дату
func QueryForDate(doctorID int64, date time.Time) AvailabilityQuery {
	dow := int(date.Weekday())
	return AvailabilityQuery{
		DoctorID:  doctorID,
		Recurring: &RecurringClause{DayOfWeek: &dow},
		DateRange: &DateRangeClause{From: &date, To: &date},
	}
}

// Matches проверяет правило на соответствие фильтру (та же логика, что и в SQL)
func (q AvailabilityQuery) Matches(rule *AvailabilityRule) bool {
	if rule.DoctorID != q.DoctorID {
		return false
	}
	if q.Recurring == nil && q.DateRange == nil {
		return true
	}
	if q.Recurring != nil && rule.IsRecurring {
		if q.Recurring.DayOfWeek == nil || *q.Recurring.DayOfWeek == rule.DayOfWeek {
			return true
		}
	}
	if q.DateRange != nil && !rule.IsRecurring && rule.SpecificDate != nil {
		date := rule.SpecificDate.Format(DateFormat)
		if q.DateRange.From != nil && date < q.DateRange.From.Format(DateFormat) {
			return false
		}
		if q.DateRange.To != nil && date > q.DateRange.To.Format(DateFormat) {
			return false
		}
		if q.DateRange.DayOfWeek != nil && *q.DateRange.DayOfWeek != rule.DayOfWeek {
			return false
		}
		return true
	}
	return false
}
