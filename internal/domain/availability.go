package domain

import (
	"sort"
	"time"

	"github.com/m04kA/SMC-ScheduleService/pkg/types"
)

// AvailabilityRule правило доступности врача.
// Регулярное правило действует каждую неделю в DayOfWeek, разовое - только в SpecificDate.
// IsAvailable=false помечает интервал как нерабочий.
type AvailabilityRule struct {
	ID                  int64
	DoctorID            int64
	DayOfWeek           int
	StartTime           types.TimeOfDay
	EndTime             types.TimeOfDay
	IsRecurring         bool
	SpecificDate        *time.Time
	IsAvailable         bool
	SlotDurationMinutes int
	MaxPatientsPerSlot  int
	Notes               *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Clock возвращает интервал правила внутри суток
func (r *AvailabilityRule) Clock() ClockRange {
	return ClockRange{Start: r.StartTime, End: r.EndTime}
}

// Scope возвращает область правила, внутри которой интервалы не должны пересекаться
func (r *AvailabilityRule) Scope() RuleScope {
	scope := RuleScope{
		DoctorID:    r.DoctorID,
		IsRecurring: r.IsRecurring,
		DayOfWeek:   r.DayOfWeek,
	}
	if !r.IsRecurring && r.SpecificDate != nil {
		scope.Date = r.SpecificDate.Format(DateFormat)
	}
	return scope
}

// AppliesTo возвращает true, если правило действует в указанную дату
func (r *AvailabilityRule) AppliesTo(date time.Time) bool {
	if r.IsRecurring {
		return int(date.Weekday()) == r.DayOfWeek
	}
	if r.SpecificDate == nil {
		return false
	}
	return r.SpecificDate.Format(DateFormat) == date.Format(DateFormat)
}

// Clone возвращает копию правила (указатели на дату и заметки тоже копируются)
func (r *AvailabilityRule) Clone() *AvailabilityRule {
	c := *r
	if r.SpecificDate != nil {
		d := *r.SpecificDate
		c.SpecificDate = &d
	}
	if r.Notes != nil {
		n := *r.Notes
		c.Notes = &n
	}
	return &c
}

// RuleScope область уникальности правила:
// (врач, день недели) для регулярных и (врач, дата) для разовых
type RuleScope struct {
	DoctorID    int64
	IsRecurring bool
	DayOfWeek   int
	Date        string // YYYY-MM-DD, только для разовых правил
}

// AvailabilityPatch частичное обновление правила. nil означает "не менять".
type AvailabilityPatch struct {
	DayOfWeek           *int
	StartTime           *types.TimeOfDay
	EndTime             *types.TimeOfDay
	IsRecurring         *bool
	SpecificDate        *time.Time
	IsAvailable         *bool
	SlotDurationMinutes *int
	MaxPatientsPerSlot  *int
	Notes               *string
}

// Apply возвращает новое правило с применёнными изменениями, исходное не меняется
func (p AvailabilityPatch) Apply(rule *AvailabilityRule) *AvailabilityRule {
	updated := rule.Clone()
	if p.DayOfWeek != nil {
		updated.DayOfWeek = *p.DayOfWeek
	}
	if p.StartTime != nil {
		updated.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		updated.EndTime = *p.EndTime
	}
	if p.IsRecurring != nil {
		updated.IsRecurring = *p.IsRecurring
		if updated.IsRecurring {
			updated.SpecificDate = nil
		}
	}
	if p.SpecificDate != nil {
		d := *p.SpecificDate
		updated.SpecificDate = &d
	}
	if p.IsAvailable != nil {
		updated.IsAvailable = *p.IsAvailable
	}
	if p.SlotDurationMinutes != nil {
		updated.SlotDurationMinutes = *p.SlotDurationMinutes
	}
	if p.MaxPatientsPerSlot != nil {
		updated.MaxPatientsPerSlot = *p.MaxPatientsPerSlot
	}
	if p.Notes != nil {
		n := *p.Notes
		updated.Notes = &n
	}
	// Разовое правило привязано к дню недели своей даты, если день недели не задан явно
	if !updated.IsRecurring && updated.SpecificDate != nil && p.DayOfWeek == nil {
		updated.DayOfWeek = int(updated.SpecificDate.Weekday())
	}
	return updated
}

// IsEmpty возвращает true, если патч ничего не меняет
func (p AvailabilityPatch) IsEmpty() bool {
	return p.DayOfWeek == nil && p.StartTime == nil && p.EndTime == nil &&
		p.IsRecurring == nil && p.SpecificDate == nil && p.IsAvailable == nil &&
		p.SlotDurationMinutes == nil && p.MaxPatientsPerSlot == nil && p.Notes == nil
}

// DaySchedule эффективное расписание врача на конкретную дату
type DaySchedule struct {
	Date    time.Time
	Windows []*AvailabilityRule // рабочие интервалы, отсортированы по началу
	Blocked []ClockRange        // нерабочие интервалы из разовых правил
}

// ResolveDay вычисляет расписание на дату.
// Рабочие окна - все доступные правила, действующие в эту дату (недельные и разовые);
// разовые нерабочие правила вырезают из них интервалы.
func ResolveDay(rules []*AvailabilityRule, date time.Time) DaySchedule {
	schedule := DaySchedule{Date: date}

	for _, rule := range rules {
		if !rule.AppliesTo(date) {
			continue
		}
		switch {
		case rule.IsAvailable:
			schedule.Windows = append(schedule.Windows, rule)
		case !rule.IsRecurring:
			schedule.Blocked = append(schedule.Blocked, rule.Clock())
		}
	}

	sort.SliceStable(schedule.Windows, func(i, j int) bool {
		return schedule.Windows[i].StartTime.IsBefore(schedule.Windows[j].StartTime)
	})
	sort.Slice(schedule.Blocked, func(i, j int) bool {
		return schedule.Blocked[i].Start.IsBefore(schedule.Blocked[j].Start)
	})
	return schedule
}

// IsWorkingDay возвращает true, если на дату есть хотя бы один рабочий интервал
func (s DaySchedule) IsWorkingDay() bool {
	return len(s.Windows) > 0
}

// Permits проверяет, что интервал целиком лежит в одном рабочем окне и не задевает нерабочие
func (s DaySchedule) Permits(r ClockRange) bool {
	if !r.IsValid() {
		return false
	}
	for _, blocked := range s.Blocked {
		if blocked.Overlaps(r) {
			return false
		}
	}
	for _, window := range s.Windows {
		if window.Clock().Contains(r) {
			return true
		}
	}
	return false
}
