package conflicts

import (
	"time"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	"github.com/m04kA/SMC-ScheduleService/pkg/types"
)

// Guard проверяет пересечения интервалов внутри одной области.
// Не ходит в хранилище: кандидаты на конфликт передаются вызывающей стороной
// (как правило, прочитанные в той же транзакции с FOR UPDATE).
type Guard struct {
	location *time.Location
}

// NewGuard создает guard. location - часовой пояс клиники, в котором
// сравниваются время приёмов и время суток правил.
func NewGuard(location *time.Location) *Guard {
	if location == nil {
		location = time.UTC
	}
	return &Guard{location: location}
}

// FindRuleConflict возвращает первое правило из existing, которое пересекается с candidate
// в той же области (врач + день недели для регулярных, врач + дата для разовых).
// Правило с тем же ID, что и candidate, пропускается: обновление не конфликтует само с собой.
func (g *Guard) FindRuleConflict(candidate *domain.AvailabilityRule, existing []*domain.AvailabilityRule) *domain.AvailabilityRule {
	scope := candidate.Scope()
	clock := candidate.Clock()

	for _, rule := range existing {
		if candidate.ID != 0 && rule.ID == candidate.ID {
			continue
		}
		if rule.Scope() != scope {
			continue
		}
		if rule.Clock().Overlaps(clock) {
			return rule
		}
	}
	return nil
}

// FindAppointmentConflict возвращает первый активный приём врача, пересекающийся с интервалом
func (g *Guard) FindAppointmentConflict(doctorID int64, candidate domain.TimeRange, existing []*domain.Appointment) *domain.Appointment {
	for _, appt := range existing {
		if appt.DoctorID != doctorID || !appt.IsActive() {
			continue
		}
		if appt.Range().Overlaps(candidate) {
			return appt
		}
	}
	return nil
}

// AppointmentsCoveredBy возвращает активные приёмы, которые попадают во время правила:
// для регулярного правила - в тот же день недели (без ограничения по дате),
// для разового - в ту же дату.
func (g *Guard) AppointmentsCoveredBy(rule *domain.AvailabilityRule, appointments []*domain.Appointment) []*domain.Appointment {
	ruleClock := rule.Clock()
	var covered []*domain.Appointment

	for _, appt := range appointments {
		if appt.DoctorID != rule.DoctorID || !appt.IsActive() {
			continue
		}

		start := appt.StartTime.In(g.location)
		if !rule.AppliesTo(start) {
			continue
		}
		if g.clockOf(start, appt.EndTime.In(g.location)).Overlaps(ruleClock) {
			covered = append(covered, appt)
		}
	}
	return covered
}

// clockOf переводит приём во время суток даты начала. Приём, уходящий за полночь,
// обрезается концом суток.
func (g *Guard) clockOf(start, end time.Time) domain.ClockRange {
	endClock := types.TimeOfDayFromTime(end)
	if end.YearDay() != start.YearDay() || end.Year() != start.Year() {
		endClock, _ = types.FromMinutes(types.MinutesPerDay)
	}
	return domain.NewClockRange(types.TimeOfDayFromTime(start), endClock)
}

// ScopeChanged возвращает true, если обновление затрагивает поля, влияющие на пересечения:
// врача, тип правила, день недели, дату или время. Изменение только заметок, доступности
// или длительности слота повторной проверки не требует.
func ScopeChanged(before, after *domain.AvailabilityRule) bool {
	if before.Scope() != after.Scope() {
		return true
	}
	return before.StartTime != after.StartTime || before.EndTime != after.EndTime
}
