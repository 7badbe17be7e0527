package generate_slots

import (
	"time"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
)

// Window рабочее окно врача: дни недели, в которые оно действует, и время суток
type Window struct {
	AvailableDays []time.Weekday
	Clock         domain.ClockRange
}

// worksOn проверяет, действует ли окно в день недели даты
func (w Window) worksOn(date time.Time) bool {
	for _, d := range w.AvailableDays {
		if d == date.Weekday() {
			return true
		}
	}
	return false
}

// Generate нарезает окно на слоты фиксированной длительности.
// Шаг равен длительности слота, хвост короче слота отбрасывается.
// Слот доступен, если не пересекается ни с одним интервалом из busy
// (активные приёмы и нерабочие интервалы на эту дату).
// Если врач в этот день не работает, возвращается пустой список и причина.
//
// Примеры для окна 09:00-10:00 и слота 30 минут:
// - приём 09:00-09:30 → 09:00 занят, 09:30 свободен
// - приём 09:20-09:40 → оба слота заняты
// - приём 10:00-10:30 → оба слота свободны (только касается границы)
func Generate(window Window, date time.Time, durationMinutes int, busy []domain.TimeRange) ([]domain.Slot, string) {
	if !window.worksOn(date) || !window.Clock.IsValid() {
		return []domain.Slot{}, domain.ReasonNotAvailable
	}
	if durationMinutes <= 0 {
		return []domain.Slot{}, ""
	}

	slots := make([]domain.Slot, 0, window.Clock.DurationMinutes()/durationMinutes)
	current := window.Clock.Start

	for current.IsBefore(window.Clock.End) {
		slotEnd, err := current.AddMinutes(durationMinutes)
		if err != nil || slotEnd.IsAfter(window.Clock.End) {
			break
		}

		r := domain.NewClockRange(current, slotEnd).On(date)
		slots = append(slots, domain.Slot{
			Start:     r.Start,
			End:       r.End,
			Available: !overlapsAny(r, busy),
		})
		current = slotEnd
	}

	return slots, ""
}

func overlapsAny(r domain.TimeRange, busy []domain.TimeRange) bool {
	for _, b := range busy {
		if b.Overlaps(r) {
			return true
		}
	}
	return false
}

// busyRanges собирает занятые интервалы на дату: активные приёмы и нерабочие интервалы
func busyRanges(day domain.DaySchedule, appointments []*domain.Appointment) []domain.TimeRange {
	busy := make([]domain.TimeRange, 0, len(appointments)+len(day.Blocked))
	for _, a := range appointments {
		if a.IsActive() {
			busy = append(busy, a.Range())
		}
	}
	for _, b := range day.Blocked {
		busy = append(busy, b.On(day.Date))
	}
	return busy
}
