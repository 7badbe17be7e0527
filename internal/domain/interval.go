package domain

import (
	"time"

	"github.com/m04kA/SMC-ScheduleService/pkg/types"
)

// ClockRange полуоткрытый интервал времени суток [Start, End)
type ClockRange struct {
	Start types.TimeOfDay
	End   types.TimeOfDay
}

// NewClockRange создает интервал времени суток
func NewClockRange(start, end types.TimeOfDay) ClockRange {
	return ClockRange{Start: start, End: end}
}

// IsValid возвращает true, если начало строго раньше конца
func (r ClockRange) IsValid() bool {
	return r.Start.IsBefore(r.End)
}

// Overlaps проверяет пересечение полуоткрытых интервалов: s1 < e2 && s2 < e1
// Интервалы, которые только касаются границей (10:00-10:30 и 10:30-11:00), не пересекаются
func (r ClockRange) Overlaps(other ClockRange) bool {
	return r.Start.Minutes() < other.End.Minutes() && other.Start.Minutes() < r.End.Minutes()
}

// Contains возвращает true, если other целиком лежит внутри r
func (r ClockRange) Contains(other ClockRange) bool {
	return r.Start.Minutes() <= other.Start.Minutes() && other.End.Minutes() <= r.End.Minutes()
}

// DurationMinutes длительность интервала в минутах
func (r ClockRange) DurationMinutes() int {
	return r.End.Minutes() - r.Start.Minutes()
}

// On переводит интервал времени суток в абсолютный интервал на указанную дату
func (r ClockRange) On(date time.Time) TimeRange {
	return TimeRange{Start: r.Start.On(date), End: r.End.On(date)}
}

func (r ClockRange) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// TimeRange полуоткрытый интервал абсолютного времени [Start, End)
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// IsValid возвращает true, если начало строго раньше конца
func (r TimeRange) IsValid() bool {
	return r.Start.Before(r.End)
}

// Overlaps проверяет пересечение полуоткрытых интервалов
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Contains возвращает true, если other целиком лежит внутри r
func (r TimeRange) Contains(other TimeRange) bool {
	return !other.Start.Before(r.Start) && !other.End.After(r.End)
}
