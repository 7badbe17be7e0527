package domain

import "time"

// ReasonNotAvailable причина пустого списка слотов
const ReasonNotAvailable = "doctor not available that day"

// Slot слот приёма фиксированной длительности
type Slot struct {
	Start     time.Time
	End       time.Time
	Available bool
}

// Range возвращает интервал слота
func (s Slot) Range() TimeRange {
	return TimeRange{Start: s.Start, End: s.End}
}

