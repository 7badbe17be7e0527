package generate_slots

import "time"

// Request модель запроса слотов
type Request struct {
	DoctorID int64  // ID врача
	Date     string // Дата в формате YYYY-MM-DD, трактуется в часовом поясе клиники
}

// Response модель ответа со слотами на день
type Response struct {
	DoctorID int64
	Date     time.Time
	Slots    []Slot
	Reason   string // Заполнен, если врач в этот день не работает
}

// Slot модель слота
type Slot struct {
	Start           time.Time
	End             time.Time
	StartTime       string // "10:00"
	EndTime         string // "10:30"
	DurationMinutes int
	Available       bool
}
