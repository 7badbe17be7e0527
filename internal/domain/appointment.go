package domain

import (
	"errors"
	"time"
)

// ErrInvalidStatus возвращается при разборе неизвестного статуса
var ErrInvalidStatus = errors.New("invalid appointment status")

// AppointmentStatus статус приёма
type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "SCHEDULED"
	StatusConfirmed  AppointmentStatus = "CONFIRMED"
	StatusCheckedIn  AppointmentStatus = "CHECKED_IN"
	StatusInProgress AppointmentStatus = "IN_PROGRESS"
	StatusCompleted  AppointmentStatus = "COMPLETED"
	StatusCancelled  AppointmentStatus = "CANCELLED"
	StatusNoShow     AppointmentStatus = "NO_SHOW"
)

// ActiveStatuses статусы, участвующие в проверке пересечений
var ActiveStatuses = []AppointmentStatus{
	StatusScheduled,
	StatusConfirmed,
	StatusCheckedIn,
	StatusInProgress,
}

// transitions допустимые переходы статусов. Терминальные статусы переходов не имеют.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled:  {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn:  {StatusInProgress},
	StatusInProgress: {StatusCompleted},
}

// ParseAppointmentStatus конвертирует строку в статус с валидацией
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	status := AppointmentStatus(s)
	switch status {
	case StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return status, nil
	}
	return "", ErrInvalidStatus
}

// IsActive возвращает true для статусов, которые занимают время врача
func (s AppointmentStatus) IsActive() bool {
	for _, active := range ActiveStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// IsTerminal возвращает true для CANCELLED, COMPLETED и NO_SHOW
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

// CanTransitionTo проверяет переход по таблице состояний
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StatusStrings возвращает статусы в виде строк (для SQL фильтров)
func StatusStrings(statuses []AppointmentStatus) []string {
	result := make([]string, len(statuses))
	for i, s := range statuses {
		result[i] = string(s)
	}
	return result
}

// Appointment приём пациента у врача
type Appointment struct {
	ID        int64
	DoctorID  int64
	PatientID int64
	Type      string
	StartTime time.Time
	EndTime   time.Time
	Status    AppointmentStatus
	Notes     *string

	CancellationReason *string
	CancelledAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive возвращает true, если приём ещё не в терминальном статусе
func (a *Appointment) IsActive() bool {
	return a.Status.IsActive()
}

// Range возвращает интервал приёма [StartTime, EndTime)
func (a *Appointment) Range() TimeRange {
	return TimeRange{Start: a.StartTime, End: a.EndTime}
}

// DurationMinutes длительность приёма в минутах
func (a *Appointment) DurationMinutes() int {
	return int(a.EndTime.Sub(a.StartTime) / time.Minute)
}
