package book_appointment

import (
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
)

var (
	// ErrDoctorNotFound возвращается, когда врач не найден
	ErrDoctorNotFound = errors.New("book_appointment: doctor not found")

	// ErrAccessDenied возвращается, когда у пользователя нет права записи к врачу
	ErrAccessDenied = errors.New("book_appointment: access denied")

	// ErrNotAvailable возвращается, когда время не попадает ни в одно рабочее окно врача
	ErrNotAvailable = errors.New("book_appointment: doctor is not available at requested time")

	// ErrSlotConflict возвращается, когда время пересекается с активным приёмом
	ErrSlotConflict = errors.New("book_appointment: requested time overlaps an active appointment")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("book_appointment: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("book_appointment: internal error")
)

// Исходы записи для метрик
const (
	OutcomeBooked       = "booked"
	OutcomeConflict     = "conflict"
	OutcomeNotAvailable = "not_available"
	OutcomeRejected     = "rejected"
	OutcomeError        = "error"
)

// SlotConflictError несёт приём, с которым пересекается запрошенное время.
// Appointment может быть nil, если пересечение обнаружила только БД.
type SlotConflictError struct {
	Appointment *domain.Appointment
}

func (e *SlotConflictError) Error() string {
	if e.Appointment == nil {
		return ErrSlotConflict.Error()
	}
	return fmt.Sprintf("%s: appointment id=%d", ErrSlotConflict.Error(), e.Appointment.ID)
}

func (e *SlotConflictError) Unwrap() error {
	return ErrSlotConflict
}
