package book_appointment

import (
	"time"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	bookAppointment "github.com/m04kA/SMC-ScheduleService/internal/usecase/book_appointment"
)

// BookAppointmentRequest HTTP request model
type BookAppointmentRequest struct {
	DoctorID        int64   `json:"doctorId"`
	PatientID       int64   `json:"patientId"`
	StartTime       string  `json:"startTime"` // RFC3339: "2025-01-06T10:00:00+03:00"
	DurationMinutes int     `json:"durationMinutes"`
	AppointmentType string  `json:"appointmentType"`
	Notes           *string `json:"notes,omitempty"`
}

// ConflictingAppointment приём, с которым пересекается запрос
type ConflictingAppointment struct {
	ID        int64     `json:"id"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Status    string    `json:"status"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *BookAppointmentRequest) ToUseCaseRequest(callerID int64) (*bookAppointment.Request, error) {
	start, err := time.Parse(time.RFC3339, r.StartTime)
	if err != nil {
		return nil, err
	}
	return &bookAppointment.Request{
		CallerID:        callerID,
		DoctorID:        r.DoctorID,
		PatientID:       r.PatientID,
		StartTime:       start,
		DurationMinutes: r.DurationMinutes,
		Type:            r.AppointmentType,
		Notes:           r.Notes,
	}, nil
}

func fromDomainConflict(a *domain.Appointment) []ConflictingAppointment {
	if a == nil {
		return nil
	}
	return []ConflictingAppointment{{ID: a.ID, StartTime: a.StartTime, EndTime: a.EndTime, Status: string(a.Status)}}
}
