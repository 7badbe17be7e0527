package models

import (
	"time"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
)

// TransitionRequest запрос на смену статуса приёма
type TransitionRequest struct {
	CallerID      int64  `json:"-"`
	AppointmentID int64  `json:"-"`
	Status        string `json:"status"`
}

// CancelRequest запрос на отмену приёма
type CancelRequest struct {
	CallerID      int64   `json:"-"`
	AppointmentID int64   `json:"-"`
	Reason        *string `json:"reason,omitempty"`
}

// AppointmentResponse ответ с данными приёма
type AppointmentResponse struct {
	ID                 int64      `json:"id"`
	DoctorID           int64      `json:"doctorId"`
	PatientID          int64      `json:"patientId"`
	Type               string     `json:"appointmentType"`
	StartTime          time.Time  `json:"startTime"`
	EndTime            time.Time  `json:"endTime"`
	DurationMinutes    int        `json:"durationMinutes"`
	Status             string     `json:"status"`
	Notes              *string    `json:"notes,omitempty"`
	CancellationReason *string    `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// FromDomainAppointment конвертирует доменный приём в ответ
func FromDomainAppointment(a *domain.Appointment) *AppointmentResponse {
	return &AppointmentResponse{
		ID:                 a.ID,
		DoctorID:           a.DoctorID,
		PatientID:          a.PatientID,
		Type:               a.Type,
		StartTime:          a.StartTime,
		EndTime:            a.EndTime,
		DurationMinutes:    a.DurationMinutes(),
		Status:             string(a.Status),
		Notes:              a.Notes,
		CancellationReason: a.CancellationReason,
		CancelledAt:        a.CancelledAt,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}
