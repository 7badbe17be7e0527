package models

import (
	"time"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
)

// Request модели

// CreateRuleRequest запрос на создание правила доступности
type CreateRuleRequest struct {
	CallerID            int64   `json:"-"`
	DoctorID            int64   `json:"doctorId"`
	DayOfWeek           *int    `json:"dayOfWeek,omitempty"`
	StartTime           string  `json:"startTime"` // "09:00"
	EndTime             string  `json:"endTime"`   // "17:00"
	IsRecurring         *bool   `json:"isRecurring,omitempty"`
	SpecificDate        *string `json:"specificDate,omitempty"` // "2025-01-06", только для разовых правил
	IsAvailable         *bool   `json:"isAvailable,omitempty"`
	SlotDurationMinutes *int    `json:"slotDurationMinutes,omitempty"`
	MaxPatientsPerSlot  *int    `json:"maxPatientsPerSlot,omitempty"`
	Notes               *string `json:"notes,omitempty"`
}

// UpdateRuleRequest запрос на частичное обновление правила. nil - поле не меняется.
type UpdateRuleRequest struct {
	CallerID            int64   `json:"-"`
	RuleID              int64   `json:"-"`
	DayOfWeek           *int    `json:"dayOfWeek,omitempty"`
	StartTime           *string `json:"startTime,omitempty"`
	EndTime             *string `json:"endTime,omitempty"`
	IsRecurring         *bool   `json:"isRecurring,omitempty"`
	SpecificDate        *string `json:"specificDate,omitempty"`
	IsAvailable         *bool   `json:"isAvailable,omitempty"`
	SlotDurationMinutes *int    `json:"slotDurationMinutes,omitempty"`
	MaxPatientsPerSlot  *int    `json:"maxPatientsPerSlot,omitempty"`
	Notes               *string `json:"notes,omitempty"`
}

// ListRequest запрос расписания врача
type ListRequest struct {
	DoctorID  int64   `json:"doctorId"`
	StartDate *string `json:"startDate,omitempty"`
	EndDate   *string `json:"endDate,omitempty"`
	DayOfWeek *int    `json:"dayOfWeek,omitempty"`
}

// Response модели

// RuleResponse ответ с данными правила
type RuleResponse struct {
	ID                  int64     `json:"id"`
	DoctorID            int64     `json:"doctorId"`
	DayOfWeek           int       `json:"dayOfWeek"`
	StartTime           string    `json:"startTime"`
	EndTime             string    `json:"endTime"`
	IsRecurring         bool      `json:"isRecurring"`
	SpecificDate        *string   `json:"specificDate,omitempty"`
	IsAvailable         bool      `json:"isAvailable"`
	SlotDurationMinutes int       `json:"slotDurationMinutes"`
	MaxPatientsPerSlot  int       `json:"maxPatientsPerSlot"`
	Notes               *string   `json:"notes,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// AppointmentResponse краткие данные приёма в расписании
type AppointmentResponse struct {
	ID        int64     `json:"id"`
	PatientID int64     `json:"patientId"`
	Type      string    `json:"appointmentType"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Status    string    `json:"status"`
}

// DoctorResponse краткие данные врача
type DoctorResponse struct {
	ID        int64  `json:"id"`
	FullName  string `json:"fullName"`
	Specialty string `json:"specialty"`
}

// ListResponse расписание врача: правила и активные приёмы за период
type ListResponse struct {
	Doctor       *DoctorResponse       `json:"doctor,omitempty"`
	From         string                `json:"from"`
	To           string                `json:"to"`
	Rules        []RuleResponse        `json:"rules"`
	Appointments []AppointmentResponse `json:"appointments"`
}

// FromDomainRule конвертирует доменное правило в ответ
func FromDomainRule(rule *domain.AvailabilityRule) *RuleResponse {
	resp := &RuleResponse{
		ID:                  rule.ID,
		DoctorID:            rule.DoctorID,
		DayOfWeek:           rule.DayOfWeek,
		StartTime:           rule.StartTime.String(),
		EndTime:             rule.EndTime.String(),
		IsRecurring:         rule.IsRecurring,
		IsAvailable:         rule.IsAvailable,
		SlotDurationMinutes: rule.SlotDurationMinutes,
		MaxPatientsPerSlot:  rule.MaxPatientsPerSlot,
		Notes:               rule.Notes,
		CreatedAt:           rule.CreatedAt,
		UpdatedAt:           rule.UpdatedAt,
	}
	if rule.SpecificDate != nil {
		date := rule.SpecificDate.Format(domain.DateFormat)
		resp.SpecificDate = &date
	}
	return resp
}

// FromDomainRules конвертирует список правил
func FromDomainRules(rules []*domain.AvailabilityRule) []RuleResponse {
	result := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		result = append(result, *FromDomainRule(rule))
	}
	return result
}

// FromDomainAppointments конвертирует список приёмов
func FromDomainAppointments(appointments []*domain.Appointment) []AppointmentResponse {
	result := make([]AppointmentResponse, 0, len(appointments))
	for _, a := range appointments {
		result = append(result, AppointmentResponse{
			ID:        a.ID,
			PatientID: a.PatientID,
			Type:      a.Type,
			StartTime: a.StartTime,
			EndTime:   a.EndTime,
			Status:    string(a.Status),
		})
	}
	return result
}

// FromDomainDoctor конвертирует врача, nil остаётся nil
func FromDomainDoctor(doctor *domain.Doctor) *DoctorResponse {
	if doctor == nil {
		return nil
	}
	return &DoctorResponse{
		ID:        doctor.ID,
		FullName:  doctor.FullName,
		Specialty: doctor.Specialty,
	}
}
