package domain

import "time"

// EventType тип события в потоке уведомлений
type EventType string

const (
	EventConnected    EventType = "connected"
	EventAvailability EventType = "availability"
	EventAppointment  EventType = "appointment"
)

// EventAction действие, вызвавшее событие
type EventAction string

const (
	ActionCreate EventAction = "create"
	ActionUpdate EventAction = "update"
	ActionDelete EventAction = "delete"
	ActionBook   EventAction = "book"
	ActionStatus EventAction = "status"
)

// Event событие, которое рассылается подписчикам врача
type Event struct {
	Type     EventType   `json:"type"`
	Action   EventAction `json:"action,omitempty"`
	DoctorID int64       `json:"doctorId,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// ConnectedEvent первое событие после подписки
func ConnectedEvent(doctorID int64) Event {
	return Event{Type: EventConnected, DoctorID: doctorID}
}

// AvailabilityPayload данные правила в событии
type AvailabilityPayload struct {
	ID                  int64   `json:"id"`
	DoctorID            int64   `json:"doctorId"`
	DayOfWeek           int     `json:"dayOfWeek"`
	StartTime           string  `json:"startTime"`
	EndTime             string  `json:"endTime"`
	IsRecurring         bool    `json:"isRecurring"`
	SpecificDate        *string `json:"specificDate,omitempty"`
	IsAvailable         bool    `json:"isAvailable"`
	SlotDurationMinutes int     `json:"slotDurationMinutes"`
	MaxPatientsPerSlot  int     `json:"maxPatientsPerSlot"`
	Notes               *string `json:"notes,omitempty"`
}

// NewAvailabilityEvent событие изменения правила доступности
func NewAvailabilityEvent(action EventAction, rule *AvailabilityRule) Event {
	payload := AvailabilityPayload{
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
	}
	if rule.SpecificDate != nil {
		date := rule.SpecificDate.Format(DateFormat)
		payload.SpecificDate = &date
	}
	return Event{Type: EventAvailability, Action: action, DoctorID: rule.DoctorID, Data: payload}
}

// AppointmentPayload данные приёма в событии
type AppointmentPayload struct {
	ID        int64     `json:"id"`
	DoctorID  int64     `json:"doctorId"`
	PatientID int64     `json:"patientId"`
	Type      string    `json:"appointmentType"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Status    string    `json:"status"`
}

// NewAppointmentEvent событие записи или смены статуса приёма
func NewAppointmentEvent(action EventAction, appt *Appointment) Event {
	return Event{
		Type:     EventAppointment,
		Action:   action,
		DoctorID: appt.DoctorID,
		Data: AppointmentPayload{
			ID:        appt.ID,
			DoctorID:  appt.DoctorID,
			PatientID: appt.PatientID,
			Type:      appt.Type,
			StartTime: appt.StartTime,
			EndTime:   appt.EndTime,
			Status:    string(appt.Status),
		},
	}
}
