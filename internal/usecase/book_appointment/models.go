package book_appointment

import "time"

// Request модель запроса на запись к врачу
type Request struct {
	CallerID        int64     `json:"-"`
	DoctorID        int64     `json:"doctorId"`
	PatientID       int64     `json:"patientId"`
	StartTime       time.Time `json:"startTime"`
	DurationMinutes int       `json:"durationMinutes"` // 0 - длительность по умолчанию
	Type            string    `json:"appointmentType"`
	Notes           *string   `json:"notes,omitempty"`
}

// Response модель ответа с созданным приёмом
type Response struct {
	ID              int64     `json:"id"`
	DoctorID        int64     `json:"doctorId"`
	PatientID       int64     `json:"patientId"`
	Type            string    `json:"appointmentType"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationMinutes int       `json:"durationMinutes"`
	Status          string    `json:"status"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
