package doctorservice

import "github.com/m04kA/SMC-ScheduleService/internal/domain"

// Doctor модель врача из DoctorService
type Doctor struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Specialty string `json:"specialty"`
	IsActive  bool   `json:"is_active"`
}

// ToDomain конвертирует ответ сервиса в доменную модель
func (d *Doctor) ToDomain() *domain.Doctor {
	fullName := d.FirstName
	if d.LastName != "" {
		if fullName != "" {
			fullName += " "
		}
		fullName += d.LastName
	}
	return &domain.Doctor{
		ID:        d.ID,
		FullName:  fullName,
		Specialty: d.Specialty,
		IsActive:  d.IsActive,
	}
}

// ErrorResponse модель ошибки от DoctorService
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
