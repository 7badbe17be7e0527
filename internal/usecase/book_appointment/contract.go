package book_appointment

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
)

// RuleRepository интерфейс репозитория правил доступности
type RuleRepository interface {
	ListForDate(ctx context.Context, doctorID int64, date time.Time) ([]*domain.AvailabilityRule, error)
}

// AppointmentRepository интерфейс репозитория приёмов
type AppointmentRepository interface {
	ListActiveOverlapping(ctx context.Context, doctorID int64, start, end time.Time) ([]*domain.Appointment, error)
	Create(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error)
}

// DoctorServiceClient интерфейс клиента для DoctorService
type DoctorServiceClient interface {
	GetDoctor(ctx context.Context, doctorID int64) (*domain.Doctor, error)
}

// AuthServiceClient интерфейс клиента для проверки прав
type AuthServiceClient interface {
	CanAccess(ctx context.Context, userID, doctorID int64, permission string) (bool, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// Sequencer упорядочивает фиксацию и публикацию изменений одного врача
type Sequencer interface {
	Lock(doctorID int64) (unlock func())
}

// Publisher рассылает события подписчикам врача
type Publisher interface {
	Publish(doctorID int64, event domain.Event)
}

// Recorder считает исходы записи
type Recorder interface {
	IncBooking(outcome string)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}

type nopRecorder struct{}

func (nopRecorder) IncBooking(string) {}
