package availability

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
)

// RuleRepository интерфейс репозитория правил доступности
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.AvailabilityRule) (*domain.AvailabilityRule, error)
	GetByID(ctx context.Context, id int64) (*domain.AvailabilityRule, error)
	ListByScope(ctx context.Context, scope domain.RuleScope) ([]*domain.AvailabilityRule, error)
	List(ctx context.Context, q domain.AvailabilityQuery) ([]*domain.AvailabilityRule, error)
	Update(ctx context.Context, rule *domain.AvailabilityRule) (*domain.AvailabilityRule, error)
	Delete(ctx context.Context, id int64) error
}

// AppointmentRepository интерфейс репозитория приёмов
type AppointmentRepository interface {
	ListActiveInScope(ctx context.Context, scope domain.RuleScope, timezone string) ([]*domain.Appointment, error)
	ListInRange(ctx context.Context, doctorID int64, from, to time.Time, activeOnly bool) ([]*domain.Appointment, error)
}

// DoctorServiceClient интерфейс клиента для DoctorService
type DoctorServiceClient interface {
	GetDoctor(ctx context.Context, doctorID int64) (*domain.Doctor, error)
	GetDoctorWithGracefulDegradation(ctx context.Context, doctorID int64) (*domain.Doctor, error)
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
