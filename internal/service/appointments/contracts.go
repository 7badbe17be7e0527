package appointments

import (
	"context"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
)

// AppointmentRepository интерфейс репозитория приёмов
type AppointmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status domain.AppointmentStatus, reason *string) (*domain.Appointment, error)
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

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
