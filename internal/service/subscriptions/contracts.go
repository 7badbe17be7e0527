package subscriptions

import (
	"context"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	"github.com/m04kA/SMC-ScheduleService/internal/hub"
)

// Hub реестр подписчиков
type Hub interface {
	Subscribe(doctorID int64) *hub.Subscriber
	Unsubscribe(id string)
}

// DoctorServiceClient интерфейс клиента для DoctorService
type DoctorServiceClient interface {
	GetDoctor(ctx context.Context, doctorID int64) (*domain.Doctor, error)
}

// AuthServiceClient интерфейс клиента для проверки прав
type AuthServiceClient interface {
	CanAccess(ctx context.Context, userID, doctorID int64, permission string) (bool, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
