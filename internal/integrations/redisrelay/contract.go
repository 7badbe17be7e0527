package redisrelay

import "github.com/m04kA/SMC-ScheduleService/internal/domain"

// LocalPublisher локальный реестр подписчиков процесса
type LocalPublisher interface {
	Publish(doctorID int64, event domain.Event)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
