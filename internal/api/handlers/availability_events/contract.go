package availability_events

import (
	"context"

	"github.com/m04kA/SMC-ScheduleService/internal/hub"
)

type SubscriptionService interface {
	Subscribe(ctx context.Context, callerID, doctorID int64) (*hub.Subscriber, error)
	Unsubscribe(sub *hub.Subscriber)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
