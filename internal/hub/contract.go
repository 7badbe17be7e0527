package hub

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
}

// Recorder метрики подписок и доставки событий
type Recorder interface {
	SubscriberConnected()
	SubscriberDisconnected()
	EventDelivered(eventType string)
	EventDropped(eventType string)
}

type nopRecorder struct{}

func (nopRecorder) SubscriberConnected()    {}
func (nopRecorder) SubscriberDisconnected() {}
func (nopRecorder) EventDelivered(string)   {}
func (nopRecorder) EventDropped(string)     {}
