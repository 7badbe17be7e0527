package hub

import (
	"sync"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
)

// DefaultBufferSize размер буфера событий одного подписчика
const DefaultBufferSize = 32

// Subscriber подписка на события расписания одного врача
type Subscriber struct {
	ID       string
	DoctorID int64
	events   chan domain.Event
}

// Events канал событий подписчика. Закрывается при отписке.
func (s *Subscriber) Events() <-chan domain.Event {
	return s.events
}

// Hub реестр подписчиков и рассылка событий в рамках одного процесса.
// Все операции с реестром (добавление, удаление, обход) идут под одним мьютексом.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*Subscriber
	bufferSize  int
	recorder    Recorder
	logger      Logger
}

// Option настройка хаба
type Option func(*Hub)

// WithBufferSize задаёт размер буфера событий подписчика
func WithBufferSize(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.bufferSize = size
		}
	}
}

// WithRecorder подключает метрики
func WithRecorder(recorder Recorder) Option {
	return func(h *Hub) {
		if recorder != nil {
			h.recorder = recorder
		}
	}
}

// New создает пустой хаб
func New(logger Logger, opts ...Option) *Hub {
	h := &Hub{
		subscribers: make(map[string]*Subscriber),
		bufferSize:  DefaultBufferSize,
		recorder:    nopRecorder{},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe регистрирует подписчика на события врача.
// Первым событием в канале всегда приходит {"type":"connected"}.
func (h *Hub) Subscribe(doctorID int64) *Subscriber {
	sub := &Subscriber{
		ID:       uuid.NewString(),
		DoctorID: doctorID,
		events:   make(chan domain.Event, h.bufferSize),
	}
	sub.events <- domain.ConnectedEvent(doctorID)

	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	total := len(h.subscribers)
	h.mu.Unlock()

	h.recorder.SubscriberConnected()
	h.logger.Info("Hub: subscriber %s connected to doctor=%d (total=%d)", sub.ID, doctorID, total)
	return sub
}

// Unsubscribe удаляет подписчика и закрывает его канал. Повторный вызов безопасен.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		h.remove(sub)
	}
	h.mu.Unlock()

	if ok {
		h.logger.Info("Hub: subscriber %s disconnected from doctor=%d", id, sub.DoctorID)
	}
}

// Publish отправляет событие всем подписчикам врача.
// Отправка не блокирует: подписчик с переполненным буфером считается отвалившимся и удаляется.
// Ошибки доставки наружу не возвращаются.
func (h *Hub) Publish(doctorID int64, event domain.Event) {
	if event.DoctorID == 0 {
		event.DoctorID = doctorID
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subscribers {
		if sub.DoctorID != doctorID {
			continue
		}

		select {
		case sub.events <- event:
			h.recorder.EventDelivered(string(event.Type))
		default:
			h.recorder.EventDropped(string(event.Type))
			h.logger.Warn("Hub: subscriber %s is not reading, dropping it (doctor=%d)", sub.ID, doctorID)
			h.remove(sub)
		}
	}
}

// Count возвращает общее число подписчиков
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// CountFor возвращает число подписчиков врача
func (h *Hub) CountFor(doctorID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := 0
	for _, sub := range h.subscribers {
		if sub.DoctorID == doctorID {
			count++
		}
	}
	return count
}

// Close отключает всех подписчиков (при остановке сервиса)
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subscribers {
		h.remove(sub)
	}
}

// remove вызывается под мьютексом
func (h *Hub) remove(sub *Subscriber) {
	delete(h.subscribers, sub.ID)
	close(sub.events)
	h.recorder.SubscriberDisconnected()
}
