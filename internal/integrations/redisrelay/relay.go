package redisrelay

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
)

const (
	// DefaultChannelPrefix префикс каналов событий; полное имя канала - префикс + ID врача
	DefaultChannelPrefix = "schedule:events:"

	publishTimeout = 2 * time.Second
)

// Relay рассылает события между экземплярами сервиса через Redis pub/sub.
// Publish отправляет событие в Redis, Run принимает события всех экземпляров
// (включая свои) и передаёт их в локальный реестр подписчиков.
type Relay struct {
	client    *redis.Client
	local     LocalPublisher
	prefix    string
	logger    Logger
	ready     chan struct{}
	readyOnce sync.Once
}

// NewRelay создает новый экземпляр relay
func NewRelay(client *redis.Client, local LocalPublisher, prefix string, logger Logger) *Relay {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &Relay{
		client: client,
		local:  local,
		prefix: prefix,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Publish отправляет событие в канал врача.
// Если Redis недоступен, событие доставляется только локальным подписчикам.
func (r *Relay) Publish(doctorID int64, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("Relay.Publish: failed to marshal event type=%s: %v", event.Type, err)
		r.local.Publish(doctorID, event)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := r.client.Publish(ctx, r.channel(doctorID), payload).Err(); err != nil {
		r.logger.Warn("Relay.Publish: redis publish failed, delivering locally: doctor id=%d: %v", doctorID, err)
		r.local.Publish(doctorID, event)
	}
}

// Ready закрывается, когда подписка на Redis подтверждена
func (r *Relay) Ready() <-chan struct{} {
	return r.ready
}

// Run подписывается на каналы всех врачей и пересылает события в локальный реестр.
// Блокируется до отмены контекста.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, r.prefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribe, err)
	}
	r.readyOnce.Do(func() { close(r.ready) })
	r.logger.Info("Relay: subscribed to %s*", r.prefix)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Relay: stopped")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := r.forward(msg); err != nil {
				r.logger.Warn("Relay: skip message on %s: %v", msg.Channel, err)
			}
		}
	}
}

func (r *Relay) forward(msg *redis.Message) error {
	doctorID, err := strconv.ParseInt(strings.TrimPrefix(msg.Channel, r.prefix), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: channel %q: %w", ErrInvalidMessage, msg.Channel, err)
	}

	var event domain.Event
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		return fmt.Errorf("%w: payload: %w", ErrInvalidMessage, err)
	}

	r.local.Publish(doctorID, event)
	return nil
}

func (r *Relay) channel(doctorID int64) string {
	return r.prefix + strconv.FormatInt(doctorID, 10)
}
