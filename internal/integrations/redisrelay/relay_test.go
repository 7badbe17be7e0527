package redisrelay

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
)

type delivered struct {
	doctorID int64
	event    domain.Event
}

type recordingHub struct {
	mu     sync.Mutex
	events chan delivered
}

func newRecordingHub() *recordingHub {
	return &recordingHub{events: make(chan delivered, 16)}
}

func (h *recordingHub) Publish(doctorID int64, event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events <- delivered{doctorID: doctorID, event: event}
}

func (h *recordingHub) next(t *testing.T) delivered {
	t.Helper()
	select {
	case d := <-h.events:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
		return delivered{}
	}
}

type silentLogger struct{}

func (silentLogger) Info(string, ...interface{})  {}
func (silentLogger) Warn(string, ...interface{})  {}
func (silentLogger) Error(string, ...interface{}) {}

func startRelay(t *testing.T, client *redis.Client, local LocalPublisher) *Relay {
	t.Helper()
	relay := NewRelay(client, local, "", silentLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-relay.Ready():
	case err := <-done:
		t.Fatalf("relay stopped: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not subscribe")
	}
	return relay
}

func TestRelay_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	local := newRecordingHub()
	relay := startRelay(t, client, local)

	rule := &domain.AvailabilityRule{ID: 3, DoctorID: 42, IsRecurring: true, IsAvailable: true}
	relay.Publish(42, domain.NewAvailabilityEvent(domain.ActionDelete, rule))

	d := local.next(t)
	assert.Equal(t, int64(42), d.doctorID)
	assert.Equal(t, domain.EventAvailability, d.event.Type)
	assert.Equal(t, domain.ActionDelete, d.event.Action)

	data, ok := d.event.Data.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 3, data["id"])
}

func TestRelay_FanOutBetweenInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer clientA.Close()
	defer clientB.Close()

	localA, localB := newRecordingHub(), newRecordingHub()
	relayA := startRelay(t, clientA, localA)
	startRelay(t, clientB, localB)

	relayA.Publish(7, domain.Event{Type: domain.EventAppointment, Action: domain.ActionBook, DoctorID: 7})

	assert.Equal(t, int64(7), localA.next(t).doctorID)
	assert.Equal(t, int64(7), localB.next(t).doctorID)
}

func TestRelay_FallsBackToLocalWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	local := newRecordingHub()
	relay := NewRelay(client, local, "", silentLogger{})

	relay.Publish(5, domain.Event{Type: domain.EventAvailability, Action: domain.ActionCreate, DoctorID: 5})

	d := local.next(t)
	assert.Equal(t, int64(5), d.doctorID)
	assert.Equal(t, domain.ActionCreate, d.event.Action)
}

func TestRelay_ForwardRejectsBadMessages(t *testing.T) {
	relay := NewRelay(nil, newRecordingHub(), "", silentLogger{})

	err := relay.forward(&redis.Message{Channel: DefaultChannelPrefix + "abc", Payload: "{}"})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	err = relay.forward(&redis.Message{Channel: DefaultChannelPrefix + "1", Payload: "not json"})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}
