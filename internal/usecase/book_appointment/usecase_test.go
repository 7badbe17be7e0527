package book_appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	apptRepo "github.com/m04kA/SMC-ScheduleService/internal/infra/storage/appointment"
	doctorClient "github.com/m04kA/SMC-ScheduleService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-ScheduleService/pkg/types"
)

// 2025-01-06 - понедельник
var monday = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func at(clock string) time.Time {
	return types.MustTimeOfDay(clock).On(monday)
}

type memRules struct {
	rules []*domain.AvailabilityRule
}

func (m *memRules) ListForDate(_ context.Context, doctorID int64, date time.Time) ([]*domain.AvailabilityRule, error) {
	var result []*domain.AvailabilityRule
	for _, r := range m.rules {
		if r.DoctorID == doctorID && r.AppliesTo(date) {
			result = append(result, r)
		}
	}
	return result, nil
}

type memAppointments struct {
	mu           sync.Mutex
	nextID       int64
	appointments []*domain.Appointment
	createErr    error
}

func (m *memAppointments) ListActiveOverlapping(_ context.Context, doctorID int64, start, end time.Time) ([]*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	candidate := domain.TimeRange{Start: start, End: end}
	var result []*domain.Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.IsActive() && a.Range().Overlaps(candidate) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *memAppointments) Create(_ context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	appt.ID = m.nextID
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	m.appointments = append(m.appointments, appt)
	return appt, nil
}

func (m *memAppointments) active(doctorID int64) []*domain.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.IsActive() {
			result = append(result, a)
		}
	}
	return result
}

// serialTx исполняет транзакции строго по одной, как сериализуемый уровень изоляции
type serialTx struct {
	mu sync.Mutex
}

func (s *serialTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}

type doctors map[int64]*domain.Doctor

func (d doctors) GetDoctor(_ context.Context, id int64) (*domain.Doctor, error) {
	doctor, ok := d[id]
	if !ok {
		return nil, doctorClient.ErrDoctorNotFound
	}
	return doctor, nil
}

type allowList map[int64]bool

func (a allowList) CanAccess(_ context.Context, userID, _ int64, permission string) (bool, error) {
	if permission != domain.PermissionBook {
		return false, errors.New("unexpected permission")
	}
	return a[userID], nil
}

type publisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *publisher) Publish(_ int64, event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

type outcomes struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *outcomes) IncBooking(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[outcome]++
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

type silentLogger struct{}

func (silentLogger) Info(string, ...interface{})  {}
func (silentLogger) Warn(string, ...interface{})  {}
func (silentLogger) Error(string, ...interface{}) {}

type fixture struct {
	uc       *UseCase
	appts    *memAppointments
	events   *publisher
	outcomes *outcomes
}

func newFixture(rules ...*domain.AvailabilityRule) *fixture {
	f := &fixture{
		appts:    &memAppointments{},
		events:   &publisher{},
		outcomes: &outcomes{counts: make(map[string]int)},
	}
	f.uc = NewUseCase(
		&memRules{rules: rules},
		f.appts,
		doctors{
			1: {ID: 1, FullName: "Ivan Petrov", IsActive: true},
			2: {ID: 2, FullName: "Retired Doctor", IsActive: false},
		},
		allowList{100: true},
		&serialTx{},
		f.events,
		time.UTC,
		silentLogger{},
		WithRecorder(f.outcomes),
	)
	f.uc.timeProvider = fixedClock(monday.AddDate(0, 0, -1))
	return f
}

func mondayWindow(start, end string) *domain.AvailabilityRule {
	return &domain.AvailabilityRule{
		ID:                  1,
		DoctorID:            1,
		DayOfWeek:           int(time.Monday),
		StartTime:           types.MustTimeOfDay(start),
		EndTime:             types.MustTimeOfDay(end),
		IsRecurring:         true,
		IsAvailable:         true,
		SlotDurationMinutes: 30,
	}
}

func request(start string, duration int) *Request {
	return &Request{CallerID: 100, DoctorID: 1, PatientID: 100, StartTime: at(start), DurationMinutes: duration}
}

func TestBook_Success(t *testing.T) {
	f := newFixture(mondayWindow("09:00", "12:00"))

	resp, err := f.uc.Execute(context.Background(), request("10:00", 30))
	require.NoError(t, err)

	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, at("10:30"), resp.EndTime)
	assert.Equal(t, string(domain.StatusScheduled), resp.Status)
	assert.Equal(t, domain.DefaultAppointmentType, resp.Type)
	assert.Equal(t, 30, resp.DurationMinutes)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, domain.EventAppointment, f.events.events[0].Type)
	assert.Equal(t, domain.ActionBook, f.events.events[0].Action)
	assert.Equal(t, 1, f.outcomes.counts[OutcomeBooked])
}

func TestBook_DefaultDuration(t *testing.T) {
	f := newFixture(mondayWindow("09:00", "12:00"))

	resp, err := f.uc.Execute(context.Background(), request("11:30", 0))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSlotDurationMinutes, resp.DurationMinutes)
}

func TestBook_OutsideWindow(t *testing.T) {
	f := newFixture(mondayWindow("09:00", "12:00"))

	for _, tc := range []struct {
		name  string
		start string
		dur   int
	}{
		{"before window", "08:30", 30},
		{"straddles window end", "11:45", 30},
		{"after window", "13:00", 30},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.uc.Execute(context.Background(), request(tc.start, tc.dur))
			assert.ErrorIs(t, err, ErrNotAvailable)
		})
	}
	assert.Empty(t, f.appts.active(1))
	assert.Empty(t, f.events.events)
	assert.Equal(t, 3, f.outcomes.counts[OutcomeNotAvailable])
}

func TestBook_WrongWeekday(t *testing.T) {
	f := newFixture(mondayWindow("09:00", "12:00"))

	req := request("10:00", 30)
	req.StartTime = req.StartTime.AddDate(0, 0, 1)

	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestBook_BlockedBySpecificDateRule(t *testing.T) {
	date := monday
	blocked := &domain.AvailabilityRule{
		ID:           2,
		DoctorID:     1,
		DayOfWeek:    int(time.Monday),
		StartTime:    types.MustTimeOfDay("10:00"),
		EndTime:      types.MustTimeOfDay("11:00"),
		SpecificDate: &date,
		IsAvailable:  false,
	}
	f := newFixture(mondayWindow("09:00", "12:00"), blocked)

	_, err := f.uc.Execute(context.Background(), request("10:30", 30))
	assert.ErrorIs(t, err, ErrNotAvailable)

	_, err = f.uc.Execute(context.Background(), request("11:00", 30))
	assert.NoError(t, err)
}

func TestBook_SpecificDateWindowKeepsWeeklyWindow(t *testing.T) {
	date := monday
	extra := &domain.AvailabilityRule{
		ID:                  3,
		DoctorID:            1,
		DayOfWeek:           int(time.Monday),
		StartTime:           types.MustTimeOfDay("14:00"),
		EndTime:             types.MustTimeOfDay("16:00"),
		SpecificDate:        &date,
		IsAvailable:         true,
		SlotDurationMinutes: 30,
	}
	f := newFixture(mondayWindow("09:00", "12:00"), extra)

	_, err := f.uc.Execute(context.Background(), request("10:00", 30))
	require.NoError(t, err)

	_, err = f.uc.Execute(context.Background(), request("14:30", 30))
	require.NoError(t, err)

	_, err = f.uc.Execute(context.Background(), request("12:30", 30))
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestBook_ConflictCarriesAppointment(t *testing.T) {
	f := newFixture(mondayWindow("09:00", "12:00"))

	first, err := f.uc.Execute(context.Background(), request("10:00", 30))
	require.NoError(t, err)

	_, err = f.uc.Execute(context.Background(), request("10:15", 30))
	require.ErrorIs(t, err, ErrSlotConflict)

	var conflict *SlotConflictError
	require.True(t, errors.As(err, &conflict))
	require.NotNil(t, conflict.Appointment)
	assert.Equal(t, first.ID, conflict.Appointment.ID)

	_, err = f.uc.Execute(context.Background(), request("10:30", 30))
	assert.NoError(t, err, "touching appointments do not overlap")
}

func TestBook_CancelledAppointmentFreesTime(t *testing.T) {
	f := newFixture(mondayWindow("09:00", "12:00"))
	f.appts.appointments = []*domain.Appointment{
		{ID: 7, DoctorID: 1, PatientID: 5, StartTime: at("10:00"), EndTime: at("10:30"), Status: domain.StatusCancelled},
	}
	f.appts.nextID = 7

	_, err := f.uc.Execute(context.Background(), request("10:00", 30))
	assert.NoError(t, err)
}

func TestBook_ConstraintViolationIsConflict(t *testing.T) {
	f := newFixture(mondayWindow("09:00", "12:00"))
	f.appts.createErr = apptRepo.ErrOverlap

	_, err := f.uc.Execute(context.Background(), request("10:00", 30))
	require.ErrorIs(t, err, ErrSlotConflict)

	var conflict *SlotConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Nil(t, conflict.Appointment)
}

func TestBook_ConcurrentSameSlot(t *testing.T) {
	f := newFixture(mondayWindow("09:00", "12:00"))

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.Execute(context.Background(), request("10:00", 30))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrSlotConflict)
	}
	assert.Equal(t, 1, succeeded)

	active := f.appts.active(1)
	require.Len(t, active, 1)
	assert.Equal(t, attempts-1, f.outcomes.counts[OutcomeConflict])
}

func TestBook_EventsFollowCommitOrder(t *testing.T) {
	f := newFixture(mondayWindow("09:00", "12:00"))
	starts := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}

	var wg sync.WaitGroup
	for _, start := range starts {
		wg.Add(1)
		go func(start string) {
			defer wg.Done()
			_, err := f.uc.Execute(context.Background(), request(start, 30))
			assert.NoError(t, err)
		}(start)
	}
	wg.Wait()

	committed := f.appts.active(1)
	require.Len(t, committed, len(starts))
	require.Len(t, f.events.events, len(starts))

	for i, ev := range f.events.events {
		payload, ok := ev.Data.(domain.AppointmentPayload)
		require.True(t, ok)
		assert.Equal(t, committed[i].ID, payload.ID, "event %d out of commit order", i)
	}
}

func TestBook_Rejections(t *testing.T) {
	f := newFixture(mondayWindow("09:00", "12:00"))

	tests := []struct {
		name   string
		mutate func(r *Request)
		want   error
	}{
		{"zero doctor", func(r *Request) { r.DoctorID = 0 }, ErrInvalidInput},
		{"zero patient", func(r *Request) { r.PatientID = 0 }, ErrInvalidInput},
		{"no start", func(r *Request) { r.StartTime = time.Time{} }, ErrInvalidInput},
		{"seconds in start", func(r *Request) { r.StartTime = r.StartTime.Add(time.Second) }, ErrInvalidInput},
		{"start in past", func(r *Request) { r.StartTime = monday.AddDate(0, 0, -7) }, ErrInvalidInput},
		{"duration too short", func(r *Request) { r.DurationMinutes = 1 }, ErrInvalidInput},
		{"duration too long", func(r *Request) { r.DurationMinutes = domain.MaxSlotDurationMinutes + 1 }, ErrInvalidInput},
		{"caller without permission", func(r *Request) { r.CallerID = 200 }, ErrAccessDenied},
		{"unknown doctor", func(r *Request) { r.DoctorID = 3 }, ErrDoctorNotFound},
		{"inactive doctor", func(r *Request) { r.DoctorID = 2 }, ErrDoctorNotFound},
		{"crosses midnight", func(r *Request) { r.StartTime = at("23:45") }, ErrNotAvailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := request("10:00", 30)
			tc.mutate(req)

			_, err := f.uc.Execute(context.Background(), req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, f.appts.active(1))
}
