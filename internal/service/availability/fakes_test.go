package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	ruleRepo "github.com/m04kA/SMC-ScheduleService/internal/infra/storage/availability"
	doctorClient "github.com/m04kA/SMC-ScheduleService/internal/integrations/doctorservice"
)

type fakeRuleRepo struct {
	mu     sync.Mutex
	nextID int64
	rules  map[int64]*domain.AvailabilityRule
	calls  int
}

func newFakeRuleRepo(rules ...*domain.AvailabilityRule) *fakeRuleRepo {
	r := &fakeRuleRepo{rules: make(map[int64]*domain.AvailabilityRule)}
	for _, rule := range rules {
		r.nextID++
		rule.ID = r.nextID
		r.rules[rule.ID] = rule.Clone()
	}
	return r
}

func (r *fakeRuleRepo) Create(_ context.Context, rule *domain.AvailabilityRule) (*domain.AvailabilityRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.nextID++
	rule.ID = r.nextID
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt
	r.rules[rule.ID] = rule.Clone()
	return rule, nil
}

func (r *fakeRuleRepo) GetByID(_ context.Context, id int64) (*domain.AvailabilityRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	rule, ok := r.rules[id]
	if !ok {
		return nil, ruleRepo.ErrRuleNotFound
	}
	return rule.Clone(), nil
}

func (r *fakeRuleRepo) ListByScope(_ context.Context, scope domain.RuleScope) ([]*domain.AvailabilityRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	var result []*domain.AvailabilityRule
	for _, rule := range r.sorted() {
		if rule.Scope() == scope {
			result = append(result, rule.Clone())
		}
	}
	return result, nil
}

func (r *fakeRuleRepo) List(_ context.Context, q domain.AvailabilityQuery) ([]*domain.AvailabilityRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	var result []*domain.AvailabilityRule
	for _, rule := range r.sorted() {
		if q.Matches(rule) {
			result = append(result, rule.Clone())
		}
	}
	return result, nil
}

func (r *fakeRuleRepo) Update(_ context.Context, rule *domain.AvailabilityRule) (*domain.AvailabilityRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if _, ok := r.rules[rule.ID]; !ok {
		return nil, ruleRepo.ErrRuleNotFound
	}
	rule.UpdatedAt = time.Now()
	r.rules[rule.ID] = rule.Clone()
	return rule, nil
}

func (r *fakeRuleRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if _, ok := r.rules[id]; !ok {
		return ruleRepo.ErrRuleNotFound
	}
	delete(r.rules, id)
	return nil
}

func (r *fakeRuleRepo) sorted() []*domain.AvailabilityRule {
	result := make([]*domain.AvailabilityRule, 0, len(r.rules))
	for _, rule := range r.rules {
		result = append(result, rule)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

type fakeApptRepo struct {
	appointments []*domain.Appointment
	lastFrom     time.Time
	lastTo       time.Time
}

func (r *fakeApptRepo) ListActiveInScope(_ context.Context, scope domain.RuleScope, _ string) ([]*domain.Appointment, error) {
	var result []*domain.Appointment
	for _, a := range r.appointments {
		if a.DoctorID == scope.DoctorID && a.IsActive() {
			result = append(result, a)
		}
	}
	return result, nil
}

func (r *fakeApptRepo) ListInRange(_ context.Context, doctorID int64, from, to time.Time, activeOnly bool) ([]*domain.Appointment, error) {
	r.lastFrom, r.lastTo = from, to
	var result []*domain.Appointment
	for _, a := range r.appointments {
		if a.DoctorID != doctorID || a.StartTime.Before(from) || !a.StartTime.Before(to) {
			continue
		}
		if activeOnly && !a.IsActive() {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

type fakeDoctors struct {
	doctors  map[int64]*domain.Doctor
	degraded bool
}

func (d *fakeDoctors) GetDoctor(_ context.Context, id int64) (*domain.Doctor, error) {
	doctor, ok := d.doctors[id]
	if !ok {
		return nil, doctorClient.ErrDoctorNotFound
	}
	return doctor, nil
}

func (d *fakeDoctors) GetDoctorWithGracefulDegradation(ctx context.Context, id int64) (*domain.Doctor, error) {
	if d.degraded {
		return nil, doctorClient.ErrServiceDegraded
	}
	return d.GetDoctor(ctx, id)
}

type fakeAuth struct {
	allowed map[int64]bool
}

func (a *fakeAuth) CanAccess(_ context.Context, userID, _ int64, _ string) (bool, error) {
	return a.allowed[userID], nil
}

type fakeTx struct {
	calls int
}

func (f *fakeTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(doctorID int64, event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	event.DoctorID = doctorID
	p.events = append(p.events, event)
}

type fixedTime struct {
	now time.Time
}

func (f fixedTime) Now() time.Time { return f.now }

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
