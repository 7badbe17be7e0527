package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	apptRepo "github.com/m04kA/SMC-ScheduleService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-ScheduleService/internal/service/appointments/models"
	"github.com/m04kA/SMC-ScheduleService/pkg/ptr"
)

const (
	doctorID  int64 = 7
	patientID int64 = 42
	staffID   int64 = 100
	otherID   int64 = 200
)

type fakeRepo struct {
	appointments map[int64]*domain.Appointment
}

func (r *fakeRepo) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, apptRepo.ErrAppointmentNotFound
	}
	c := *a
	return &c, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id int64, status domain.AppointmentStatus, reason *string) (*domain.Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, apptRepo.ErrAppointmentNotFound
	}
	a.Status = status
	if status == domain.StatusCancelled {
		now := time.Now()
		a.CancellationReason = reason
		a.CancelledAt = &now
	}
	c := *a
	return &c, nil
}

type fakeAuth struct{}

func (fakeAuth) CanAccess(_ context.Context, userID, _ int64, _ string) (bool, error) {
	return userID == staffID, nil
}

type fakeTx struct{}

func (fakeTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingPublisher struct {
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ int64, event domain.Event) {
	p.events = append(p.events, event)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func newService(status domain.AppointmentStatus) (*Service, *fakeRepo, *recordingPublisher) {
	start := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{appointments: map[int64]*domain.Appointment{
		1: {
			ID:        1,
			DoctorID:  doctorID,
			PatientID: patientID,
			Type:      domain.DefaultAppointmentType,
			StartTime: start,
			EndTime:   start.Add(30 * time.Minute),
			Status:    status,
		},
	}}
	pub := &recordingPublisher{}
	return NewService(repo, fakeAuth{}, fakeTx{}, pub, nopLogger{}), repo, pub
}

func TestService_Transition_HappyPath(t *testing.T) {
	svc, _, pub := newService(domain.StatusScheduled)
	ctx := context.Background()

	path := []domain.AppointmentStatus{
		domain.StatusConfirmed,
		domain.StatusCheckedIn,
		domain.StatusInProgress,
		domain.StatusCompleted,
	}
	for _, next := range path {
		resp, err := svc.Transition(ctx, &models.TransitionRequest{CallerID: staffID, AppointmentID: 1, Status: string(next)})
		require.NoError(t, err, next)
		assert.Equal(t, string(next), resp.Status)
	}

	require.Len(t, pub.events, len(path))
	assert.Equal(t, domain.EventAppointment, pub.events[0].Type)
	assert.Equal(t, domain.ActionStatus, pub.events[0].Action)
}

func TestService_Transition_Invalid(t *testing.T) {
	svc, repo, pub := newService(domain.StatusScheduled)
	ctx := context.Background()

	_, err := svc.Transition(ctx, &models.TransitionRequest{CallerID: staffID, AppointmentID: 1, Status: "COMPLETED"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, domain.StatusScheduled, repo.appointments[1].Status)

	_, err = svc.Transition(ctx, &models.TransitionRequest{CallerID: staffID, AppointmentID: 1, Status: "DONE"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Transition(ctx, &models.TransitionRequest{CallerID: staffID, AppointmentID: 404, Status: "CONFIRMED"})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = svc.Transition(ctx, &models.TransitionRequest{CallerID: patientID, AppointmentID: 1, Status: "CONFIRMED"})
	assert.ErrorIs(t, err, ErrAccessDenied, "patient cannot confirm on their own")

	assert.Empty(t, pub.events)
}

func TestService_Transition_TerminalStatesAreFinal(t *testing.T) {
	for _, terminal := range []domain.AppointmentStatus{domain.StatusCompleted, domain.StatusCancelled, domain.StatusNoShow} {
		svc, _, _ := newService(terminal)
		_, err := svc.Transition(context.Background(), &models.TransitionRequest{CallerID: staffID, AppointmentID: 1, Status: "SCHEDULED"})
		assert.ErrorIs(t, err, ErrInvalidTransition, terminal)
	}
}

func TestService_Cancel(t *testing.T) {
	for _, status := range domain.ActiveStatuses {
		t.Run(string(status), func(t *testing.T) {
			svc, repo, pub := newService(status)

			resp, err := svc.Cancel(context.Background(), &models.CancelRequest{
				CallerID:      patientID,
				AppointmentID: 1,
				Reason:        ptr.Ptr("feeling better"),
			})
			require.NoError(t, err)
			assert.Equal(t, string(domain.StatusCancelled), resp.Status)
			require.NotNil(t, repo.appointments[1].CancellationReason)
			assert.Equal(t, "feeling better", *repo.appointments[1].CancellationReason)
			assert.Len(t, pub.events, 1)
		})
	}
}

func TestService_Cancel_Errors(t *testing.T) {
	svc, _, _ := newService(domain.StatusCancelled)
	_, err := svc.Cancel(context.Background(), &models.CancelRequest{CallerID: patientID, AppointmentID: 1})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	svc, _, _ = newService(domain.StatusScheduled)
	_, err = svc.Cancel(context.Background(), &models.CancelRequest{CallerID: otherID, AppointmentID: 1})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.Cancel(context.Background(), &models.CancelRequest{CallerID: staffID, AppointmentID: 1})
	assert.NoError(t, err, "staff can cancel")
}

func TestService_GetByID(t *testing.T) {
	svc, _, _ := newService(domain.StatusScheduled)
	ctx := context.Background()

	resp, err := svc.GetByID(ctx, 1, patientID)
	require.NoError(t, err)
	assert.Equal(t, 30, resp.DurationMinutes)

	_, err = svc.GetByID(ctx, 1, staffID)
	assert.NoError(t, err)

	_, err = svc.GetByID(ctx, 1, otherID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.GetByID(ctx, 2, patientID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
