package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	"github.com/m04kA/SMC-ScheduleService/internal/hub"
	apptRepo "github.com/m04kA/SMC-ScheduleService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-ScheduleService/internal/service/appointments/models"
)

// Service сервис жизненного цикла приёмов
type Service struct {
	apptRepo   AppointmentRepository
	authClient AuthServiceClient
	txManager  TransactionManager
	publisher  Publisher
	sequencer  Sequencer
	logger     Logger
}

// Option настраивает сервис
type Option func(*Service)

// WithSequencer задаёт общий для процесса порядок изменений по врачу
func WithSequencer(seq Sequencer) Option {
	return func(s *Service) {
		if seq != nil {
			s.sequencer = seq
		}
	}
}

// NewService создает новый экземпляр сервиса приёмов
func NewService(
	apptRepo AppointmentRepository,
	authClient AuthServiceClient,
	txManager TransactionManager,
	publisher Publisher,
	logger Logger,
	opts ...Option,
) *Service {
	s := &Service{
		apptRepo:   apptRepo,
		authClient: authClient,
		txManager:  txManager,
		publisher:  publisher,
		sequencer:  hub.NewSequencer(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetByID получает приём. Видеть приём может сам пациент или сотрудник с правом просмотра.
func (s *Service) GetByID(ctx context.Context, id, callerID int64) (*models.AppointmentResponse, error) {
	s.logger.Info("GetByID: fetching appointment id=%d for user=%d", id, callerID)

	appt, err := s.apptRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apptRepo.ErrAppointmentNotFound) {
			s.logger.Warn("GetByID: appointment id=%d not found", id)
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("GetByID: repository error for appointment id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %w", ErrInternal, err)
	}

	if appt.PatientID != callerID {
		if err := s.authorize(ctx, "GetByID", callerID, appt.DoctorID, domain.PermissionViewAppointments); err != nil {
			return nil, err
		}
	}

	return models.FromDomainAppointment(appt), nil
}

// Transition меняет статус приёма по таблице переходов
func (s *Service) Transition(ctx context.Context, req *models.TransitionRequest) (*models.AppointmentResponse, error) {
	s.logger.Info("Transition: appointment id=%d -> %s by user=%d", req.AppointmentID, req.Status, req.CallerID)

	next, err := domain.ParseAppointmentStatus(req.Status)
	if err != nil {
		s.logger.Warn("Transition: invalid status=%q", req.Status)
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, req.Status)
	}

	return s.changeStatus(ctx, "Transition", req.AppointmentID, req.CallerID, func(appt *domain.Appointment) (domain.AppointmentStatus, *string, error) {
		if !appt.Status.CanTransitionTo(next) {
			return "", nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, next)
		}
		return next, nil, nil
	}, func(appt *domain.Appointment) error {
		return s.authorize(ctx, "Transition", req.CallerID, appt.DoctorID, domain.PermissionManageSchedule)
	})
}

// Cancel отменяет приём из любого нетерминального статуса.
// Отменить может сам пациент или сотрудник с правом управления расписанием.
func (s *Service) Cancel(ctx context.Context, req *models.CancelRequest) (*models.AppointmentResponse, error) {
	s.logger.Info("Cancel: cancelling appointment id=%d by user=%d", req.AppointmentID, req.CallerID)

	if req.Reason != nil && len([]rune(*req.Reason)) > domain.MaxCancellationReasonLength {
		return nil, fmt.Errorf("%w: reason must be at most %d characters", ErrInvalidInput, domain.MaxCancellationReasonLength)
	}

	return s.changeStatus(ctx, "Cancel", req.AppointmentID, req.CallerID, func(appt *domain.Appointment) (domain.AppointmentStatus, *string, error) {
		if appt.Status.IsTerminal() {
			return "", nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, domain.StatusCancelled)
		}
		return domain.StatusCancelled, req.Reason, nil
	}, func(appt *domain.Appointment) error {
		if appt.PatientID == req.CallerID {
			return nil
		}
		return s.authorize(ctx, "Cancel", req.CallerID, appt.DoctorID, domain.PermissionManageSchedule)
	})
}

type decideFunc func(appt *domain.Appointment) (domain.AppointmentStatus, *string, error)
type accessFunc func(appt *domain.Appointment) error

// changeStatus читает приём, проверяет права и переход под блокировкой строки, сохраняет и публикует событие
func (s *Service) changeStatus(ctx context.Context, op string, id, callerID int64, decide decideFunc, access accessFunc) (*models.AppointmentResponse, error) {
	if id <= 0 || callerID <= 0 {
		return nil, fmt.Errorf("%w: appointmentID and callerID must be positive", ErrInvalidInput)
	}

	current, err := s.apptRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apptRepo.ErrAppointmentNotFound) {
			s.logger.Warn("%s: appointment id=%d not found", op, id)
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("%s: repository error for appointment id=%d: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - get appointment: %w", ErrInternal, op, err)
	}
	if err := access(current); err != nil {
		return nil, err
	}

	unlock := s.sequencer.Lock(current.DoctorID)
	defer unlock()

	var updated *domain.Appointment
	err = s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		locked, err := s.apptRepo.GetByID(txCtx, id)
		if err != nil {
			if errors.Is(err, apptRepo.ErrAppointmentNotFound) {
				return ErrAppointmentNotFound
			}
			return fmt.Errorf("%w: %s - get appointment: %w", ErrInternal, op, err)
		}

		next, reason, err := decide(locked)
		if err != nil {
			return err
		}

		updated, err = s.apptRepo.UpdateStatus(txCtx, id, next, reason)
		if err != nil {
			return fmt.Errorf("%w: %s - update status: %w", ErrInternal, op, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrAppointmentNotFound) {
			s.logger.Warn("%s: %v", op, err)
		} else {
			s.logger.Error("%s: transaction failed: %v", op, err)
		}
		return nil, err
	}

	s.publisher.Publish(updated.DoctorID, domain.NewAppointmentEvent(domain.ActionStatus, updated))

	s.logger.Info("%s: appointment id=%d is now %s", op, id, updated.Status)
	return models.FromDomainAppointment(updated), nil
}

func (s *Service) authorize(ctx context.Context, op string, callerID, doctorID int64, permission string) error {
	allowed, err := s.authClient.CanAccess(ctx, callerID, doctorID, permission)
	if err != nil {
		s.logger.Error("%s: failed to check access for user=%d: %v", op, callerID, err)
		return fmt.Errorf("%w: %s - check access: %w", ErrInternal, op, err)
	}
	if !allowed {
		s.logger.Warn("%s: user=%d has no %s on doctor=%d", op, callerID, permission, doctorID)
		return ErrAccessDenied
	}
	return nil
}
