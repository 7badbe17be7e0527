package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	"github.com/m04kA/SMC-ScheduleService/internal/hub"
	ruleRepo "github.com/m04kA/SMC-ScheduleService/internal/infra/storage/availability"
	doctorClient "github.com/m04kA/SMC-ScheduleService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-ScheduleService/internal/service/availability/models"
	"github.com/m04kA/SMC-ScheduleService/internal/service/conflicts"
)

// Service сервис управления правилами доступности врачей
type Service struct {
	ruleRepo     RuleRepository
	apptRepo     AppointmentRepository
	doctorClient DoctorServiceClient
	authClient   AuthServiceClient
	txManager    TransactionManager
	publisher    Publisher
	sequencer    Sequencer
	guard        *conflicts.Guard
	location     *time.Location
	timeProvider TimeProvider
	logger       Logger
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

// NewService создает новый экземпляр сервиса правил доступности.
// location - часовой пояс клиники, в котором трактуются даты и время суток правил.
func NewService(
	ruleRepo RuleRepository,
	apptRepo AppointmentRepository,
	doctorClient DoctorServiceClient,
	authClient AuthServiceClient,
	txManager TransactionManager,
	publisher Publisher,
	location *time.Location,
	logger Logger,
	opts ...Option,
) *Service {
	if location == nil {
		location = time.UTC
	}
	s := &Service{
		ruleRepo:     ruleRepo,
		apptRepo:     apptRepo,
		doctorClient: doctorClient,
		authClient:   authClient,
		txManager:    txManager,
		publisher:    publisher,
		sequencer:    hub.NewSequencer(),
		guard:        conflicts.NewGuard(location),
		location:     location,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create создает правило доступности.
// Проверка пересечений и вставка идут в одной сериализуемой транзакции.
func (s *Service) Create(ctx context.Context, req *models.CreateRuleRequest) (*models.RuleResponse, error) {
	s.logger.Info("Create: creating rule for doctor=%d, %s-%s by user=%d",
		req.DoctorID, req.StartTime, req.EndTime, req.CallerID)

	rule, err := buildRule(req, s.location)
	if err != nil {
		s.logger.Warn("Create: validation failed: %v", err)
		return nil, err
	}

	if err := s.authorize(ctx, "Create", req.CallerID, rule.DoctorID); err != nil {
		return nil, err
	}
	if err := s.ensureDoctor(ctx, "Create", rule.DoctorID); err != nil {
		return nil, err
	}

	unlock := s.sequencer.Lock(rule.DoctorID)
	defer unlock()

	var created *domain.AvailabilityRule
	err = s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		existing, err := s.ruleRepo.ListByScope(txCtx, rule.Scope())
		if err != nil {
			return fmt.Errorf("%w: Create - list rules in scope: %w", ErrInternal, err)
		}

		if conflict := s.guard.FindRuleConflict(rule, existing); conflict != nil {
			return &RuleConflictError{Rule: conflict}
		}

		created, err = s.ruleRepo.Create(txCtx, rule)
		if err != nil {
			if errors.Is(err, ruleRepo.ErrOverlap) {
				return &RuleConflictError{}
			}
			return fmt.Errorf("%w: Create - repository error: %w", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		s.logTxError("Create", err)
		return nil, err
	}

	s.publisher.Publish(created.DoctorID, domain.NewAvailabilityEvent(domain.ActionCreate, created))

	s.logger.Info("Create: successfully created rule id=%d for doctor=%d", created.ID, created.DoctorID)
	return models.FromDomainRule(created), nil
}

// Update частично обновляет правило.
// Если меняются только заметки, доступность или длительность слота, проверка пересечений пропускается.
func (s *Service) Update(ctx context.Context, req *models.UpdateRuleRequest) (*models.RuleResponse, error) {
	s.logger.Info("Update: updating rule id=%d by user=%d", req.RuleID, req.CallerID)

	patch, err := buildPatch(req, s.location)
	if err != nil {
		s.logger.Warn("Update: validation failed for rule id=%d: %v", req.RuleID, err)
		return nil, err
	}

	current, err := s.getRule(ctx, "Update", req.RuleID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, "Update", req.CallerID, current.DoctorID); err != nil {
		return nil, err
	}

	unlock := s.sequencer.Lock(current.DoctorID)
	defer unlock()

	var saved *domain.AvailabilityRule
	err = s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		locked, err := s.ruleRepo.GetByID(txCtx, req.RuleID)
		if err != nil {
			if errors.Is(err, ruleRepo.ErrRuleNotFound) {
				return ErrRuleNotFound
			}
			return fmt.Errorf("%w: Update - get rule: %w", ErrInternal, err)
		}

		updated := patch.Apply(locked)
		if err := validateRule(updated); err != nil {
			return err
		}

		if conflicts.ScopeChanged(locked, updated) {
			existing, err := s.ruleRepo.ListByScope(txCtx, updated.Scope())
			if err != nil {
				return fmt.Errorf("%w: Update - list rules in scope: %w", ErrInternal, err)
			}
			if conflict := s.guard.FindRuleConflict(updated, existing); conflict != nil {
				return &RuleConflictError{Rule: conflict}
			}
		}

		saved, err = s.ruleRepo.Update(txCtx, updated)
		if err != nil {
			switch {
			case errors.Is(err, ruleRepo.ErrOverlap):
				return &RuleConflictError{}
			case errors.Is(err, ruleRepo.ErrRuleNotFound):
				return ErrRuleNotFound
			}
			return fmt.Errorf("%w: Update - repository error: %w", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		s.logTxError("Update", err)
		return nil, err
	}

	s.publisher.Publish(saved.DoctorID, domain.NewAvailabilityEvent(domain.ActionUpdate, saved))

	s.logger.Info("Update: successfully updated rule id=%d", saved.ID)
	return models.FromDomainRule(saved), nil
}

// Delete удаляет правило, если на его время нет активных приёмов.
// Для регулярного правила проверяются приёмы в этот день недели за всё время.
func (s *Service) Delete(ctx context.Context, ruleID, callerID int64) error {
	s.logger.Info("Delete: deleting rule id=%d by user=%d", ruleID, callerID)

	if ruleID <= 0 || callerID <= 0 {
		return fmt.Errorf("%w: ruleID and callerID must be positive", ErrInvalidInput)
	}

	current, err := s.getRule(ctx, "Delete", ruleID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, "Delete", callerID, current.DoctorID); err != nil {
		return err
	}

	unlock := s.sequencer.Lock(current.DoctorID)
	defer unlock()

	var deleted *domain.AvailabilityRule
	err = s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		locked, err := s.ruleRepo.GetByID(txCtx, ruleID)
		if err != nil {
			if errors.Is(err, ruleRepo.ErrRuleNotFound) {
				return ErrRuleNotFound
			}
			return fmt.Errorf("%w: Delete - get rule: %w", ErrInternal, err)
		}

		appointments, err := s.apptRepo.ListActiveInScope(txCtx, locked.Scope(), s.location.String())
		if err != nil {
			return fmt.Errorf("%w: Delete - list appointments: %w", ErrInternal, err)
		}
		if covered := s.guard.AppointmentsCoveredBy(locked, appointments); len(covered) > 0 {
			return &RuleInUseError{Appointments: covered}
		}

		if err := s.ruleRepo.Delete(txCtx, ruleID); err != nil {
			if errors.Is(err, ruleRepo.ErrRuleNotFound) {
				return ErrRuleNotFound
			}
			return fmt.Errorf("%w: Delete - repository error: %w", ErrInternal, err)
		}
		deleted = locked
		return nil
	})
	if err != nil {
		s.logTxError("Delete", err)
		return err
	}

	s.publisher.Publish(deleted.DoctorID, domain.NewAvailabilityEvent(domain.ActionDelete, deleted))

	s.logger.Info("Delete: successfully deleted rule id=%d", ruleID)
	return nil
}

// List возвращает расписание врача: правила по фильтру и активные приёмы за период.
// Без дат период начинается сегодня и длится DefaultListWindowDays дней.
func (s *Service) List(ctx context.Context, req *models.ListRequest) (*models.ListResponse, error) {
	s.logger.Info("List: fetching schedule for doctor=%d", req.DoctorID)

	from, to, err := validateListRequest(req, s.location)
	if err != nil {
		s.logger.Warn("List: validation failed: %v", err)
		return nil, err
	}

	doctor, err := s.doctorClient.GetDoctorWithGracefulDegradation(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, doctorClient.ErrDoctorNotFound) {
			s.logger.Warn("List: doctor id=%d not found", req.DoctorID)
			return nil, ErrDoctorNotFound
		}
		// Расписание отдаём и без данных врача
		doctor = nil
	}

	query := domain.AvailabilityQuery{
		DoctorID:  req.DoctorID,
		Recurring: &domain.RecurringClause{DayOfWeek: req.DayOfWeek},
		DateRange: &domain.DateRangeClause{From: from, To: to, DayOfWeek: req.DayOfWeek},
	}
	rules, err := s.ruleRepo.List(ctx, query)
	if err != nil {
		s.logger.Error("List: repository error for doctor=%d: %v", req.DoctorID, err)
		return nil, fmt.Errorf("%w: List - repository error: %w", ErrInternal, err)
	}

	windowStart, windowEnd := s.appointmentWindow(from, to)
	appointments, err := s.apptRepo.ListInRange(ctx, req.DoctorID, windowStart, windowEnd, true)
	if err != nil {
		s.logger.Error("List: failed to list appointments for doctor=%d: %v", req.DoctorID, err)
		return nil, fmt.Errorf("%w: List - list appointments: %w", ErrInternal, err)
	}

	s.logger.Info("List: found %d rules and %d appointments for doctor=%d",
		len(rules), len(appointments), req.DoctorID)

	return &models.ListResponse{
		Doctor:       models.FromDomainDoctor(doctor),
		From:         windowStart.Format(domain.DateFormat),
		To:           windowEnd.AddDate(0, 0, -1).Format(domain.DateFormat),
		Rules:        models.FromDomainRules(rules),
		Appointments: models.FromDomainAppointments(appointments),
	}, nil
}

// appointmentWindow возвращает полуоткрытый период [start, end) для выборки приёмов
func (s *Service) appointmentWindow(from, to *time.Time) (time.Time, time.Time) {
	var start time.Time
	if from != nil {
		start = *from
	} else {
		y, m, d := s.timeProvider.Now().In(s.location).Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, s.location)
	}

	end := start.AddDate(0, 0, domain.DefaultListWindowDays)
	if to != nil {
		end = to.AddDate(0, 0, 1)
	}
	return start, end
}

func (s *Service) getRule(ctx context.Context, op string, id int64) (*domain.AvailabilityRule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ruleRepo.ErrRuleNotFound) {
			s.logger.Warn("%s: rule id=%d not found", op, id)
			return nil, ErrRuleNotFound
		}
		s.logger.Error("%s: repository error for rule id=%d: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - get rule: %w", ErrInternal, op, err)
	}
	return rule, nil
}

func (s *Service) authorize(ctx context.Context, op string, callerID, doctorID int64) error {
	allowed, err := s.authClient.CanAccess(ctx, callerID, doctorID, domain.PermissionManageSchedule)
	if err != nil {
		s.logger.Error("%s: failed to check access for user=%d: %v", op, callerID, err)
		return fmt.Errorf("%w: %s - check access: %w", ErrInternal, op, err)
	}
	if !allowed {
		s.logger.Warn("%s: user=%d cannot manage schedule of doctor=%d", op, callerID, doctorID)
		return ErrAccessDenied
	}
	return nil
}

func (s *Service) ensureDoctor(ctx context.Context, op string, doctorID int64) error {
	doctor, err := s.doctorClient.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, doctorClient.ErrDoctorNotFound) {
			s.logger.Warn("%s: doctor id=%d not found", op, doctorID)
			return ErrDoctorNotFound
		}
		s.logger.Error("%s: failed to get doctor id=%d: %v", op, doctorID, err)
		return fmt.Errorf("%w: %s - get doctor: %w", ErrInternal, op, err)
	}
	if !doctor.IsActive {
		s.logger.Warn("%s: doctor id=%d is inactive", op, doctorID)
		return ErrDoctorNotFound
	}
	return nil
}

func (s *Service) logTxError(op string, err error) {
	var conflict *RuleConflictError
	var inUse *RuleInUseError
	switch {
	case errors.As(err, &conflict):
		s.logger.Warn("%s: %v", op, err)
	case errors.As(err, &inUse):
		s.logger.Warn("%s: %v", op, err)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrRuleNotFound):
		s.logger.Warn("%s: %v", op, err)
	default:
		s.logger.Error("%s: transaction failed: %v", op, err)
	}
}
