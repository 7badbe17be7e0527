package book_appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	apptRepo "github.com/m04kA/SMC-ScheduleService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-ScheduleService/internal/hub"
	doctorClient "github.com/m04kA/SMC-ScheduleService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-ScheduleService/pkg/types"
)

// UseCase use case для записи пациента к врачу
type UseCase struct {
	ruleRepo     RuleRepository
	apptRepo     AppointmentRepository
	doctorClient DoctorServiceClient
	authClient   AuthServiceClient
	txManager    TransactionManager
	publisher    Publisher
	recorder     Recorder
	sequencer    Sequencer
	location     *time.Location
	timeProvider TimeProvider
	logger       Logger
}

// Option настраивает use case
type Option func(*UseCase)

// WithRecorder подключает метрики исходов записи
func WithRecorder(r Recorder) Option {
	return func(uc *UseCase) {
		if r != nil {
			uc.recorder = r
		}
	}
}

// WithSequencer задаёт общий для процесса порядок изменений по врачу
func WithSequencer(seq Sequencer) Option {
	return func(uc *UseCase) {
		if seq != nil {
			uc.sequencer = seq
		}
	}
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	ruleRepo RuleRepository,
	apptRepo AppointmentRepository,
	doctorClient DoctorServiceClient,
	authClient AuthServiceClient,
	txManager TransactionManager,
	publisher Publisher,
	location *time.Location,
	logger Logger,
	opts ...Option,
) *UseCase {
	if location == nil {
		location = time.UTC
	}
	uc := &UseCase{
		ruleRepo:     ruleRepo,
		apptRepo:     apptRepo,
		doctorClient: doctorClient,
		authClient:   authClient,
		txManager:    txManager,
		publisher:    publisher,
		recorder:     nopRecorder{},
		sequencer:    hub.NewSequencer(),
		location:     location,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Execute выполняет use case записи.
// Проверка рабочего окна, проверка пересечений и вставка выполняются в одной
// сериализуемой транзакции; exclusion constraint в БД страхует от параллельной записи.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	result, err := uc.book(ctx, req)
	uc.recorder.IncBooking(outcome(err))
	if err != nil {
		return nil, err
	}

	return &Response{
		ID:              result.ID,
		DoctorID:        result.DoctorID,
		PatientID:       result.PatientID,
		Type:            result.Type,
		StartTime:       result.StartTime,
		EndTime:         result.EndTime,
		DurationMinutes: result.DurationMinutes(),
		Status:          string(result.Status),
		Notes:           result.Notes,
		CreatedAt:       result.CreatedAt,
		UpdatedAt:       result.UpdatedAt,
	}, nil
}

func (uc *UseCase) book(ctx context.Context, req *Request) (*domain.Appointment, error) {
	uc.logger.Info("Book: caller=%d, doctor=%d, patient=%d, start=%s, duration=%d",
		req.CallerID, req.DoctorID, req.PatientID, req.StartTime.Format(time.RFC3339), req.DurationMinutes)

	// 1. Валидация входных данных
	if err := validateRequest(req, uc.timeProvider.Now()); err != nil {
		uc.logger.Warn("Book: validation failed: %v", err)
		return nil, err
	}

	// 2. Проверяем право записи к врачу
	allowed, err := uc.authClient.CanAccess(ctx, req.CallerID, req.DoctorID, domain.PermissionBook)
	if err != nil {
		uc.logger.Error("Book: failed to check access for user id=%d: %v", req.CallerID, err)
		return nil, fmt.Errorf("%w: failed to check access: %w", ErrInternal, err)
	}
	if !allowed {
		uc.logger.Warn("Book: user id=%d has no %s permission for doctor id=%d", req.CallerID, domain.PermissionBook, req.DoctorID)
		return nil, ErrAccessDenied
	}

	// 3. Проверяем врача
	doctor, err := uc.doctorClient.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, doctorClient.ErrDoctorNotFound) {
			uc.logger.Warn("Book: doctor id=%d not found", req.DoctorID)
			return nil, ErrDoctorNotFound
		}
		uc.logger.Error("Book: failed to get doctor id=%d: %v", req.DoctorID, err)
		return nil, fmt.Errorf("%w: failed to get doctor: %w", ErrInternal, err)
	}
	if !doctor.IsActive {
		uc.logger.Warn("Book: doctor id=%d is inactive", req.DoctorID)
		return nil, ErrDoctorNotFound
	}

	// 4. Переводим запрос во время клиники
	start := req.StartTime.In(uc.location)
	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)
	date := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, uc.location)

	clock, ok := clockRange(start, req.DurationMinutes)
	if !ok {
		uc.logger.Warn("Book: appointment %s-%s crosses midnight", start.Format(time.RFC3339), end.Format(time.RFC3339))
		return nil, ErrNotAvailable
	}

	unlock := uc.sequencer.Lock(req.DoctorID)
	defer unlock()

	var result *domain.Appointment

	// 5. Проверки и вставка в одной сериализуемой транзакции
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 5.1. Рабочие окна врача на эту дату
		rules, err := uc.ruleRepo.ListForDate(txCtx, req.DoctorID, date)
		if err != nil {
			uc.logger.Error("Book: failed to get rules: %v", err)
			return fmt.Errorf("%w: failed to get rules: %w", ErrInternal, err)
		}

		day := domain.ResolveDay(rules, date)
		if !day.Permits(clock) {
			uc.logger.Warn("Book: %s %s is outside of doctor id=%d windows", date.Format(domain.DateFormat), clock, req.DoctorID)
			return ErrNotAvailable
		}

		// 5.2. Активные приёмы, пересекающие запрошенное время (FOR UPDATE)
		overlapping, err := uc.apptRepo.ListActiveOverlapping(txCtx, req.DoctorID, start, end)
		if err != nil {
			uc.logger.Error("Book: failed to get overlapping appointments: %v", err)
			return fmt.Errorf("%w: failed to get appointments: %w", ErrInternal, err)
		}
		if len(overlapping) > 0 {
			uc.logger.Warn("Book: requested time overlaps appointment id=%d", overlapping[0].ID)
			return &SlotConflictError{Appointment: overlapping[0]}
		}

		// 5.3. Создаём приём
		created, err := uc.apptRepo.Create(txCtx, &domain.Appointment{
			DoctorID:  req.DoctorID,
			PatientID: req.PatientID,
			Type:      req.Type,
			StartTime: start,
			EndTime:   end,
			Status:    domain.StatusScheduled,
			Notes:     req.Notes,
		})
		if err != nil {
			if errors.Is(err, apptRepo.ErrOverlap) {
				uc.logger.Warn("Book: appointment rejected by overlap constraint")
				return &SlotConflictError{}
			}
			uc.logger.Error("Book: failed to create appointment: %v", err)
			return fmt.Errorf("%w: failed to create appointment: %w", ErrInternal, err)
		}

		result = created
		return nil
	})
	if err != nil {
		return nil, mapTxError(err)
	}

	// 6. Событие публикуется до снятия блокировки врача, в порядке фиксации
	uc.publisher.Publish(result.DoctorID, domain.NewAppointmentEvent(domain.ActionBook, result))

	uc.logger.Info("Book: successfully created appointment id=%d", result.ID)
	return result, nil
}

// clockRange возвращает интервал приёма внутри суток; приём через полночь недопустим
func clockRange(start time.Time, durationMinutes int) (domain.ClockRange, bool) {
	from := types.TimeOfDayFromTime(start)
	to, err := from.AddMinutes(durationMinutes)
	if err != nil {
		return domain.ClockRange{}, false
	}
	return domain.NewClockRange(from, to), true
}

// mapTxError оставляет доменные ошибки как есть, остальные превращает во внутренние
func mapTxError(err error) error {
	switch {
	case errors.Is(err, ErrNotAvailable), errors.Is(err, ErrSlotConflict), errors.Is(err, ErrInternal):
		return err
	case errors.Is(err, apptRepo.ErrOverlap):
		return &SlotConflictError{}
	default:
		return fmt.Errorf("%w: transaction failed: %w", ErrInternal, err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeBooked
	case errors.Is(err, ErrSlotConflict):
		return OutcomeConflict
	case errors.Is(err, ErrNotAvailable):
		return OutcomeNotAvailable
	case errors.Is(err, ErrInternal):
		return OutcomeError
	default:
		return OutcomeRejected
	}
}
