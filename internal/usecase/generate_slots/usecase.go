package generate_slots

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	doctorClient "github.com/m04kA/SMC-ScheduleService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-ScheduleService/pkg/types"
)

// UseCase use case для получения слотов врача на день
type UseCase struct {
	ruleRepo     RuleRepository
	apptRepo     AppointmentRepository
	doctorClient DoctorServiceClient
	location     *time.Location
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	ruleRepo RuleRepository,
	apptRepo AppointmentRepository,
	doctorClient DoctorServiceClient,
	location *time.Location,
	logger Logger,
) *UseCase {
	if location == nil {
		location = time.UTC
	}
	return &UseCase{
		ruleRepo:     ruleRepo,
		apptRepo:     apptRepo,
		doctorClient: doctorClient,
		location:     location,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Execute выполняет use case получения слотов.
// Слоты в прошлом возвращаются недоступными.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GenerateSlots: doctor=%d, date=%s", req.DoctorID, req.Date)

	// 1. Валидация входных данных
	if req.DoctorID <= 0 {
		return nil, fmt.Errorf("%w: doctorID must be positive", ErrInvalidInput)
	}
	date, err := time.ParseInLocation(domain.DateFormat, req.Date, uc.location)
	if err != nil {
		uc.logger.Warn("GenerateSlots: invalid date=%q", req.Date)
		return nil, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrInvalidInput, req.Date)
	}

	// 2. Проверяем врача
	if _, err := uc.doctorClient.GetDoctor(ctx, req.DoctorID); err != nil {
		if errors.Is(err, doctorClient.ErrDoctorNotFound) {
			uc.logger.Warn("GenerateSlots: doctor id=%d not found", req.DoctorID)
			return nil, ErrDoctorNotFound
		}
		uc.logger.Error("GenerateSlots: failed to get doctor id=%d: %v", req.DoctorID, err)
		return nil, fmt.Errorf("%w: failed to get doctor: %w", ErrInternal, err)
	}

	// 3. Правила, действующие в эту дату
	rules, err := uc.ruleRepo.ListForDate(ctx, req.DoctorID, date)
	if err != nil {
		uc.logger.Error("GenerateSlots: failed to get rules: %v", err)
		return nil, fmt.Errorf("%w: failed to get rules: %w", ErrInternal, err)
	}

	resp := &Response{DoctorID: req.DoctorID, Date: date, Slots: []Slot{}}

	day := domain.ResolveDay(rules, date)
	if !day.IsWorkingDay() {
		uc.logger.Info("GenerateSlots: doctor=%d does not work on %s", req.DoctorID, req.Date)
		resp.Reason = domain.ReasonNotAvailable
		return resp, nil
	}

	// 4. Активные приёмы на эту дату
	appointments, err := uc.apptRepo.ListInRange(ctx, req.DoctorID, date, date.AddDate(0, 0, 1), true)
	if err != nil {
		uc.logger.Error("GenerateSlots: failed to get appointments: %v", err)
		return nil, fmt.Errorf("%w: failed to get appointments: %w", ErrInternal, err)
	}
	busy := busyRanges(day, appointments)

	// 5. Нарезаем каждое рабочее окно
	now := uc.timeProvider.Now()
	for _, rule := range day.Windows {
		w := Window{AvailableDays: []time.Weekday{date.Weekday()}, Clock: rule.Clock()}
		slots, _ := Generate(w, date, rule.SlotDurationMinutes, busy)

		for _, s := range slots {
			resp.Slots = append(resp.Slots, Slot{
				Start:           s.Start,
				End:             s.End,
				StartTime:       types.TimeOfDayFromTime(s.Start).String(),
				EndTime:         endClock(s),
				DurationMinutes: rule.SlotDurationMinutes,
				Available:       s.Available && !s.Start.Before(now),
			})
		}
	}

	sort.SliceStable(resp.Slots, func(i, j int) bool { return resp.Slots[i].Start.Before(resp.Slots[j].Start) })
	resp.Slots = dropOverlapping(resp.Slots)

	uc.logger.Info("GenerateSlots: generated %d slots for doctor=%d on %s", len(resp.Slots), req.DoctorID, req.Date)
	return resp, nil
}

// dropOverlapping убирает слоты, пересекающиеся с предыдущим оставленным.
// Окна недельного и разового правил на одну дату могут пересекаться.
// Слоты должны быть отсортированы по началу.
func dropOverlapping(slots []Slot) []Slot {
	result := slots[:0]
	for _, s := range slots {
		if len(result) > 0 && s.Start.Before(result[len(result)-1].End) {
			continue
		}
		result = append(result, s)
	}
	return result
}

// endClock возвращает время конца слота в формате HH:MM; полночь следующего дня - "24:00"
func endClock(s domain.Slot) string {
	if s.End.YearDay() != s.Start.YearDay() {
		return "24:00"
	}
	return types.TimeOfDayFromTime(s.End).String()
}
