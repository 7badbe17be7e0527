package availability

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	"github.com/m04kA/SMC-ScheduleService/internal/service/availability/models"
	"github.com/m04kA/SMC-ScheduleService/pkg/ptr"
	"github.com/m04kA/SMC-ScheduleService/pkg/types"
)

// buildRule валидирует запрос на создание и собирает правило.
// Всё, что можно проверить без хранилища, проверяется здесь.
func buildRule(req *models.CreateRuleRequest, loc *time.Location) (*domain.AvailabilityRule, error) {
	if req.CallerID <= 0 {
		return nil, fmt.Errorf("%w: callerID must be positive", ErrInvalidInput)
	}
	if req.DoctorID <= 0 {
		return nil, fmt.Errorf("%w: doctorID must be positive", ErrInvalidInput)
	}

	start, err := parseClock("startTime", req.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := parseClock("endTime", req.EndTime)
	if err != nil {
		return nil, err
	}

	rule := &domain.AvailabilityRule{
		DoctorID:            req.DoctorID,
		StartTime:           start,
		EndTime:             end,
		IsRecurring:         ptr.Deref(req.IsRecurring, true),
		IsAvailable:         ptr.Deref(req.IsAvailable, true),
		SlotDurationMinutes: ptr.Deref(req.SlotDurationMinutes, domain.DefaultSlotDurationMinutes),
		MaxPatientsPerSlot:  ptr.Deref(req.MaxPatientsPerSlot, domain.DefaultMaxPatientsPerSlot),
		Notes:               req.Notes,
	}

	if rule.IsRecurring {
		if req.DayOfWeek == nil {
			return nil, fmt.Errorf("%w: dayOfWeek is required for recurring rule", ErrInvalidInput)
		}
		if req.SpecificDate != nil {
			return nil, fmt.Errorf("%w: specificDate is only allowed for non-recurring rule", ErrInvalidInput)
		}
		rule.DayOfWeek = *req.DayOfWeek
	} else {
		if req.SpecificDate == nil {
			return nil, fmt.Errorf("%w: specificDate is required for non-recurring rule", ErrInvalidInput)
		}
		date, err := parseDate("specificDate", *req.SpecificDate, loc)
		if err != nil {
			return nil, err
		}
		rule.SpecificDate = &date
		rule.DayOfWeek = int(date.Weekday())
		if req.DayOfWeek != nil && *req.DayOfWeek != rule.DayOfWeek {
			return nil, fmt.Errorf("%w: dayOfWeek does not match specificDate", ErrInvalidInput)
		}
	}

	if err := validateRule(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// buildPatch валидирует только те поля, которые меняются
func buildPatch(req *models.UpdateRuleRequest, loc *time.Location) (domain.AvailabilityPatch, error) {
	var patch domain.AvailabilityPatch

	if req.CallerID <= 0 {
		return patch, fmt.Errorf("%w: callerID must be positive", ErrInvalidInput)
	}
	if req.RuleID <= 0 {
		return patch, fmt.Errorf("%w: ruleID must be positive", ErrInvalidInput)
	}

	if req.StartTime != nil {
		start, err := parseClock("startTime", *req.StartTime)
		if err != nil {
			return patch, err
		}
		patch.StartTime = &start
	}
	if req.EndTime != nil {
		end, err := parseClock("endTime", *req.EndTime)
		if err != nil {
			return patch, err
		}
		patch.EndTime = &end
	}
	if req.DayOfWeek != nil {
		if err := validateDayOfWeek(*req.DayOfWeek); err != nil {
			return patch, err
		}
		patch.DayOfWeek = req.DayOfWeek
	}
	if req.SpecificDate != nil {
		date, err := parseDate("specificDate", *req.SpecificDate, loc)
		if err != nil {
			return patch, err
		}
		patch.SpecificDate = &date
	}
	if req.SlotDurationMinutes != nil {
		if err := validateSlotDuration(*req.SlotDurationMinutes); err != nil {
			return patch, err
		}
		patch.SlotDurationMinutes = req.SlotDurationMinutes
	}
	if req.MaxPatientsPerSlot != nil {
		if *req.MaxPatientsPerSlot < 0 {
			return patch, fmt.Errorf("%w: maxPatientsPerSlot must not be negative", ErrInvalidInput)
		}
		patch.MaxPatientsPerSlot = req.MaxPatientsPerSlot
	}
	if req.Notes != nil {
		if err := validateNotes(req.Notes); err != nil {
			return patch, err
		}
		patch.Notes = req.Notes
	}
	patch.IsRecurring = req.IsRecurring
	patch.IsAvailable = req.IsAvailable

	if patch.IsEmpty() {
		return patch, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	return patch, nil
}

// validateRule проверяет согласованность собранного правила
func validateRule(rule *domain.AvailabilityRule) error {
	if err := validateDayOfWeek(rule.DayOfWeek); err != nil {
		return err
	}
	if !rule.Clock().IsValid() {
		return fmt.Errorf("%w: startTime %s must be before endTime %s", ErrInvalidInput, rule.StartTime, rule.EndTime)
	}
	if !rule.IsRecurring && rule.SpecificDate == nil {
		return fmt.Errorf("%w: specificDate is required for non-recurring rule", ErrInvalidInput)
	}
	if rule.IsRecurring && rule.SpecificDate != nil {
		return fmt.Errorf("%w: specificDate is only allowed for non-recurring rule", ErrInvalidInput)
	}
	if !rule.IsRecurring && rule.DayOfWeek != int(rule.SpecificDate.Weekday()) {
		return fmt.Errorf("%w: dayOfWeek does not match specificDate", ErrInvalidInput)
	}
	if err := validateSlotDuration(rule.SlotDurationMinutes); err != nil {
		return err
	}
	if rule.MaxPatientsPerSlot < 0 {
		return fmt.Errorf("%w: maxPatientsPerSlot must not be negative", ErrInvalidInput)
	}
	return validateNotes(rule.Notes)
}

func validateDayOfWeek(dow int) error {
	if dow < domain.MinDayOfWeek || dow > domain.MaxDayOfWeek {
		return fmt.Errorf("%w: dayOfWeek must be between %d and %d", ErrInvalidInput, domain.MinDayOfWeek, domain.MaxDayOfWeek)
	}
	return nil
}

func validateSlotDuration(minutes int) error {
	if minutes < domain.MinSlotDurationMinutes || minutes > domain.MaxSlotDurationMinutes {
		return fmt.Errorf("%w: slotDurationMinutes must be between %d and %d",
			ErrInvalidInput, domain.MinSlotDurationMinutes, domain.MaxSlotDurationMinutes)
	}
	return nil
}

func validateNotes(notes *string) error {
	if notes != nil && len([]rune(*notes)) > domain.MaxNotesLength {
		return fmt.Errorf("%w: notes must be at most %d characters", ErrInvalidInput, domain.MaxNotesLength)
	}
	return nil
}

func parseClock(field, value string) (types.TimeOfDay, error) {
	t, err := types.ParseTimeOfDay(value)
	if err != nil {
		return types.TimeOfDay{}, fmt.Errorf("%w: invalid %s %q, expected HH:MM", ErrInvalidInput, field, value)
	}
	return t, nil
}

func parseDate(field, value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(domain.DateFormat, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid %s %q, expected YYYY-MM-DD", ErrInvalidInput, field, value)
	}
	return t, nil
}

// validateListRequest разбирает фильтры расписания
func validateListRequest(req *models.ListRequest, loc *time.Location) (from, to *time.Time, err error) {
	if req.DoctorID <= 0 {
		return nil, nil, fmt.Errorf("%w: doctorID must be positive", ErrInvalidInput)
	}
	if req.DayOfWeek != nil {
		if err := validateDayOfWeek(*req.DayOfWeek); err != nil {
			return nil, nil, err
		}
	}
	if req.StartDate != nil {
		d, err := parseDate("startDate", *req.StartDate, loc)
		if err != nil {
			return nil, nil, err
		}
		from = &d
	}
	if req.EndDate != nil {
		d, err := parseDate("endDate", *req.EndDate, loc)
		if err != nil {
			return nil, nil, err
		}
		to = &d
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("%w: endDate must not be before startDate", ErrInvalidInput)
	}
	return from, to, nil
}
