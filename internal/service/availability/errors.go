package availability

import (
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
)

var (
	// ErrRuleNotFound возвращается, когда правило не найдено
	ErrRuleNotFound = errors.New("availability rule not found")

	// ErrDoctorNotFound возвращается, когда врач не найден
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrAccessDenied возвращается, когда у пользователя нет прав на расписание врача
	ErrAccessDenied = errors.New("access denied")

	// ErrRuleConflict возвращается, когда правило пересекается с существующим
	ErrRuleConflict = errors.New("availability rule overlaps existing rule")

	// ErrRuleInUse возвращается, когда на время правила есть активные приёмы
	ErrRuleInUse = errors.New("availability rule has active appointments")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("availability: internal error")
)

// RuleConflictError несёт правило, с которым пересекается новое.
// Rule может быть nil, если пересечение обнаружила только БД.
type RuleConflictError struct {
	Rule *domain.AvailabilityRule
}

func (e *RuleConflictError) Error() string {
	if e.Rule == nil {
		return ErrRuleConflict.Error()
	}
	return fmt.Sprintf("%s: rule id=%d %s-%s", ErrRuleConflict.Error(), e.Rule.ID, e.Rule.StartTime, e.Rule.EndTime)
}

func (e *RuleConflictError) Unwrap() error {
	return ErrRuleConflict
}

// RuleInUseError несёт активные приёмы, которые мешают удалить правило
type RuleInUseError struct {
	Appointments []*domain.Appointment
}

func (e *RuleInUseError) Error() string {
	return fmt.Sprintf("%s: %d appointment(s)", ErrRuleInUse.Error(), len(e.Appointments))
}

func (e *RuleInUseError) Unwrap() error {
	return ErrRuleInUse
}
