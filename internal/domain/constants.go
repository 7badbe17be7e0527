package domain

// Значения по умолчанию для правил доступности
const (
	DefaultSlotDurationMinutes = 30
	DefaultMaxPatientsPerSlot  = 0 // 0 = без ограничений
	DefaultAppointmentType     = "consultation"
	DefaultListWindowDays      = 14
)

// Ограничения бизнес-валидации
const (
	MinSlotDurationMinutes      = 5
	MaxSlotDurationMinutes      = 480 // 8 часов
	MaxNotesLength              = 500
	MaxCancellationReasonLength = 500
	MaxAppointmentTypeLength    = 64
	MinDayOfWeek                = 0 // воскресенье
	MaxDayOfWeek                = 6 // суббота
)

// Форматы времени на границе API
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// Права, которые проверяются через сервис авторизации
const (
	PermissionManageSchedule   = "schedule:manage"
	PermissionSubscribe        = "schedule:subscribe"
	PermissionBook             = "appointments:book"
	PermissionViewAppointments = "appointments:view"
)
