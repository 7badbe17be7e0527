package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// MinutesPerDay количество минут в сутках; 24:00 допустимо только как конец интервала
	MinutesPerDay = 24 * 60
)

var (
	// ErrInvalidTimeFormat возвращается, когда строка не соответствует формату HH:MM
	ErrInvalidTimeFormat = errors.New("invalid time string format")

	// ErrTimeOutOfRange возвращается, когда время выходит за пределы суток
	ErrTimeOutOfRange = errors.New("time of day out of range")
)

// TimeOfDay время суток с точностью до минуты, хранится как смещение в минутах от полуночи.
// Сравнение идёт по числу минут, поэтому порядок не зависит от дополнения нулями в строке.
type TimeOfDay struct {
	minutes int
}

// NewTimeOfDay создаёт время суток из часов и минут
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %02d:%02d", ErrTimeOutOfRange, hour, minute)
	}
	return FromMinutes(hour*60 + minute)
}

// FromMinutes создаёт время суток из смещения в минутах (0..1440)
func FromMinutes(minutes int) (TimeOfDay, error) {
	if minutes < 0 || minutes > MinutesPerDay {
		return TimeOfDay{}, fmt.Errorf("%w: %d minutes", ErrTimeOutOfRange, minutes)
	}
	return TimeOfDay{minutes: minutes}, nil
}

// MustTimeOfDay парсит строку и паникует при ошибке. Только для констант и тестов.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimeOfDay парсит строку формата "HH:MM" (также принимается "HH:MM:SS" из postgres TIME)
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	if len(parts[0]) != 2 || len(parts[1]) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	// Секунды допускаются только нулевые (точность до минуты)
	if len(parts) == 3 {
		sec, err := strconv.Atoi(strings.SplitN(parts[2], ".", 2)[0])
		if err != nil || sec != 0 {
			return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
		}
	}

	if hour == 24 && minute == 0 {
		return TimeOfDay{minutes: MinutesPerDay}, nil
	}
	if hour > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrTimeOutOfRange, s)
	}
	return NewTimeOfDay(hour, minute)
}

// TimeOfDayFromTime возвращает время суток для момента времени (секунды отбрасываются)
func TimeOfDayFromTime(t time.Time) TimeOfDay {
	return TimeOfDay{minutes: t.Hour()*60 + t.Minute()}
}

// Minutes возвращает смещение в минутах от полуночи
func (t TimeOfDay) Minutes() int {
	return t.minutes
}

// AddMinutes возвращает новое время, сдвинутое на n минут. Переход через полночь - ошибка.
func (t TimeOfDay) AddMinutes(n int) (TimeOfDay, error) {
	return FromMinutes(t.minutes + n)
}

// IsBefore возвращает true, если t строго раньше other
func (t TimeOfDay) IsBefore(other TimeOfDay) bool {
	return t.minutes < other.minutes
}

// IsAfter возвращает true, если t строго позже other
func (t TimeOfDay) IsAfter(other TimeOfDay) bool {
	return t.minutes > other.minutes
}

// On возвращает момент времени на указанную дату в её часовом поясе.
// 24:00 превращается в полночь следующего дня.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.minutes/60, t.minutes%60, 0, 0, date.Location())
}

// String возвращает время в формате "HH:MM"
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.minutes/60, t.minutes%60)
}

// Value реализует driver.Valuer для записи в колонку TIME
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan реализует sql.Scanner для чтения колонки TIME
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseTimeOfDay(v)
		if err != nil {
			return err
		}
		*t = parsed
	case []byte:
		parsed, err := ParseTimeOfDay(string(v))
		if err != nil {
			return err
		}
		*t = parsed
	case time.Time:
		*t = TimeOfDayFromTime(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidTimeFormat, src)
	}
	return nil
}

// MarshalJSON сериализует время как строку "HH:MM"
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON разбирает строку "HH:MM"
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTimeFormat, err)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
