package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/m04kA/SMC-ScheduleService/pkg/types"
)

func clock(start, end string) ClockRange {
	return NewClockRange(types.MustTimeOfDay(start), types.MustTimeOfDay(end))
}

func TestClockRange_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b ClockRange
		want bool
	}{
		{"touching boundaries", clock("09:00", "10:00"), clock("10:00", "11:00"), false},
		{"partial overlap", clock("09:00", "12:00"), clock("11:00", "13:00"), true},
		{"contained", clock("09:00", "17:00"), clock("10:00", "10:30"), true},
		{"identical", clock("09:00", "10:00"), clock("09:00", "10:00"), true},
		{"disjoint", clock("08:00", "09:00"), clock("13:00", "14:00"), false},
		{"end of day", clock("23:00", "24:00"), clock("23:30", "24:00"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a), "overlap must be symmetric")
		})
	}
}

func TestClockRange_Contains(t *testing.T) {
	window := clock("09:00", "17:00")

	assert.True(t, window.Contains(clock("09:00", "09:30")))
	assert.True(t, window.Contains(clock("16:30", "17:00")))
	assert.False(t, window.Contains(clock("16:30", "17:30")))
	assert.False(t, window.Contains(clock("08:30", "09:30")))
}

func TestClockRange_IsValid(t *testing.T) {
	assert.True(t, clock("09:00", "09:05").IsValid())
	assert.False(t, clock("09:00", "09:00").IsValid())
	assert.False(t, clock("10:00", "09:00").IsValid())
}

func TestTimeRange_Overlaps(t *testing.T) {
	base := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	a := TimeRange{Start: base, End: base.Add(30 * time.Minute)}
	b := TimeRange{Start: base.Add(30 * time.Minute), End: base.Add(time.Hour)}
	c := TimeRange{Start: base.Add(15 * time.Minute), End: base.Add(45 * time.Minute)}

	assert.False(t, a.Overlaps(b))
	assert.True(t, a.Overlaps(c))
	assert.True(t, c.Overlaps(b))
}

func TestClockRange_On(t *testing.T) {
	date := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	r := clock("23:30", "24:00").On(date)

	assert.Equal(t, time.Date(2025, 1, 6, 23, 30, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC), r.End)
}
