package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/config"
)

func testSchedule(t *testing.T) *Schedule {
	t.Helper()
	schedule, err := NewSchedule(&config.OfficeHoursConfig{
		Start:       "09:00",
		End:         "17:00",
		WorkingDays: []int{1, 2, 3, 4, 5},
		Timezone:    "UTC",
	}, nil)
	require.NoError(t, err)
	return schedule
}

func TestBusinessSecondsClipsToWindow(t *testing.T) {
	schedule := testSchedule(t)

	// Monday 08:00-12:00; only 09:00 onward counts.
	from := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(3*3600), schedule.BusinessSeconds(from, to))
}

func TestBusinessSecondsWeekendIsZero(t *testing.T) {
	schedule := testSchedule(t)

	// Saturday morning through Sunday afternoon.
	from := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 16, 16, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(0), schedule.BusinessSeconds(from, to))
}

func TestBusinessSecondsFullWeek(t *testing.T) {
	schedule := testSchedule(t)

	// Monday midnight through Saturday midnight covers five working days.
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(5*8*3600), schedule.BusinessSeconds(from, to))
}

func TestBusinessSecondsReversedRange(t *testing.T) {
	schedule := testSchedule(t)

	from := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(0), schedule.BusinessSeconds(from, from))
	assert.Equal(t, int64(0), schedule.BusinessSeconds(from, from.Add(-time.Hour)))
}

func TestBusinessSecondsConvertsToScheduleZone(t *testing.T) {
	schedule := testSchedule(t)
	schedule.location = time.FixedZone("UTC-5", -5*3600)

	// 14:30-16:00 UTC is 09:30-11:00 local.
	from := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	to := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(5400), schedule.BusinessSeconds(from, to))
}

func TestNewScheduleRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.OfficeHoursConfig)
	}{
		{name: "bad start", mutate: func(c *config.OfficeHoursConfig) { c.Start = "9am" }},
		{name: "end before start", mutate: func(c *config.OfficeHoursConfig) { c.End = "08:00" }},
		{name: "no working days", mutate: func(c *config.OfficeHoursConfig) { c.WorkingDays = nil }},
		{name: "day out of range", mutate: func(c *config.OfficeHoursConfig) { c.WorkingDays = []int{0} }},
		{name: "bad zone", mutate: func(c *config.OfficeHoursConfig) { c.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.OfficeHoursConfig{
				Start:       "09:00",
				End:         "17:00",
				WorkingDays: []int{1, 2, 3, 4, 5},
				Timezone:    "UTC",
			}
			tt.mutate(cfg)

			_, err := NewSchedule(cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestCalendarMatching(t *testing.T) {
	calendar, err := NewCalendar([]config.HolidayEntry{
		{Name: "christmas", Date: "12-25"},
		{Name: "one-off", Date: "2025-04-17"},
	})
	require.NoError(t, err)

	assert.True(t, calendar.IsHoliday(time.Date(2024, 12, 25, 12, 0, 0, 0, time.UTC)), "recurring matches every year")
	assert.True(t, calendar.IsHoliday(time.Date(2025, 12, 25, 12, 0, 0, 0, time.UTC)))
	assert.True(t, calendar.IsHoliday(time.Date(2025, 4, 17, 0, 0, 0, 0, time.UTC)))
	assert.False(t, calendar.IsHoliday(time.Date(2026, 4, 17, 0, 0, 0, 0, time.UTC)), "dated entries match one year only")
}

func TestCalendarRejectsBadDate(t *testing.T) {
	_, err := NewCalendar([]config.HolidayEntry{{Name: "bad", Date: "25/12"}})
	assert.Error(t, err)
}
