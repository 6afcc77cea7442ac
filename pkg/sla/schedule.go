package sla

import (
	"fmt"
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/config"
)

// Schedule is a compiled business-hours window: an office-hours interval on
// working, non-holiday days in a fixed timezone.
type Schedule struct {
	startMinute int
	endMinute   int
	workingDays map[int]bool // ISO weekday, 1=Monday..7=Sunday
	location    *time.Location
	calendar    HolidayCalendar
}

// NewSchedule compiles office-hours configuration. A nil calendar means no
// holidays.
func NewSchedule(cfg *config.OfficeHoursConfig, calendar HolidayCalendar) (*Schedule, error) {
	start, err := time.Parse("15:04", cfg.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid office hours start %q: %w", cfg.Start, err)
	}
	end, err := time.Parse("15:04", cfg.End)
	if err != nil {
		return nil, fmt.Errorf("invalid office hours end %q: %w", cfg.End, err)
	}
	startMinute := start.Hour()*60 + start.Minute()
	endMinute := end.Hour()*60 + end.Minute()
	if endMinute <= startMinute {
		return nil, fmt.Errorf("office hours end %q not after start %q", cfg.End, cfg.Start)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid office hours timezone %q: %w", cfg.Timezone, err)
	}

	if len(cfg.WorkingDays) == 0 {
		return nil, fmt.Errorf("office hours need at least one working day")
	}
	days := make(map[int]bool, len(cfg.WorkingDays))
	for _, day := range cfg.WorkingDays {
		if day < 1 || day > 7 {
			return nil, fmt.Errorf("working day %d outside 1..7", day)
		}
		days[day] = true
	}

	if calendar == nil {
		calendar = noHolidays{}
	}

	return &Schedule{
		startMinute: startMinute,
		endMinute:   endMinute,
		workingDays: days,
		location:    location,
		calendar:    calendar,
	}, nil
}

// BusinessSeconds returns the seconds between from and to that fall inside
// the office-hours window on working, non-holiday days. Returns 0 when to
// is not after from.
func (s *Schedule) BusinessSeconds(from, to time.Time) int64 {
	if !to.After(from) {
		return 0
	}
	from = from.In(s.location)
	to = to.In(s.location)

	var total time.Duration
	lastDay := dateOf(to)
	for day := dateOf(from); !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		if !s.workingDay(day) {
			continue
		}
		// Window edges are built from wall-clock fields so DST days keep
		// the configured local times.
		windowStart := time.Date(day.Year(), day.Month(), day.Day(),
			s.startMinute/60, s.startMinute%60, 0, 0, s.location)
		windowEnd := time.Date(day.Year(), day.Month(), day.Day(),
			s.endMinute/60, s.endMinute%60, 0, 0, s.location)

		overlapStart := maxTime(from, windowStart)
		overlapEnd := minTime(to, windowEnd)
		if overlapEnd.After(overlapStart) {
			total += overlapEnd.Sub(overlapStart)
		}
	}
	return int64(total / time.Second)
}

func (s *Schedule) workingDay(day time.Time) bool {
	if !s.workingDays[isoWeekday(day)] {
		return false
	}
	return !s.calendar.IsHoliday(day)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
