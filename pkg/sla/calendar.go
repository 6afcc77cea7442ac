package sla

import (
	"fmt"
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/config"
)

// HolidayCalendar reports whether a local calendar date is a holiday.
type HolidayCalendar interface {
	IsHoliday(date time.Time) bool
}

// Calendar is a HolidayCalendar built from configured entries. Recurring
// entries ("MM-DD") match every year; dated entries ("YYYY-MM-DD") match a
// single day.
type Calendar struct {
	recurring map[string]bool
	dated     map[string]bool
}

// NewCalendar compiles holiday entries into a Calendar.
func NewCalendar(entries []config.HolidayEntry) (*Calendar, error) {
	c := &Calendar{
		recurring: make(map[string]bool),
		dated:     make(map[string]bool),
	}
	for _, entry := range entries {
		if _, err := time.Parse("2006-01-02", entry.Date); err == nil {
			c.dated[entry.Date] = true
			continue
		}
		if _, err := time.Parse("01-02", entry.Date); err == nil {
			c.recurring[entry.Date] = true
			continue
		}
		return nil, fmt.Errorf("holiday %q: want YYYY-MM-DD or MM-DD, got %s", entry.Name, entry.Date)
	}
	return c, nil
}

// IsHoliday reports whether the date, read in its own location, is a
// holiday.
func (c *Calendar) IsHoliday(date time.Time) bool {
	if c.dated[date.Format("2006-01-02")] {
		return true
	}
	return c.recurring[date.Format("01-02")]
}

// noHolidays is the empty calendar.
type noHolidays struct{}

func (noHolidays) IsHoliday(time.Time) bool { return false }
