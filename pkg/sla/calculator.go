// Package sla computes wall-clock and business-hours service-level metrics
// for chats.
package sla

import (
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/config"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

// Anchors are the chat timestamps metrics derive from.
type Anchors struct {
	OpenedAt   *time.Time
	PickedUpAt *time.Time
	ResponseAt *time.Time
	ClosedAt   *time.Time
}

// MessageEvent is one message in upstream order.
type MessageEvent struct {
	Incoming  bool
	Timestamp time.Time
}

// Calculator derives SLAMetrics from chat anchors and message history.
type Calculator struct {
	cfg      *config.SLAConfig
	schedule *Schedule
}

// NewCalculator builds a calculator from service-level and office-hours
// configuration.
func NewCalculator(slaCfg *config.SLAConfig, hoursCfg *config.OfficeHoursConfig) (*Calculator, error) {
	calendar, err := NewCalendar(hoursCfg.Holidays)
	if err != nil {
		return nil, err
	}
	schedule, err := NewSchedule(hoursCfg, calendar)
	if err != nil {
		return nil, err
	}
	return &Calculator{cfg: slaCfg, schedule: schedule}, nil
}

// Compute derives all metrics for one chat. Provider and priority select
// target overrides. Metrics with a missing anchor or a negative interval
// stay nil, and so do their compliance flags; a zero target also leaves its
// flag nil.
func (c *Calculator) Compute(provider models.Provider, priority string, anchors Anchors, messages []MessageEvent) models.SLAMetrics {
	targets := c.cfg.TargetsFor(string(provider), priority)

	var m models.SLAMetrics

	m.TimeToPickup = interval(anchors.OpenedAt, anchors.PickedUpAt)
	m.TimeToPickupBusinessHours = c.businessInterval(anchors.OpenedAt, anchors.PickedUpAt, m.TimeToPickup)
	m.FirstResponseTime = interval(anchors.OpenedAt, anchors.ResponseAt)
	m.FirstResponseTimeBusinessHours = c.businessInterval(anchors.OpenedAt, anchors.ResponseAt, m.FirstResponseTime)
	m.ResolutionTime = interval(anchors.OpenedAt, anchors.ClosedAt)
	m.ResolutionTimeBusinessHours = c.businessInterval(anchors.OpenedAt, anchors.ClosedAt, m.ResolutionTime)

	m.AvgResponseTime, m.AvgResponseTimeBusinessHours = c.averageResponse(messages)

	m.PickupSLA = compliance(m.TimeToPickup, targets.PickupTarget)
	m.FirstResponseSLA = compliance(m.FirstResponseTime, targets.FirstResponseTarget)
	m.AvgResponseSLA = complianceFloat(m.AvgResponseTime, targets.AvgResponseTarget)
	m.ResolutionSLA = compliance(m.ResolutionTime, targets.ResolutionTarget)
	m.OverallSLA = overall(m.PickupSLA, m.FirstResponseSLA, m.AvgResponseSLA, m.ResolutionSLA)

	return m
}

// interval returns whole seconds between two anchors, nil when either is
// missing or the interval is negative (bad data).
func interval(from, to *time.Time) *int64 {
	if from == nil || to == nil {
		return nil
	}
	seconds := int64(to.Sub(*from) / time.Second)
	if seconds < 0 {
		return nil
	}
	return &seconds
}

// businessInterval is the office-hours variant of interval. The wall-clock
// value gates it so bad data stays null in both variants.
func (c *Calculator) businessInterval(from, to *time.Time, wallClock *int64) *int64 {
	if wallClock == nil {
		return nil
	}
	seconds := c.schedule.BusinessSeconds(*from, *to)
	return &seconds
}

// averageResponse returns the mean customer-to-agent reply gap, wall-clock
// and business-hours. A reply gap runs from a customer message to the agent
// message immediately following it; chats without such a pair have no
// average.
func (c *Calculator) averageResponse(messages []MessageEvent) (*float64, *float64) {
	var wallTotal, businessTotal float64
	var count int
	for i := 0; i+1 < len(messages); i++ {
		if !messages[i].Incoming || messages[i+1].Incoming {
			continue
		}
		gap := messages[i+1].Timestamp.Sub(messages[i].Timestamp)
		if gap < 0 {
			continue
		}
		wallTotal += gap.Seconds()
		businessTotal += float64(c.schedule.BusinessSeconds(messages[i].Timestamp, messages[i+1].Timestamp))
		count++
	}
	if count == 0 {
		return nil, nil
	}
	wall := wallTotal / float64(count)
	business := businessTotal / float64(count)
	return &wall, &business
}

func compliance(actual *int64, target int64) *bool {
	if actual == nil || target <= 0 {
		return nil
	}
	ok := *actual <= target
	return &ok
}

func complianceFloat(actual *float64, target int64) *bool {
	if actual == nil || target <= 0 {
		return nil
	}
	ok := *actual <= float64(target)
	return &ok
}

// overall is true iff every defined per-metric flag is true; with no
// defined flags it stays nil.
func overall(flags ...*bool) *bool {
	var defined int
	result := true
	for _, flag := range flags {
		if flag == nil {
			continue
		}
		defined++
		if !*flag {
			result = false
		}
	}
	if defined == 0 {
		return nil
	}
	return &result
}
