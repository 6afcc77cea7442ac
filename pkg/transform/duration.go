package transform

import (
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/b2chat"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/sla"
)

// responseAnchor returns the timestamp of the first agent message, which
// anchors the first-response metric. Messages must be in chronological order.
func responseAnchor(ordered []b2chat.ChatMessage) *time.Time {
	for _, m := range ordered {
		if m.Incoming || m.Timestamp.IsZero() {
			continue
		}
		return m.Timestamp.Ptr()
	}
	return nil
}

// pollAnchors applies the survey capture rules: the start timestamp passes
// through whenever present, but completion and abandonment timestamps only
// count when the chat sits in the matching status.
func pollAnchors(p *b2chat.Chat, status models.ChatStatus) (started, completed, abandoned *time.Time) {
	started = p.PollStartedAt.Ptr()
	if status == models.StatusCompletedPoll {
		completed = p.PollCompletedAt.Ptr()
	}
	if status == models.StatusAbandonedPoll {
		abandoned = p.PollAbandonedAt.Ptr()
	}
	return started, completed, abandoned
}

// slaAnchors projects a chat's timestamps into calculator inputs.
func slaAnchors(c *models.Chat) sla.Anchors {
	return sla.Anchors{
		OpenedAt:   c.OpenedAt,
		PickedUpAt: c.PickedUpAt,
		ResponseAt: c.ResponseAt,
		ClosedAt:   c.ClosedAt,
	}
}

// slaEvents projects messages into calculator events, dropping entries
// without a usable timestamp. Messages must be in chronological order.
func slaEvents(ordered []b2chat.ChatMessage) []sla.MessageEvent {
	events := make([]sla.MessageEvent, 0, len(ordered))
	for _, m := range ordered {
		if m.Timestamp.IsZero() {
			continue
		}
		events = append(events, sla.MessageEvent{Incoming: m.Incoming, Timestamp: m.Timestamp.Time})
	}
	return events
}
