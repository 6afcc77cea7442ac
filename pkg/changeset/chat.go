package changeset

import (
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

// ChatDiff is a Diff that also carries the status transition, which the
// transform turns into a status history row.
type ChatDiff struct {
	Diff
	StatusChanged  bool
	PreviousStatus models.ChatStatus
	NewStatus      models.ChatStatus
}

// CompareChats diffs an existing chat against its incoming version.
// OriginalDirection is immutable and never compared; SLA fields are
// recomputed on every update and carry no diff of their own.
func CompareChats(oldChat, newChat *models.Chat) ChatDiff {
	b := newBuilder()

	b.compareText("status", string(oldChat.Status), string(newChat.Status))
	b.compareText("provider", string(oldChat.Provider), string(newChat.Provider))
	b.compareText("direction", string(oldChat.Direction), string(newChat.Direction))
	b.compareString("alias", oldChat.Alias, newChat.Alias)
	b.compareJSON("tags", oldChat.Tags, newChat.Tags)
	b.compareInt64Ptr("agent_id", oldChat.AgentID, newChat.AgentID)
	b.compareInt64Ptr("contact_id", oldChat.ContactID, newChat.ContactID)
	b.compareInt64Ptr("department_id", oldChat.DepartmentID, newChat.DepartmentID)
	b.compareTime("created_at", ptrTime(oldChat.CreatedAt), ptrTime(newChat.CreatedAt))
	b.compareTime("opened_at", oldChat.OpenedAt, newChat.OpenedAt)
	b.compareTime("picked_up_at", oldChat.PickedUpAt, newChat.PickedUpAt)
	b.compareTime("response_at", oldChat.ResponseAt, newChat.ResponseAt)
	b.compareTime("closed_at", oldChat.ClosedAt, newChat.ClosedAt)
	b.compareInt64Ptr("duration_seconds", oldChat.DurationSeconds, newChat.DurationSeconds)
	b.compareTime("poll_started_at", oldChat.PollStartedAt, newChat.PollStartedAt)
	b.compareTime("poll_completed_at", oldChat.PollCompletedAt, newChat.PollCompletedAt)
	b.compareTime("poll_abandoned_at", oldChat.PollAbandonedAt, newChat.PollAbandonedAt)
	b.compareJSON("poll_response", oldChat.PollResponse, newChat.PollResponse)

	result := ChatDiff{Diff: b.build()}
	if oldChat.Status != newChat.Status {
		result.StatusChanged = true
		result.PreviousStatus = oldChat.Status
		result.NewStatus = newChat.Status
	}
	return result
}

func ptrTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t
	return &v
}
