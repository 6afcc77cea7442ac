package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/b2chat"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/changeset"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
)

// applyChat reconciles one raw chat: nested entities first, then the chat
// row itself, its status history and its messages.
func (e *Engine) applyChat(ctx context.Context, st *store.Store, logger *slog.Logger, raw models.RawRecord, transformID string) (outcome, error) {
	var payload b2chat.Chat
	if err := json.Unmarshal(raw.Payload, &payload); err != nil {
		return outcomeSkipped, fmt.Errorf("decode chat payload: %w", err)
	}
	upstreamID := payload.ChatID.String()
	if upstreamID == "" {
		return outcomeSkipped, errors.New("chat record carries no chat_id")
	}

	now := time.Now().UTC()

	agentID, err := linkAgent(ctx, st, payload.Agent)
	if err != nil {
		return outcomeSkipped, err
	}
	contactID, err := linkContact(ctx, st, payload.Contact, now)
	if err != nil {
		return outcomeSkipped, err
	}
	departmentID, err := linkDepartment(ctx, st, payload.Department)
	if err != nil {
		return outcomeSkipped, err
	}

	incoming := chatFromPayload(&payload, agentID, contactID, departmentID, now)
	ordered := chronological(payload.Messages)
	incoming.ResponseAt = responseAnchor(ordered)

	existing, err := st.GetChatByUpstreamID(ctx, upstreamID)
	if errors.Is(err, store.ErrNotFound) {
		return e.insertChat(ctx, st, logger, incoming, payload.Messages, ordered)
	}
	if err != nil {
		return outcomeSkipped, err
	}
	return e.updateChat(ctx, st, logger, existing, incoming, payload.Messages, ordered, raw.SyncID, transformID, now)
}

// insertChat creates a chat seen for the first time. Direction is detected
// here and originalDirection frozen to it; both SLA variants are computed
// from the anchors and messages the payload carries.
func (e *Engine) insertChat(ctx context.Context, st *store.Store, logger *slog.Logger, chat *models.Chat, msgs, ordered []b2chat.ChatMessage) (outcome, error) {
	chat.Direction = detectDirection(ordered, chat.Tags)
	chat.OriginalDirection = chat.Direction
	chat.SLA = e.computeSLA(chat, ordered)

	if err := st.InsertChat(ctx, chat); err != nil {
		return outcomeSkipped, err
	}
	if _, err := st.InsertMessages(ctx, buildMessages(chat.UpstreamID, chat.ID, msgs)); err != nil {
		return outcomeSkipped, err
	}
	logger.Debug("Chat created", "upstream_id", chat.UpstreamID,
		"direction", chat.Direction, "status", chat.Status, "messages", len(msgs))
	return outcomeCreated, nil
}

// updateChat applies change detection to an already known chat. When fields
// changed the row is rewritten with recomputed SLA metrics and a status
// transition is appended to the history; new messages are ingested either
// way, keyed by their content-derived ids, and alone force a metric
// recompute since the reply-gap metrics derive from the message set.
func (e *Engine) updateChat(ctx context.Context, st *store.Store, logger *slog.Logger, existing, incoming *models.Chat, msgs, ordered []b2chat.ChatMessage, syncID, transformID string, now time.Time) (outcome, error) {
	incoming.ID = existing.ID
	incoming.OriginalDirection = existing.OriginalDirection
	incoming.Direction = convertDirection(existing.Direction, ordered)
	if incoming.ResponseAt == nil {
		incoming.ResponseAt = existing.ResponseAt
	}

	// Survey anchors are captured once: a later export that no longer
	// carries them, or whose status moved past the poll states, must not
	// erase what was already observed.
	if incoming.PollStartedAt == nil {
		incoming.PollStartedAt = existing.PollStartedAt
	}
	if incoming.PollCompletedAt == nil {
		incoming.PollCompletedAt = existing.PollCompletedAt
	}
	if incoming.PollAbandonedAt == nil {
		incoming.PollAbandonedAt = existing.PollAbandonedAt
	}
	if incoming.PollResponse == nil {
		incoming.PollResponse = existing.PollResponse
	}

	diff := changeset.CompareChats(existing, incoming)
	if diff.HasChanges {
		incoming.SLA = e.computeSLA(incoming, ordered)
		if err := st.UpdateChat(ctx, incoming); err != nil {
			return outcomeSkipped, err
		}
		if diff.StatusChanged {
			history := &models.ChatStatusHistory{
				ChatID:         existing.ID,
				PreviousStatus: diff.PreviousStatus,
				NewStatus:      diff.NewStatus,
				ChangedAt:      now,
				SyncID:         &syncID,
				TransformID:    &transformID,
			}
			if err := st.AppendStatusHistory(ctx, history); err != nil {
				return outcomeSkipped, err
			}
		}
		logger.Debug("Chat updated", "upstream_id", incoming.UpstreamID,
			"fields", diff.ChangedFields, "status_changed", diff.StatusChanged)
	}

	inserted, err := st.InsertMessages(ctx, buildMessages(incoming.UpstreamID, existing.ID, msgs))
	if err != nil {
		return outcomeSkipped, err
	}

	if !diff.HasChanges && inserted > 0 {
		incoming.SLA = e.computeSLA(incoming, ordered)
		if err := st.UpdateChat(ctx, incoming); err != nil {
			return outcomeSkipped, err
		}
		logger.Debug("Chat metrics refreshed", "upstream_id", incoming.UpstreamID,
			"new_messages", inserted)
	}

	if diff.HasChanges || inserted > 0 {
		return outcomeUpdated, nil
	}
	return outcomeSkipped, nil
}

// chatFromPayload maps an export record onto the normalized shape. Direction
// and SLA fields are filled by the caller, which knows whether this is an
// insert or an update.
func chatFromPayload(p *b2chat.Chat, agentID, contactID, departmentID *int64, now time.Time) *models.Chat {
	status, _ := b2chat.NormalizeStatus(p.Status)

	createdAt := p.CreatedAt.Time
	if createdAt.IsZero() {
		createdAt = p.OpenedAt.Time
	}

	chat := &models.Chat{
		UpstreamID:      p.ChatID.String(),
		AgentID:         agentID,
		ContactID:       contactID,
		DepartmentID:    departmentID,
		Provider:        b2chat.NormalizeProvider(p.Provider),
		Status:          status,
		Alias:           strPtr(p.Alias),
		Tags:            []string(p.Tags),
		CreatedAt:       createdAt,
		OpenedAt:        p.OpenedAt.Ptr(),
		PickedUpAt:      p.PickedUpAt.Ptr(),
		ClosedAt:        p.ClosedAt.Ptr(),
		DurationSeconds: p.Duration.Ptr(),
		LastSyncAt:      now,
	}
	chat.PollStartedAt, chat.PollCompletedAt, chat.PollAbandonedAt = pollAnchors(p, status)
	if response := bytes.TrimSpace(p.PollResponse); len(response) > 0 && !bytes.Equal(response, []byte("null")) {
		chat.PollResponse = json.RawMessage(response)
	}
	return chat
}
