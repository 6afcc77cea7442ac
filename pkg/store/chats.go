package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

const chatColumns = `id, upstream_id, agent_id, contact_id, department_id, provider, status,
	alias, tags, direction, original_direction, created_at, opened_at, picked_up_at,
	response_at, closed_at, duration_seconds, poll_started_at, poll_completed_at,
	poll_abandoned_at, poll_response,
	time_to_pickup, time_to_pickup_business_hours,
	first_response_time, first_response_time_business_hours,
	avg_response_time, avg_response_time_business_hours,
	resolution_time, resolution_time_business_hours,
	pickup_sla, first_response_sla, avg_response_sla, resolution_sla, overall_sla,
	last_sync_at, updated_at`

func scanChat(row pgx.Row) (*models.Chat, error) {
	var c models.Chat
	err := row.Scan(&c.ID, &c.UpstreamID, &c.AgentID, &c.ContactID, &c.DepartmentID,
		&c.Provider, &c.Status, &c.Alias, &c.Tags, &c.Direction, &c.OriginalDirection,
		&c.CreatedAt, &c.OpenedAt, &c.PickedUpAt, &c.ResponseAt, &c.ClosedAt,
		&c.DurationSeconds, &c.PollStartedAt, &c.PollCompletedAt, &c.PollAbandonedAt, &c.PollResponse,
		&c.SLA.TimeToPickup, &c.SLA.TimeToPickupBusinessHours,
		&c.SLA.FirstResponseTime, &c.SLA.FirstResponseTimeBusinessHours,
		&c.SLA.AvgResponseTime, &c.SLA.AvgResponseTimeBusinessHours,
		&c.SLA.ResolutionTime, &c.SLA.ResolutionTimeBusinessHours,
		&c.SLA.PickupSLA, &c.SLA.FirstResponseSLA, &c.SLA.AvgResponseSLA,
		&c.SLA.ResolutionSLA, &c.SLA.OverallSLA,
		&c.LastSyncAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan chat: %w", err)
	}
	return &c, nil
}

// GetChatByUpstreamID looks a chat up by its upstream identifier.
func (s *Store) GetChatByUpstreamID(ctx context.Context, upstreamID string) (*models.Chat, error) {
	row := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM chats WHERE upstream_id = $1`, chatColumns), upstreamID)
	return scanChat(row)
}

// InsertChat inserts a new chat and fills in its generated id.
// original_direction is written here and never touched again.
func (s *Store) InsertChat(ctx context.Context, c *models.Chat) error {
	err := s.db.QueryRow(ctx, `INSERT INTO chats (
			upstream_id, agent_id, contact_id, department_id, provider, status,
			alias, tags, direction, original_direction, created_at, opened_at,
			picked_up_at, response_at, closed_at, duration_seconds,
			poll_started_at, poll_completed_at, poll_abandoned_at, poll_response,
			time_to_pickup, time_to_pickup_business_hours,
			first_response_time, first_response_time_business_hours,
			avg_response_time, avg_response_time_business_hours,
			resolution_time, resolution_time_business_hours,
			pickup_sla, first_response_sla, avg_response_sla, resolution_sla, overall_sla,
			last_sync_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31,
			$32, $33, $34)
		RETURNING id`,
		c.UpstreamID, c.AgentID, c.ContactID, c.DepartmentID, c.Provider, c.Status,
		c.Alias, c.Tags, c.Direction, c.OriginalDirection, c.CreatedAt, c.OpenedAt,
		c.PickedUpAt, c.ResponseAt, c.ClosedAt, c.DurationSeconds,
		c.PollStartedAt, c.PollCompletedAt, c.PollAbandonedAt, c.PollResponse,
		c.SLA.TimeToPickup, c.SLA.TimeToPickupBusinessHours,
		c.SLA.FirstResponseTime, c.SLA.FirstResponseTimeBusinessHours,
		c.SLA.AvgResponseTime, c.SLA.AvgResponseTimeBusinessHours,
		c.SLA.ResolutionTime, c.SLA.ResolutionTimeBusinessHours,
		c.SLA.PickupSLA, c.SLA.FirstResponseSLA, c.SLA.AvgResponseSLA,
		c.SLA.ResolutionSLA, c.SLA.OverallSLA,
		c.LastSyncAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}

// UpdateChat rewrites all mutable fields of an existing chat, including the
// recomputed SLA block. upstream_id and original_direction stay untouched.
func (s *Store) UpdateChat(ctx context.Context, c *models.Chat) error {
	tag, err := s.db.Exec(ctx, `UPDATE chats SET
			agent_id = $2, contact_id = $3, department_id = $4,
			provider = $5, status = $6, alias = $7, tags = $8, direction = $9,
			created_at = $10, opened_at = $11, picked_up_at = $12,
			response_at = $13, closed_at = $14, duration_seconds = $15,
			poll_started_at = $16, poll_completed_at = $17, poll_abandoned_at = $18,
			poll_response = $19,
			time_to_pickup = $20, time_to_pickup_business_hours = $21,
			first_response_time = $22, first_response_time_business_hours = $23,
			avg_response_time = $24, avg_response_time_business_hours = $25,
			resolution_time = $26, resolution_time_business_hours = $27,
			pickup_sla = $28, first_response_sla = $29, avg_response_sla = $30,
			resolution_sla = $31, overall_sla = $32,
			last_sync_at = $33, updated_at = now()
		WHERE id = $1`,
		c.ID, c.AgentID, c.ContactID, c.DepartmentID,
		c.Provider, c.Status, c.Alias, c.Tags, c.Direction,
		c.CreatedAt, c.OpenedAt, c.PickedUpAt,
		c.ResponseAt, c.ClosedAt, c.DurationSeconds,
		c.PollStartedAt, c.PollCompletedAt, c.PollAbandonedAt,
		c.PollResponse,
		c.SLA.TimeToPickup, c.SLA.TimeToPickupBusinessHours,
		c.SLA.FirstResponseTime, c.SLA.FirstResponseTimeBusinessHours,
		c.SLA.AvgResponseTime, c.SLA.AvgResponseTimeBusinessHours,
		c.SLA.ResolutionTime, c.SLA.ResolutionTimeBusinessHours,
		c.SLA.PickupSLA, c.SLA.FirstResponseSLA, c.SLA.AvgResponseSLA,
		c.SLA.ResolutionSLA, c.SLA.OverallSLA,
		c.LastSyncAt)
	if err != nil {
		return fmt.Errorf("update chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendStatusHistory records one observed status transition.
func (s *Store) AppendStatusHistory(ctx context.Context, h *models.ChatStatusHistory) error {
	err := s.db.QueryRow(ctx, `INSERT INTO chat_status_history
			(chat_id, previous_status, new_status, changed_at, sync_id, transform_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		h.ChatID, h.PreviousStatus, h.NewStatus, h.ChangedAt, h.SyncID, h.TransformID,
	).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

// StatusHistoryForChat returns a chat's transitions in the order they were
// observed.
func (s *Store) StatusHistoryForChat(ctx context.Context, chatID int64) ([]models.ChatStatusHistory, error) {
	rows, err := s.db.Query(ctx, `SELECT id, chat_id, previous_status, new_status, changed_at, sync_id, transform_id
		FROM chat_status_history WHERE chat_id = $1 ORDER BY changed_at, id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("select status history: %w", err)
	}
	defer rows.Close()

	var out []models.ChatStatusHistory
	for rows.Next() {
		var h models.ChatStatusHistory
		if err := rows.Scan(&h.ID, &h.ChatID, &h.PreviousStatus, &h.NewStatus,
			&h.ChangedAt, &h.SyncID, &h.TransformID); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
