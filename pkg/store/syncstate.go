package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

// GetSyncState returns the watermark for one entity type.
func (s *Store) GetSyncState(ctx context.Context, entity models.EntityType) (*models.SyncState, error) {
	var st models.SyncState
	err := s.db.QueryRow(ctx, `SELECT id, entity_type, last_sync_timestamp, last_synced_id,
			last_sync_offset, sync_status, updated_at
		FROM sync_states WHERE entity_type = $1`, entity).
		Scan(&st.ID, &st.EntityType, &st.LastSyncTimestamp, &st.LastSyncedID,
			&st.LastSyncOffset, &st.SyncStatus, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan sync state: %w", err)
	}
	return &st, nil
}

// UpsertSyncState writes the watermark for one entity type.
func (s *Store) UpsertSyncState(ctx context.Context, st *models.SyncState) error {
	err := s.db.QueryRow(ctx, `INSERT INTO sync_states
			(entity_type, last_sync_timestamp, last_synced_id, last_sync_offset, sync_status, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (entity_type) DO UPDATE SET
			last_sync_timestamp = EXCLUDED.last_sync_timestamp,
			last_synced_id = EXCLUDED.last_synced_id,
			last_sync_offset = EXCLUDED.last_sync_offset,
			sync_status = EXCLUDED.sync_status,
			updated_at = now()
		RETURNING id`,
		st.EntityType, st.LastSyncTimestamp, st.LastSyncedID, st.LastSyncOffset, st.SyncStatus,
	).Scan(&st.ID)
	if err != nil {
		return fmt.Errorf("upsert sync state: %w", err)
	}
	return nil
}

// UpsertCheckpoint writes the coarse progress record for one run.
func (s *Store) UpsertCheckpoint(ctx context.Context, cp *models.SyncCheckpoint) error {
	err := s.db.QueryRow(ctx, `INSERT INTO sync_checkpoints
			(sync_id, entity_type, total_records, processed_records, successful_records, failed_records, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (sync_id, entity_type) DO UPDATE SET
			total_records = EXCLUDED.total_records,
			processed_records = EXCLUDED.processed_records,
			successful_records = EXCLUDED.successful_records,
			failed_records = EXCLUDED.failed_records,
			status = EXCLUDED.status,
			updated_at = now()
		RETURNING id`,
		cp.SyncID, cp.EntityType, cp.TotalRecords, cp.ProcessedRecords,
		cp.SuccessfulRecords, cp.FailedRecords, cp.Status,
	).Scan(&cp.ID)
	if err != nil {
		return fmt.Errorf("upsert sync checkpoint: %w", err)
	}
	return nil
}

// GetCheckpoint returns the progress record for one run and entity type.
func (s *Store) GetCheckpoint(ctx context.Context, syncID string, entity models.EntityType) (*models.SyncCheckpoint, error) {
	var cp models.SyncCheckpoint
	err := s.db.QueryRow(ctx, `SELECT id, sync_id, entity_type, total_records, processed_records,
			successful_records, failed_records, status, created_at, updated_at
		FROM sync_checkpoints WHERE sync_id = $1 AND entity_type = $2`, syncID, entity).
		Scan(&cp.ID, &cp.SyncID, &cp.EntityType, &cp.TotalRecords, &cp.ProcessedRecords,
			&cp.SuccessfulRecords, &cp.FailedRecords, &cp.Status, &cp.CreatedAt, &cp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan sync checkpoint: %w", err)
	}
	return &cp, nil
}
