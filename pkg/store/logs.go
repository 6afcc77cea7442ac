package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

const extractLogColumns = `id, sync_id, entity_type, status, started_at, completed_at,
	records_fetched, records_processed, records_created, records_updated,
	records_skipped, records_failed, api_call_count, error_message, metadata`

// CreateExtractLog opens a new extract run record.
func (s *Store) CreateExtractLog(ctx context.Context, log *models.ExtractLog) error {
	err := s.db.QueryRow(ctx, `INSERT INTO extract_logs (sync_id, entity_type, status, started_at, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		log.SyncID, log.EntityType, log.Status, log.StartedAt, log.Metadata).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("create extract log: %w", err)
	}
	return nil
}

// UpdateExtractLog rewrites the mutable part of an extract run record.
func (s *Store) UpdateExtractLog(ctx context.Context, log *models.ExtractLog) error {
	tag, err := s.db.Exec(ctx, `UPDATE extract_logs SET
			status = $2, completed_at = $3,
			records_fetched = $4, records_processed = $5, records_created = $6,
			records_updated = $7, records_skipped = $8, records_failed = $9,
			api_call_count = $10, error_message = $11, metadata = $12
		WHERE sync_id = $1`,
		log.SyncID, log.Status, log.CompletedAt,
		log.Counters.Fetched, log.Counters.Processed, log.Counters.Created,
		log.Counters.Updated, log.Counters.Skipped, log.Counters.Failed,
		log.APICallCount, log.ErrorMessage, log.Metadata)
	if err != nil {
		return fmt.Errorf("update extract log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanExtractLog(row pgx.Row) (*models.ExtractLog, error) {
	var log models.ExtractLog
	err := row.Scan(&log.ID, &log.SyncID, &log.EntityType, &log.Status,
		&log.StartedAt, &log.CompletedAt,
		&log.Counters.Fetched, &log.Counters.Processed, &log.Counters.Created,
		&log.Counters.Updated, &log.Counters.Skipped, &log.Counters.Failed,
		&log.APICallCount, &log.ErrorMessage, &log.Metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan extract log: %w", err)
	}
	return &log, nil
}

// GetExtractLog looks an extract run up by its sync id.
func (s *Store) GetExtractLog(ctx context.Context, syncID string) (*models.ExtractLog, error) {
	row := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM extract_logs WHERE sync_id = $1`, extractLogColumns), syncID)
	return scanExtractLog(row)
}

// ListExtractLogs returns the most recent extract runs, newest first.
func (s *Store) ListExtractLogs(ctx context.Context, limit int) ([]models.ExtractLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM extract_logs ORDER BY started_at DESC, id DESC LIMIT %d`,
			extractLogColumns, limit))
	if err != nil {
		return nil, fmt.Errorf("list extract logs: %w", err)
	}
	defer rows.Close()

	var out []models.ExtractLog
	for rows.Next() {
		log, err := scanExtractLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *log)
	}
	return out, rows.Err()
}

// FailRunningExtractLog finalizes an extract run a dead worker left behind.
// Only logs still running are touched, so calling it for a run that already
// finalized itself is a no-op. Reports whether a row was updated.
func (s *Store) FailRunningExtractLog(ctx context.Context, syncID, message string) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE extract_logs SET
			status = $2, error_message = $3, completed_at = now()
		WHERE sync_id = $1 AND status = $4`,
		syncID, models.RunStatusFailed, message, models.RunStatusRunning)
	if err != nil {
		return false, fmt.Errorf("fail running extract log: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CompletedExtractSyncIDs returns the sync ids of completed extract runs
// whose entity type matches entity or was a combined "all" run. The
// transform engine uses this set for batch-agnostic row selection.
func (s *Store) CompletedExtractSyncIDs(ctx context.Context, entity models.EntityType) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT sync_id FROM extract_logs
		WHERE status = $1 AND (entity_type = $2 OR entity_type = $3)
		ORDER BY started_at, id`,
		models.RunStatusCompleted, entity, models.EntityAll)
	if err != nil {
		return nil, fmt.Errorf("list completed extracts: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan sync id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const transformLogColumns = `id, transform_id, extract_sync_id, entity_type, status,
	started_at, completed_at,
	records_fetched, records_processed, records_created, records_updated,
	records_skipped, records_failed, error_message, user_id, metadata`

// CreateTransformLog opens a new transform run record.
func (s *Store) CreateTransformLog(ctx context.Context, log *models.TransformLog) error {
	err := s.db.QueryRow(ctx, `INSERT INTO transform_logs
			(transform_id, extract_sync_id, entity_type, status, started_at, user_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		log.TransformID, log.ExtractSyncID, log.EntityType, log.Status,
		log.StartedAt, log.UserID, log.Metadata).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("create transform log: %w", err)
	}
	return nil
}

// UpdateTransformLog rewrites the mutable part of a transform run record.
func (s *Store) UpdateTransformLog(ctx context.Context, log *models.TransformLog) error {
	tag, err := s.db.Exec(ctx, `UPDATE transform_logs SET
			status = $2, completed_at = $3,
			records_fetched = $4, records_processed = $5, records_created = $6,
			records_updated = $7, records_skipped = $8, records_failed = $9,
			error_message = $10, metadata = $11
		WHERE transform_id = $1`,
		log.TransformID, log.Status, log.CompletedAt,
		log.Counters.Fetched, log.Counters.Processed, log.Counters.Created,
		log.Counters.Updated, log.Counters.Skipped, log.Counters.Failed,
		log.ErrorMessage, log.Metadata)
	if err != nil {
		return fmt.Errorf("update transform log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTransformLog(row pgx.Row) (*models.TransformLog, error) {
	var log models.TransformLog
	err := row.Scan(&log.ID, &log.TransformID, &log.ExtractSyncID, &log.EntityType, &log.Status,
		&log.StartedAt, &log.CompletedAt,
		&log.Counters.Fetched, &log.Counters.Processed, &log.Counters.Created,
		&log.Counters.Updated, &log.Counters.Skipped, &log.Counters.Failed,
		&log.ErrorMessage, &log.UserID, &log.Metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan transform log: %w", err)
	}
	return &log, nil
}

// FailRunningTransformLog is the transform counterpart of
// FailRunningExtractLog.
func (s *Store) FailRunningTransformLog(ctx context.Context, transformID, message string) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE transform_logs SET
			status = $2, error_message = $3, completed_at = now()
		WHERE transform_id = $1 AND status = $4`,
		transformID, models.RunStatusFailed, message, models.RunStatusRunning)
	if err != nil {
		return false, fmt.Errorf("fail running transform log: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetTransformLog looks a transform run up by its transform id.
func (s *Store) GetTransformLog(ctx context.Context, transformID string) (*models.TransformLog, error) {
	row := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM transform_logs WHERE transform_id = $1`, transformLogColumns), transformID)
	return scanTransformLog(row)
}

// ListTransformLogs returns the most recent transform runs, newest first.
func (s *Store) ListTransformLogs(ctx context.Context, limit int) ([]models.TransformLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM transform_logs ORDER BY started_at DESC, id DESC LIMIT %d`,
			transformLogColumns, limit))
	if err != nil {
		return nil, fmt.Errorf("list transform logs: %w", err)
	}
	defer rows.Close()

	var out []models.TransformLog
	for rows.Next() {
		log, err := scanTransformLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *log)
	}
	return out, rows.Err()
}
