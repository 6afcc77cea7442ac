package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

const rawColumns = `id, sync_id, upstream_id, payload, api_page, api_offset, fetched_at,
	processing_status, processing_attempt, processing_error, processed_at`

// InsertRawBatch appends one page of upstream records to the staging table,
// skipping rows whose (sync_id, upstream_id) already exists. Returns the
// number of rows actually inserted; the difference to len(rows) is the
// duplicate count.
func (s *Store) InsertRawBatch(ctx context.Context, entity models.EntityType, rows []models.RawRecord) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	table, err := rawTable(entity)
	if err != nil {
		return 0, err
	}

	sql := fmt.Sprintf(`INSERT INTO %s (sync_id, upstream_id, payload, api_page, api_offset, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sync_id, upstream_id) DO NOTHING`, table)

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(sql, row.SyncID, row.UpstreamID, row.Payload, row.APIPage, row.APIOffset, row.FetchedAt)
	}

	results := s.db.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	inserted := 0
	for range rows {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert raw row: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// SelectPendingRaw returns pending staging rows in the order they were
// fetched. When syncIDs is non-empty only rows from those runs are returned;
// limit 0 means no limit.
func (s *Store) SelectPendingRaw(ctx context.Context, entity models.EntityType, syncIDs []string, limit int) ([]models.RawRecord, error) {
	table, err := rawTable(entity)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE processing_status = $1`, rawColumns, table)
	args := []any{models.ProcessingPending}
	if len(syncIDs) > 0 {
		sql += ` AND sync_id = ANY($2)`
		args = append(args, syncIDs)
	}
	sql += ` ORDER BY fetched_at, id`
	if limit > 0 {
		sql += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select pending raw rows: %w", err)
	}
	defer rows.Close()

	var out []models.RawRecord
	for rows.Next() {
		var r models.RawRecord
		if err := rows.Scan(&r.ID, &r.SyncID, &r.UpstreamID, &r.Payload, &r.APIPage, &r.APIOffset,
			&r.FetchedAt, &r.ProcessingStatus, &r.ProcessingAttempt, &r.ProcessingError, &r.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan raw row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkRawProcessed transitions a staging row to processed and clears any
// error from a previous attempt.
func (s *Store) MarkRawProcessed(ctx context.Context, entity models.EntityType, id int64) error {
	table, err := rawTable(entity)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, fmt.Sprintf(`UPDATE %s SET
			processing_status = $2,
			processing_attempt = processing_attempt + 1,
			processing_error = NULL,
			processed_at = now()
		WHERE id = $1`, table), id, models.ProcessingProcessed)
	if err != nil {
		return fmt.Errorf("mark raw row processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRawFailed transitions a staging row to failed and records the cause.
func (s *Store) MarkRawFailed(ctx context.Context, entity models.EntityType, id int64, cause string) error {
	table, err := rawTable(entity)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, fmt.Sprintf(`UPDATE %s SET
			processing_status = $2,
			processing_attempt = processing_attempt + 1,
			processing_error = $3
		WHERE id = $1`, table), id, models.ProcessingFailed, cause)
	if err != nil {
		return fmt.Errorf("mark raw row failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RawStatusCounts returns how many staging rows are in each processing
// status. An empty syncID counts the whole table.
func (s *Store) RawStatusCounts(ctx context.Context, entity models.EntityType, syncID string) (map[models.ProcessingStatus]int, error) {
	table, err := rawTable(entity)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(`SELECT processing_status, count(*) FROM %s`, table)
	args := []any{}
	if syncID != "" {
		sql += ` WHERE sync_id = $1`
		args = append(args, syncID)
	}
	sql += ` GROUP BY processing_status`

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("count raw rows: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ProcessingStatus]int)
	for rows.Next() {
		var status models.ProcessingStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan raw count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
