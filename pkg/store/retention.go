package store

import (
	"context"
	"fmt"
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

// PurgeProcessedRaw deletes processed staging rows that were consumed before
// the cutoff. Pending rows are still owed a transform and failed rows carry
// the evidence for debugging, so neither is ever purged.
func (s *Store) PurgeProcessedRaw(ctx context.Context, entity models.EntityType, cutoff time.Time) (int64, error) {
	table, err := rawTable(entity)
	if err != nil {
		return 0, err
	}
	tag, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s
		WHERE processing_status = $1 AND processed_at < $2`, table),
		models.ProcessingProcessed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge processed %s rows: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// PurgeOldRunLogs deletes terminal extract and transform logs whose runs
// finished before the cutoff, plus sync checkpoints not touched since then.
// Checkpoint status is deliberately ignored: a checkpoint untouched for this
// long belongs to a dead run whatever its status claims.
func (s *Store) PurgeOldRunLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64

	tag, err := s.db.Exec(ctx, `DELETE FROM extract_logs
		WHERE completed_at IS NOT NULL AND completed_at < $1`, cutoff)
	if err != nil {
		return total, fmt.Errorf("purge extract logs: %w", err)
	}
	total += tag.RowsAffected()

	tag, err = s.db.Exec(ctx, `DELETE FROM transform_logs
		WHERE completed_at IS NOT NULL AND completed_at < $1`, cutoff)
	if err != nil {
		return total, fmt.Errorf("purge transform logs: %w", err)
	}
	total += tag.RowsAffected()

	tag, err = s.db.Exec(ctx, `DELETE FROM sync_checkpoints WHERE updated_at < $1`, cutoff)
	if err != nil {
		return total, fmt.Errorf("purge sync checkpoints: %w", err)
	}
	total += tag.RowsAffected()

	return total, nil
}

// PurgeFinishedJobs deletes terminal sync jobs that finished before the
// cutoff. Jobs still pending or running always survive.
func (s *Store) PurgeFinishedJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sync_jobs
		WHERE completed_at IS NOT NULL AND completed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge finished jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}
