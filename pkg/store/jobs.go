package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

const jobColumns = `id, job_type, entity_type, options, status, pod_id, sync_id, transform_id,
	error_message, cancel_requested, scheduled_at, started_at, completed_at,
	last_heartbeat, created_at, updated_at`

func scanJob(row pgx.Row) (*models.SyncJob, error) {
	var j models.SyncJob
	err := row.Scan(&j.ID, &j.JobType, &j.EntityType, &j.Options, &j.Status,
		&j.PodID, &j.SyncID, &j.TransformID, &j.ErrorMessage, &j.CancelRequested,
		&j.ScheduledAt, &j.StartedAt, &j.CompletedAt, &j.LastHeartbeat,
		&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan sync job: %w", err)
	}
	return &j, nil
}

// EnqueueJob inserts a new pending job.
func (s *Store) EnqueueJob(ctx context.Context, job *models.SyncJob) error {
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if job.ScheduledAt.IsZero() {
		job.ScheduledAt = time.Now()
	}
	_, err := s.db.Exec(ctx, `INSERT INTO sync_jobs (id, job_type, entity_type, options, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.JobType, job.EntityType, job.Options, job.Status, job.ScheduledAt)
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// ClaimNextJob atomically picks the oldest due pending job and moves it to
// in_progress under the claiming pod's id. FOR UPDATE SKIP LOCKED keeps
// concurrent workers from claiming the same row. Returns ErrNotFound when
// nothing is due.
func (s *Store) ClaimNextJob(ctx context.Context, podID string) (*models.SyncJob, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	// Rollback is a no-op once the transaction committed.
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	err = tx.QueryRow(ctx, `SELECT id FROM sync_jobs
		WHERE status = $1 AND scheduled_at <= now()
		ORDER BY scheduled_at, created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, models.JobStatusPending).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select claimable job: %w", err)
	}

	row := tx.QueryRow(ctx, fmt.Sprintf(`UPDATE sync_jobs SET
			status = $2, pod_id = $3, started_at = now(), last_heartbeat = now(), updated_at = now()
		WHERE id = $1
		RETURNING %s`, jobColumns), id, models.JobStatusInProgress, podID)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}
	return job, nil
}

// HeartbeatJob refreshes the worker liveness stamp and reports whether a
// cancel has been requested, so the worker polls both in one round-trip.
func (s *Store) HeartbeatJob(ctx context.Context, id string) (bool, error) {
	var cancelRequested bool
	err := s.db.QueryRow(ctx, `UPDATE sync_jobs SET last_heartbeat = now(), updated_at = now()
		WHERE id = $1 AND (status = $2 OR status = $3)
		RETURNING cancel_requested`,
		id, models.JobStatusInProgress, models.JobStatusCancelling).Scan(&cancelRequested)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("heartbeat job: %w", err)
	}
	return cancelRequested, nil
}

// RequestJobCancel flags a job for cancellation. A job still pending is
// cancelled outright; a running job moves to cancelling and its worker
// finalizes it. Repeated cancels are no-ops.
func (s *Store) RequestJobCancel(ctx context.Context, id string) (*models.SyncJob, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf(`UPDATE sync_jobs SET
			cancel_requested = TRUE,
			status = CASE
				WHEN status = $2 THEN $3
				WHEN status = $4 THEN $5
				ELSE status
			END,
			completed_at = CASE WHEN status = $2 THEN now() ELSE completed_at END,
			updated_at = now()
		WHERE id = $1
		RETURNING %s`, jobColumns),
		id, models.JobStatusPending, models.JobStatusCancelled,
		models.JobStatusInProgress, models.JobStatusCancelling)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("request job cancel: %w", err)
	}
	return job, nil
}

// SetJobRunIDs records the extract and transform run ids a job started, so
// operators can correlate jobs with run logs. Nil arguments leave the
// existing value in place.
func (s *Store) SetJobRunIDs(ctx context.Context, id string, syncID, transformID *string) error {
	_, err := s.db.Exec(ctx, `UPDATE sync_jobs SET
			sync_id = COALESCE($2, sync_id),
			transform_id = COALESCE($3, transform_id),
			updated_at = now()
		WHERE id = $1`, id, syncID, transformID)
	if err != nil {
		return fmt.Errorf("set job run ids: %w", err)
	}
	return nil
}

// FinishJob moves a job to a terminal status.
func (s *Store) FinishJob(ctx context.Context, id string, status models.JobStatus, errorMessage *string) error {
	tag, err := s.db.Exec(ctx, `UPDATE sync_jobs SET
			status = $2, error_message = $3, completed_at = now(), updated_at = now()
		WHERE id = $1`, id, status, errorMessage)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReapOrphanJobs times out running jobs whose worker stopped heartbeating
// before threshold ago and returns the reaped rows, so the caller can
// finalize the run logs those jobs left behind.
func (s *Store) ReapOrphanJobs(ctx context.Context, threshold time.Duration) ([]models.SyncJob, error) {
	cutoff := time.Now().Add(-threshold)
	rows, err := s.db.Query(ctx, fmt.Sprintf(`UPDATE sync_jobs SET
			status = $1, error_message = $2, completed_at = now(), updated_at = now()
		WHERE (status = $3 OR status = $4) AND (last_heartbeat IS NULL OR last_heartbeat < $5)
		RETURNING %s`, jobColumns),
		models.JobStatusTimedOut, "worker heartbeat lost",
		models.JobStatusInProgress, models.JobStatusCancelling, cutoff)
	if err != nil {
		return nil, fmt.Errorf("reap orphan jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ReapPodJobs times out every job still claimed by the given pod. Called on
// pod startup: anything this pod left in_progress belongs to a previous
// crashed process and will never finish.
func (s *Store) ReapPodJobs(ctx context.Context, podID string) ([]models.SyncJob, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf(`UPDATE sync_jobs SET
			status = $1, error_message = $2, completed_at = now(), updated_at = now()
		WHERE (status = $3 OR status = $4) AND pod_id = $5
		RETURNING %s`, jobColumns),
		models.JobStatusTimedOut, fmt.Sprintf("pod %s restarted while job was running", podID),
		models.JobStatusInProgress, models.JobStatusCancelling, podID)
	if err != nil {
		return nil, fmt.Errorf("reap pod jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

func collectJobs(rows pgx.Rows) ([]models.SyncJob, error) {
	var out []models.SyncJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

// GetJob looks a job up by id.
func (s *Store) GetJob(ctx context.Context, id string) (*models.SyncJob, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM sync_jobs WHERE id = $1`, jobColumns), id)
	return scanJob(row)
}

// ListJobs returns the most recent jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]models.SyncJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM sync_jobs ORDER BY created_at DESC, id DESC LIMIT %d`, jobColumns, limit))
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// CountJobs returns how many jobs are in any of the given statuses. The
// worker pool uses this for the global concurrency gate and queue depth.
func (s *Store) CountJobs(ctx context.Context, statuses ...models.JobStatus) (int, error) {
	set := make([]string, len(statuses))
	for i, st := range statuses {
		set[i] = string(st)
	}
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM sync_jobs WHERE status = ANY($1)`, set).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}

// HasActiveJob reports whether a pending or running job already exists for
// the given type and entity. The auto-sync scheduler uses this to avoid
// piling up duplicate work.
func (s *Store) HasActiveJob(ctx context.Context, jobType models.JobType, entity models.EntityType) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sync_jobs
		WHERE job_type = $1 AND entity_type = $2
		AND (status = $3 OR status = $4 OR status = $5))`,
		jobType, entity,
		models.JobStatusPending, models.JobStatusInProgress, models.JobStatusCancelling).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active jobs: %w", err)
	}
	return exists, nil
}
