package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
)

// orphanState tracks orphan detection metrics (thread-safe).
type orphanState struct {
	mu               sync.Mutex
	lastOrphanScan   time.Time
	orphansRecovered int
}

// runOrphanDetection periodically scans for orphaned jobs.
// All pods run this independently; the reap is idempotent.
func (p *WorkerPool) runOrphanDetection(ctx context.Context) {
	ticker := time.NewTicker(p.config.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.detectAndRecoverOrphans(ctx); err != nil {
				slog.Error("Orphan detection failed", "error", err)
			}
		}
	}
}

// detectAndRecoverOrphans times out running jobs whose heartbeat went stale
// and fails the run logs they left open. Rows not yet processed stay pending
// in staging, so the work itself is never lost, only re-queued.
func (p *WorkerPool) detectAndRecoverOrphans(ctx context.Context) error {
	reaped, err := p.store.ReapOrphanJobs(ctx, p.config.OrphanThreshold)
	if err != nil {
		return fmt.Errorf("failed to reap orphaned jobs: %w", err)
	}

	if len(reaped) > 0 {
		slog.Warn("Detected orphaned jobs", "count", len(reaped))
		for _, job := range reaped {
			podID := "unknown"
			if job.PodID != nil {
				podID = *job.PodID
			}
			finalizeOrphanRunLogs(ctx, p.store, &job,
				fmt.Sprintf("orphaned: no heartbeat from pod %s", podID))
			slog.Warn("Orphaned job marked as timed_out", "job_id", job.ID, "old_pod_id", podID)
		}
	}

	p.orphans.mu.Lock()
	p.orphans.lastOrphanScan = time.Now()
	p.orphans.orphansRecovered += len(reaped)
	p.orphans.mu.Unlock()

	return nil
}

// finalizeOrphanRunLogs fails the extract and transform logs a dead job
// started but never closed. Logs that already reached a terminal state on
// their own are left alone.
func finalizeOrphanRunLogs(ctx context.Context, st *store.Store, job *models.SyncJob, cause string) {
	if job.SyncID != nil {
		if _, err := st.FailRunningExtractLog(ctx, *job.SyncID, cause); err != nil {
			slog.Error("Failed to finalize orphaned extract log",
				"job_id", job.ID, "sync_id", *job.SyncID, "error", err)
		}
	}
	if job.TransformID != nil {
		if _, err := st.FailRunningTransformLog(ctx, *job.TransformID, cause); err != nil {
			slog.Error("Failed to finalize orphaned transform log",
				"job_id", job.ID, "transform_id", *job.TransformID, "error", err)
		}
	}
}

// RecoverStartupJobs performs a one-time cleanup of jobs owned by this pod
// that were running when the pod previously crashed.
// Called once during startup, before the worker pool begins processing.
func RecoverStartupJobs(ctx context.Context, st *store.Store, podID string) error {
	reaped, err := st.ReapPodJobs(ctx, podID)
	if err != nil {
		return fmt.Errorf("failed to reap startup orphans: %w", err)
	}
	if len(reaped) == 0 {
		return nil
	}

	slog.Warn("Found startup orphans from previous run",
		"pod_id", podID,
		"count", len(reaped))

	for _, job := range reaped {
		finalizeOrphanRunLogs(ctx, st, &job,
			fmt.Sprintf("pod %s restarted while job was running", podID))
		slog.Info("Startup orphan recovered", "job_id", job.ID)
	}

	return nil
}
