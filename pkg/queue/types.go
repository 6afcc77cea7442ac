// Package queue provides the persistent sync job queue and the worker pool
// that drains it. Jobs are claimed FIFO with FOR UPDATE SKIP LOCKED, so any
// number of pods can run workers against the same database; heartbeats and
// orphan detection recover jobs whose worker died mid-run.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

// Sentinel errors for queue operations.
var (
	// ErrNoJobsAvailable indicates no pending jobs are due.
	ErrNoJobsAvailable = errors.New("no jobs available")

	// ErrAtCapacity indicates the global concurrent job limit has been reached.
	ErrAtCapacity = errors.New("at capacity")
)

// JobExecutor is the interface for job processing.
//
// The executor owns the run itself: it allocates run ids, records them on
// the job row, and drives the engines, which write their own run logs
// progressively. The worker only handles claiming, heartbeat, and the
// terminal job status update.
type JobExecutor interface {
	Execute(ctx context.Context, job *models.SyncJob) *ExecutionResult
}

// ExecutionResult is lightweight: just the terminal state. All run detail
// (extract/transform logs, counters, checkpoints) was already written by the
// engines during processing.
type ExecutionResult struct {
	Status models.JobStatus // completed, failed, timed_out, cancelled
	Error  error            // error details (if failed/timed_out)
}

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy        bool           `json:"is_healthy"`
	DBReachable      bool           `json:"db_reachable"`
	DBError          string         `json:"db_error,omitempty"`
	PodID            string         `json:"pod_id"`
	ActiveWorkers    int            `json:"active_workers"`
	TotalWorkers     int            `json:"total_workers"`
	ActiveJobs       int            `json:"active_jobs"`
	MaxConcurrent    int            `json:"max_concurrent"`
	QueueDepth       int            `json:"queue_depth"`
	WorkerStats      []WorkerHealth `json:"worker_stats"`
	LastOrphanScan   time.Time      `json:"last_orphan_scan"`
	OrphansRecovered int            `json:"orphans_recovered"`
}

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"` // "idle" or "working"
	CurrentJobID  string    `json:"current_job_id,omitempty"`
	JobsProcessed int       `json:"jobs_processed"`
	LastActivity  time.Time `json:"last_activity"`
}
