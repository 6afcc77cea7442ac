package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/config"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Worker is a single queue worker that polls for and processes jobs.
type Worker struct {
	id       string
	podID    string
	store    *store.Store
	config   *config.QueueConfig
	executor JobExecutor
	pool     JobRegistry
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Health tracking
	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// JobRegistry is the subset of WorkerPool used by Worker for job registration.
type JobRegistry interface {
	RegisterJob(jobID string, cancel context.CancelFunc)
	UnregisterJob(jobID string)
}

// NewWorker creates a new queue worker.
func NewWorker(id, podID string, st *store.Store, cfg *config.QueueConfig, executor JobExecutor, pool JobRegistry) *Worker {
	return &Worker{
		id:           id,
		podID:        podID,
		store:        st,
		config:       cfg,
		executor:     executor,
		pool:         pool,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish.
// It is safe to call Stop multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        string(w.status),
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

// run is the main worker loop.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("Worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("Worker shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoJobsAvailable) || errors.Is(err, ErrAtCapacity) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("Error processing job", "error", err)
				w.sleep(time.Second) // Brief backoff on error
			}
		}
	}
}

// sleep waits for the given duration or until stop is signalled.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess checks capacity, claims a job, and processes it.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	// 1. Check global capacity (best-effort; racy with concurrent workers but
	//    bounded by WorkerCount and mitigated by poll jitter).
	activeCount, err := w.store.CountJobs(ctx, models.JobStatusInProgress, models.JobStatusCancelling)
	if err != nil {
		return fmt.Errorf("checking active jobs: %w", err)
	}
	if activeCount >= w.config.MaxConcurrentJobs {
		return ErrAtCapacity
	}

	// 2. Claim next job
	job, err := w.store.ClaimNextJob(ctx, w.podID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoJobsAvailable
		}
		return fmt.Errorf("claiming job: %w", err)
	}

	log := slog.With("job_id", job.ID, "job_type", job.JobType,
		"entity_type", job.EntityType, "worker_id", w.id)
	log.Info("Job claimed")

	w.setStatus(WorkerStatusWorking, job.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	// 3. Create job context with timeout
	jobCtx, cancelJob := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancelJob()

	// 4. Register cancel function for in-process cancellation
	w.pool.RegisterJob(job.ID, cancelJob)
	defer w.pool.UnregisterJob(job.ID)

	// 5. Start heartbeat; it also bridges persisted cancel requests into the
	//    job context
	heartbeatCtx, stopHeartbeat := context.WithCancel(jobCtx)
	defer stopHeartbeat()
	go w.runHeartbeat(heartbeatCtx, job.ID, cancelJob)

	// 6. Execute job
	result := w.executor.Execute(jobCtx, job)

	// Nil-guard: synthesize a safe result if the executor returned none
	if result == nil {
		result = &ExecutionResult{Error: fmt.Errorf("executor returned nil result")}
	}

	// Classify results the executor left open
	if result.Status == "" {
		switch {
		case errors.Is(jobCtx.Err(), context.DeadlineExceeded):
			result.Status = models.JobStatusTimedOut
			if result.Error == nil {
				result.Error = fmt.Errorf("job timed out after %v", w.config.JobTimeout)
			}
		case errors.Is(jobCtx.Err(), context.Canceled):
			result.Status = models.JobStatusCancelled
			if result.Error == nil {
				result.Error = context.Canceled
			}
		default:
			result.Status = models.JobStatusFailed
			if result.Error == nil {
				result.Error = fmt.Errorf("executor returned no status")
			}
		}
	}

	// 7. Stop heartbeat
	stopHeartbeat()

	// 8. Write terminal status (use background context; the job context may
	//    be cancelled)
	finishCtx, cancelFinish := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelFinish()
	var errMsg *string
	if result.Error != nil {
		msg := result.Error.Error()
		errMsg = &msg
	}
	if err := w.store.FinishJob(finishCtx, job.ID, result.Status, errMsg); err != nil {
		log.Error("Failed to write terminal job status", "error", err)
		return err
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	log.Info("Job processing complete", "status", result.Status)
	return nil
}

// runHeartbeat periodically stamps the job for orphan detection. The same
// round-trip reports whether a cancel was requested through the job row, in
// which case the job context is cancelled and the engines wind down
// cooperatively.
func (w *Worker) runHeartbeat(ctx context.Context, jobID string, cancelJob context.CancelFunc) {
	ticker := time.NewTicker(w.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cancelRequested, err := w.store.HeartbeatJob(ctx, jobID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					// The job reached a terminal state under us (reaped as an
					// orphan, most likely): stop working on it.
					slog.Warn("Job no longer active, stopping work", "job_id", jobID)
					cancelJob()
					return
				}
				slog.Warn("Heartbeat update failed", "job_id", jobID, "error", err)
				continue
			}
			if cancelRequested {
				slog.Info("Cancel request observed, stopping job", "job_id", jobID)
				cancelJob()
				return
			}
		}
	}
}

// pollInterval returns the poll duration with jitter.
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	// Range: [base - jitter, base + jitter]
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

// setStatus updates the worker's health tracking state.
func (w *Worker) setStatus(status WorkerStatus, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
