package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/config"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/test/util"
)

func newTestStore(t *testing.T) (*store.Store, *pgxpool.Pool) {
	t.Helper()
	pool := util.SetupTestDatabase(t)
	st, err := store.New(pool)
	require.NoError(t, err)
	return st, pool
}

// enqueueTestJob creates a pending job.
func enqueueTestJob(ctx context.Context, t *testing.T, st *store.Store, jobType models.JobType, entity models.EntityType) *models.SyncJob {
	t.Helper()
	job := &models.SyncJob{
		ID:         uuid.New().String(),
		JobType:    jobType,
		EntityType: entity,
	}
	require.NoError(t, st.EnqueueJob(ctx, job))
	return job
}

// intTestQueueConfig returns a queue config suitable for integration tests.
// Orphan detection intervals are generous so the background scan never
// interferes with tests that hold jobs open deliberately; orphan tests call
// the scan directly instead.
func intTestQueueConfig() *config.QueueConfig {
	return &config.QueueConfig{
		WorkerCount:             2,
		MaxConcurrentJobs:       10,
		PollInterval:            100 * time.Millisecond,
		PollIntervalJitter:      0,
		JobTimeout:              30 * time.Second,
		HeartbeatInterval:       30 * time.Second,
		GracefulShutdownTimeout: 10 * time.Second,
		OrphanDetectionInterval: 1 * time.Minute,
		OrphanThreshold:         5 * time.Minute,
	}
}

// awaitCondition polls until condition returns true or the timeout elapses.
func awaitCondition(t *testing.T, timeout, interval time.Duration, msg string, condition func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out: %s", msg)
		default:
			if condition() {
				return
			}
			time.Sleep(interval)
		}
	}
}

// mockExecutor counts executions without touching the engines.
type mockExecutor struct {
	processed  atomic.Int64
	inProgress atomic.Int64
	releaseCh  chan struct{} // optional: blocks execution until closed
}

func (m *mockExecutor) Execute(ctx context.Context, _ *models.SyncJob) *ExecutionResult {
	m.processed.Add(1)

	m.inProgress.Add(1)
	defer m.inProgress.Add(-1)

	// If releaseCh is set, block until it's closed (for deterministic tests)
	if m.releaseCh != nil {
		select {
		case <-m.releaseCh:
			// Released, continue
		case <-ctx.Done():
			return &ExecutionResult{
				Status: models.JobStatusCancelled,
				Error:  ctx.Err(),
			}
		}
	} else {
		// Default behavior: simulate short processing
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return &ExecutionResult{
				Status: models.JobStatusCancelled,
				Error:  ctx.Err(),
			}
		}
	}

	return &ExecutionResult{Status: models.JobStatusCompleted}
}

func TestPoolEndToEndProcessesJobs(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		enqueueTestJob(ctx, t, st, models.JobTypeExtract, models.EntityContacts)
	}

	cfg := intTestQueueConfig()
	executor := &mockExecutor{}
	pool := NewWorkerPool("test-pod", st, cfg, executor)

	require.NoError(t, pool.Start(ctx))

	awaitCondition(t, 10*time.Second, 100*time.Millisecond,
		"waiting for jobs to be processed",
		func() bool { return executor.processed.Load() >= 3 })

	pool.Stop()

	completed, err := st.CountJobs(ctx, models.JobStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 3, completed, "all 3 jobs should be completed")

	health := pool.Health()
	assert.Equal(t, 2, health.TotalWorkers)
	assert.True(t, health.DBReachable)
}

func TestPoolRespectsCapacityLimit(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		enqueueTestJob(ctx, t, st, models.JobTypeExtract, models.EntityChats)
	}

	// Match worker count to the global limit to avoid startup races
	cfg := intTestQueueConfig()
	cfg.WorkerCount = 2
	cfg.MaxConcurrentJobs = 2
	cfg.PollInterval = 50 * time.Millisecond

	releaseCh := make(chan struct{})
	executor := &mockExecutor{releaseCh: releaseCh}
	pool := NewWorkerPool("test-pod", st, cfg, executor)

	require.NoError(t, pool.Start(ctx))

	awaitCondition(t, 5*time.Second, 10*time.Millisecond,
		"waiting for the pool to reach its concurrency limit",
		func() bool { return executor.inProgress.Load() == int64(cfg.MaxConcurrentJobs) })

	// Give the remaining workers a moment to overshoot if they were going to
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(cfg.MaxConcurrentJobs), executor.inProgress.Load(),
		"should have exactly MaxConcurrentJobs in progress")

	dbInProgress, err := st.CountJobs(ctx, models.JobStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, cfg.MaxConcurrentJobs, dbInProgress, "DB should show MaxConcurrentJobs in_progress")

	close(releaseCh)

	awaitCondition(t, 10*time.Second, 50*time.Millisecond,
		"waiting for all jobs to be processed",
		func() bool { return executor.processed.Load() >= 5 })

	pool.Stop()

	completed, err := st.CountJobs(ctx, models.JobStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 5, completed, "all 5 jobs should complete")
}

func TestWorkerHeartbeatStampsJob(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	job := enqueueTestJob(ctx, t, st, models.JobTypeTransform, models.EntityContacts)

	cfg := intTestQueueConfig()
	cfg.WorkerCount = 1
	cfg.PollInterval = 50 * time.Millisecond
	cfg.HeartbeatInterval = 100 * time.Millisecond

	releaseCh := make(chan struct{})
	executor := &mockExecutor{releaseCh: releaseCh}
	pool := NewWorkerPool("test-pod", st, cfg, executor)

	require.NoError(t, pool.Start(ctx))

	awaitCondition(t, 5*time.Second, 10*time.Millisecond,
		"waiting for the job to be claimed",
		func() bool {
			got, err := st.GetJob(ctx, job.ID)
			require.NoError(t, err)
			return got.Status == models.JobStatusInProgress && got.LastHeartbeat != nil
		})

	first, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, first.LastHeartbeat)
	initial := *first.LastHeartbeat

	// Wait long enough for at least one heartbeat tick
	time.Sleep(250 * time.Millisecond)

	second, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusInProgress, second.Status, "job should still be in progress")
	require.NotNil(t, second.LastHeartbeat)
	assert.True(t, second.LastHeartbeat.After(initial), "last_heartbeat should be updated by heartbeat")

	close(releaseCh)
	pool.Stop()
}

func TestCancelRequestFinalizesJobCancelled(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	job := enqueueTestJob(ctx, t, st, models.JobTypeExtract, models.EntityChats)

	cfg := intTestQueueConfig()
	cfg.WorkerCount = 1
	cfg.PollInterval = 50 * time.Millisecond
	cfg.HeartbeatInterval = 50 * time.Millisecond

	// Executor blocks until its context is cancelled
	executor := &mockExecutor{releaseCh: make(chan struct{})}
	pool := NewWorkerPool("test-pod", st, cfg, executor)

	require.NoError(t, pool.Start(ctx))
	defer pool.Stop()

	awaitCondition(t, 5*time.Second, 10*time.Millisecond,
		"waiting for the job to be claimed",
		func() bool {
			got, err := st.GetJob(ctx, job.ID)
			require.NoError(t, err)
			return got.Status == models.JobStatusInProgress
		})

	// Request cancellation through the job row, the way the CLI does for a
	// job running on another pod
	flagged, err := st.RequestJobCancel(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelling, flagged.Status)
	assert.True(t, flagged.CancelRequested)

	// The worker's heartbeat observes the flag, cancels the job context, and
	// finalizes the job
	awaitCondition(t, 5*time.Second, 50*time.Millisecond,
		"waiting for the job to finalize as cancelled",
		func() bool {
			got, err := st.GetJob(ctx, job.ID)
			require.NoError(t, err)
			return got.Status == models.JobStatusCancelled
		})

	final, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, final.CancelRequested)
	assert.NotNil(t, final.CompletedAt)
}

// nilExecutor returns a nil *ExecutionResult for testing the nil-guard.
type nilExecutor struct {
	processed atomic.Int64
}

func (e *nilExecutor) Execute(_ context.Context, _ *models.SyncJob) *ExecutionResult {
	e.processed.Add(1)
	return nil
}

func TestNilExecutionResultGuard(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	job := enqueueTestJob(ctx, t, st, models.JobTypeExtract, models.EntityContacts)

	cfg := intTestQueueConfig()
	cfg.WorkerCount = 1
	cfg.PollInterval = 50 * time.Millisecond

	executor := &nilExecutor{}
	pool := NewWorkerPool("test-pod", st, cfg, executor)

	require.NoError(t, pool.Start(ctx))

	awaitCondition(t, 5*time.Second, 50*time.Millisecond,
		"waiting for the job to be processed",
		func() bool { return executor.processed.Load() >= 1 })

	pool.Stop()

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "nil result")
}

func TestOrphanScanFinalizesJobAndRunLogs(t *testing.T) {
	st, dbPool := newTestStore(t)
	ctx := context.Background()

	// Simulate a crashed pod: claimed job with recorded run ids, run logs
	// still open, heartbeat long gone
	job := enqueueTestJob(ctx, t, st, models.JobTypePipeline, models.EntityContacts)
	claimed, err := st.ClaimNextJob(ctx, "crashed-pod")
	require.NoError(t, err)
	require.Equal(t, job.ID, claimed.ID)

	syncID := "sync-orphan-1"
	transformID := "tr-orphan-1"
	require.NoError(t, st.SetJobRunIDs(ctx, job.ID, &syncID, &transformID))
	require.NoError(t, st.CreateExtractLog(ctx, &models.ExtractLog{
		SyncID:     syncID,
		EntityType: models.EntityContacts,
		Status:     models.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
		Metadata:   map[string]any{},
	}))
	require.NoError(t, st.CreateTransformLog(ctx, &models.TransformLog{
		TransformID: transformID,
		EntityType:  models.EntityContacts,
		Status:      models.RunStatusRunning,
		StartedAt:   time.Now().UTC(),
		Metadata:    map[string]any{},
	}))

	_, err = dbPool.Exec(ctx,
		`UPDATE sync_jobs SET last_heartbeat = now() - interval '10 minutes' WHERE id = $1`, job.ID)
	require.NoError(t, err)

	cfg := intTestQueueConfig()
	cfg.OrphanThreshold = 1 * time.Second

	pool := &WorkerPool{
		podID:  "test-pod",
		store:  st,
		config: cfg,
	}
	require.NoError(t, pool.detectAndRecoverOrphans(ctx))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusTimedOut, got.Status)

	extractLog, err := st.GetExtractLog(ctx, syncID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, extractLog.Status)
	require.NotNil(t, extractLog.ErrorMessage)
	assert.Contains(t, *extractLog.ErrorMessage, "orphaned")

	transformLog, err := st.GetTransformLog(ctx, transformID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, transformLog.Status)

	pool.orphans.mu.Lock()
	assert.Equal(t, 1, pool.orphans.orphansRecovered)
	pool.orphans.mu.Unlock()
}

func TestRecoverStartupJobs(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	mine := enqueueTestJob(ctx, t, st, models.JobTypeExtract, models.EntityContacts)
	theirs := enqueueTestJob(ctx, t, st, models.JobTypeExtract, models.EntityChats)
	_, err := st.ClaimNextJob(ctx, "restarting-pod")
	require.NoError(t, err)
	_, err = st.ClaimNextJob(ctx, "other-pod")
	require.NoError(t, err)

	syncID := "sync-startup-1"
	require.NoError(t, st.SetJobRunIDs(ctx, mine.ID, &syncID, nil))
	require.NoError(t, st.CreateExtractLog(ctx, &models.ExtractLog{
		SyncID:     syncID,
		EntityType: models.EntityContacts,
		Status:     models.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
		Metadata:   map[string]any{},
	}))

	require.NoError(t, RecoverStartupJobs(ctx, st, "restarting-pod"))

	got, err := st.GetJob(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusTimedOut, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "restarted")

	extractLog, err := st.GetExtractLog(ctx, syncID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, extractLog.Status)

	// The other pod's job is untouched
	other, err := st.GetJob(ctx, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusInProgress, other.Status)
}

func TestSchedulerTickEnqueuesPipelineJobs(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	cfg := config.DefaultSyncConfig()
	cfg.AutoSyncEnabled = true
	s := NewScheduler(st, cfg)

	require.NoError(t, s.tick(ctx))

	jobs, err := st.ListJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	entities := map[models.EntityType]bool{}
	for _, j := range jobs {
		assert.Equal(t, models.JobTypePipeline, j.JobType)
		assert.Equal(t, models.JobStatusPending, j.Status)
		entities[j.EntityType] = true
	}
	assert.True(t, entities[models.EntityContacts])
	assert.True(t, entities[models.EntityChats])

	// A second tick skips: equivalent jobs are still pending
	require.NoError(t, s.tick(ctx))
	jobs, err = st.ListJobs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	// Once the jobs finish, the next tick enqueues fresh ones
	for _, j := range jobs {
		require.NoError(t, st.FinishJob(ctx, j.ID, models.JobStatusCompleted, nil))
	}
	require.NoError(t, s.tick(ctx))
	jobs, err = st.ListJobs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 4)
}
