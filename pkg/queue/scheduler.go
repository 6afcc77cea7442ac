package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/config"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
)

// Scheduler enqueues a pipeline job per entity type on a fixed interval, so
// a worker daemon keeps the mirror fresh without an external operator. An
// entity with an equivalent job still pending or running is skipped, which
// caps queue growth at one job per entity no matter how slow the workers
// are.
type Scheduler struct {
	store    *store.Store
	cfg      *config.SyncConfig
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates an auto-sync scheduler.
func NewScheduler(st *store.Store, cfg *config.SyncConfig) *Scheduler {
	if st == nil {
		panic("queue.NewScheduler: store must not be nil")
	}
	if cfg == nil {
		cfg = config.DefaultSyncConfig()
	}
	return &Scheduler{
		store:  st,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
}

// Start begins the enqueue loop in a goroutine. With auto-sync disabled it
// starts nothing.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.AutoSyncEnabled {
		slog.Info("Auto-sync disabled, scheduler not started")
		return
	}

	slog.Info("Starting auto-sync scheduler", "interval", s.cfg.AutoSyncInterval)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop signals the scheduler to stop and waits for it to finish.
// It is safe to call Stop multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.AutoSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				slog.Error("Auto-sync enqueue failed", "error", err)
			}
		}
	}
}

// tick enqueues one pipeline job per entity type unless an equivalent job is
// already queued or running.
func (s *Scheduler) tick(ctx context.Context) error {
	for _, entity := range []models.EntityType{models.EntityContacts, models.EntityChats} {
		active, err := s.store.HasActiveJob(ctx, models.JobTypePipeline, entity)
		if err != nil {
			return fmt.Errorf("checking active jobs for %s: %w", entity, err)
		}
		if active {
			slog.Debug("Skipping auto-sync enqueue, job already active", "entity_type", entity)
			continue
		}

		job := &models.SyncJob{
			ID:         uuid.New().String(),
			JobType:    models.JobTypePipeline,
			EntityType: entity,
		}
		if err := s.store.EnqueueJob(ctx, job); err != nil {
			return fmt.Errorf("enqueueing auto-sync job for %s: %w", entity, err)
		}
		slog.Info("Auto-sync job enqueued", "job_id", job.ID, "entity_type", entity)
	}
	return nil
}
