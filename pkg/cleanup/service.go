// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/config"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
)

// Service periodically enforces retention policies:
//   - Purges processed staging rows past the raw retention window
//   - Purges terminal run logs and stale checkpoints past the log window
//   - Purges finished sync jobs past the job window
//
// All operations are idempotent and safe to run from multiple pods.
type Service struct {
	config *config.RetentionConfig
	store  *store.Store

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg *config.RetentionConfig, st *store.Store) *Service {
	if cfg == nil {
		cfg = config.DefaultRetentionConfig()
	}
	return &Service{
		config: cfg,
		store:  st,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"raw_retention_days", s.config.RawRetentionDays,
		"log_retention_days", s.config.LogRetentionDays,
		"job_retention_days", s.config.JobRetentionDays,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.purgeProcessedRaw(ctx)
	s.purgeOldRunLogs(ctx)
	s.purgeFinishedJobs(ctx)
}

// retentionCutoff converts a day count into an absolute cutoff.
func retentionCutoff(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -days)
}

func (s *Service) purgeProcessedRaw(ctx context.Context) {
	cutoff := retentionCutoff(s.config.RawRetentionDays)
	for _, entity := range []models.EntityType{models.EntityContacts, models.EntityChats} {
		count, err := s.store.PurgeProcessedRaw(ctx, entity, cutoff)
		if err != nil {
			slog.Error("Retention: raw purge failed", "entity_type", entity, "error", err)
			continue
		}
		if count > 0 {
			slog.Info("Retention: purged processed staging rows",
				"entity_type", entity, "count", count)
		}
	}
}

func (s *Service) purgeOldRunLogs(ctx context.Context) {
	count, err := s.store.PurgeOldRunLogs(ctx, retentionCutoff(s.config.LogRetentionDays))
	if err != nil {
		slog.Error("Retention: run log purge failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: purged old run logs", "count", count)
	}
}

func (s *Service) purgeFinishedJobs(ctx context.Context) {
	count, err := s.store.PurgeFinishedJobs(ctx, retentionCutoff(s.config.JobRetentionDays))
	if err != nil {
		slog.Error("Retention: job purge failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: purged finished jobs", "count", count)
	}
}
