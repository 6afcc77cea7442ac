package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/cleanup"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/queue"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/version"
)

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the sync worker daemon",
		Long: `Starts the long-lived sync daemon: a worker pool claiming queued jobs,
the auto-sync scheduler enqueuing periodic pipeline runs, and the retention
cleanup service. Multiple replicas coordinate through the job table; each
pod recovers its own leftover jobs on startup.

Stops gracefully on SIGTERM/SIGINT, giving in-flight jobs the configured
shutdown window before cancelling them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context())
		},
	}
}

func runWorker(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("Starting b2sync worker",
		"version", version.Full(),
		"pod_id", a.podID,
		"config_dir", flagConfigDir)

	// Jobs this pod left in_progress before a restart are finalized before
	// new work is claimed.
	if err := queue.RecoverStartupJobs(ctx, a.store, a.podID); err != nil {
		slog.Error("Startup job recovery failed", "error", err)
		// Non-fatal — continue
	}

	ext, tr, err := a.engines()
	if err != nil {
		return err
	}

	executor := queue.NewExecutor(a.store, ext, tr)
	pool := queue.NewWorkerPool(a.podID, a.store, a.cfg.Queue, executor)
	if err := pool.Start(ctx); err != nil {
		return err
	}

	scheduler := queue.NewScheduler(a.store, a.cfg.Sync)
	scheduler.Start(ctx)

	janitor := cleanup.NewService(a.cfg.Retention, a.store)
	janitor.Start(ctx)

	slog.Info("b2sync worker started",
		"pod_id", a.podID,
		"workers", a.cfg.Queue.WorkerCount,
		"auto_sync", a.cfg.Sync.AutoSyncEnabled)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	slog.Info("Shutdown signal received", "signal", sig)

	// Stop producers first so no new jobs appear, then drain the pool. Pool
	// shutdown bounds itself with GracefulShutdownTimeout and cancels
	// whatever is still running after it.
	scheduler.Stop()
	janitor.Stop()
	pool.Stop()

	slog.Info("Shutdown complete")
	return nil
}
