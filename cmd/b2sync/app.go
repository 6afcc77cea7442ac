package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/b2chat"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/cancel"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/config"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/database"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/extract"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/sla"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/transform"
)

// app holds the wiring every subcommand needs: configuration, the migrated
// database connection, and the store on top of it.
type app struct {
	cfg   *config.Config
	db    *database.Client
	store *store.Store
	podID string
}

// newApp loads .env and b2sync.yaml from the config directory, connects to
// PostgreSQL (running pending migrations), and returns the wired app.
// Callers own Close.
func newApp(ctx context.Context) (*app, error) {
	loadDotEnv(flagConfigDir)

	cfg, err := config.Initialize(ctx, configFilePath(flagConfigDir))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize configuration: %w", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	st, err := store.New(dbClient.Pool())
	if err != nil {
		dbClient.Close()
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	return &app{
		cfg:   cfg,
		db:    dbClient,
		store: st,
		podID: resolvePodID(),
	}, nil
}

// Close releases the database pool.
func (a *app) Close() {
	a.db.Close()
}

// engines builds the extract and transform engines from configuration. Both
// share one cancel registry so a pipeline run is cancellable end to end.
func (a *app) engines() (*extract.Engine, *transform.Engine, error) {
	username, password := a.cfg.B2Chat.Credentials()
	client, err := b2chat.NewClient(b2chat.Config{
		BaseURL:  a.cfg.B2Chat.BaseURL,
		Username: username,
		Password: password,
		Timeout:  a.cfg.B2Chat.Timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create b2chat client: %w", err)
	}

	callQueue := b2chat.NewCallQueue(b2chat.QueueConfig{
		MaxInflight:     a.cfg.RateLimit.MaxInflight,
		MinInterval:     a.cfg.RateLimit.MinInterval,
		RetryAttempts:   a.cfg.RateLimit.RetryAttempts,
		RetryDelay:      a.cfg.RateLimit.RetryDelay,
		RetryMaxDelay:   a.cfg.RateLimit.RetryMaxDelay,
		RetryMultiplier: a.cfg.RateLimit.RetryMultiplier,
	})

	calculator, err := sla.NewCalculator(a.cfg.SLA, a.cfg.OfficeHours)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create SLA calculator: %w", err)
	}

	registry := cancel.NewRegistry()
	ext := extract.New(a.store, client, callQueue, registry, a.cfg.Sync)
	tr := transform.New(a.store, registry, calculator, a.cfg.Sync)
	return ext, tr, nil
}

// configFilePath maps the config directory onto the loader's path contract:
// an explicitly configured directory must contain b2sync.yaml, while the
// default working directory may run on built-in defaults alone.
func configFilePath(dir string) string {
	if dir == "" || dir == "." {
		return ""
	}
	return filepath.Join(dir, "b2sync.yaml")
}

// loadDotEnv loads .env from the config directory. A missing file is fine;
// deployments often provide environment variables directly.
func loadDotEnv(dir string) {
	envPath := filepath.Join(dir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Debug("No .env file loaded, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}
}

// parseEntity validates the --entity flag value.
func parseEntity(value string) (models.EntityType, error) {
	entity := models.EntityType(value)
	if !entity.IsValid() {
		return "", fmt.Errorf("invalid entity %q (valid: %s, %s, %s)",
			value, models.EntityContacts, models.EntityChats, models.EntityAll)
	}
	return entity, nil
}
