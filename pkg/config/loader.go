package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// configFileName is the file the loader reads when no explicit path is given.
const configFileName = "b2sync.yaml"

// yamlConfig represents the complete b2sync.yaml file structure. Every
// section is optional; missing sections fall back to built-in defaults.
type yamlConfig struct {
	B2Chat      *B2ChatConfig      `yaml:"b2chat"`
	RateLimit   *RateLimitConfig   `yaml:"rate_limit"`
	Queue       *QueueConfig       `yaml:"queue"`
	Sync        *SyncConfig        `yaml:"sync"`
	SLA         *SLAConfig         `yaml:"sla"`
	OfficeHours *OfficeHoursConfig `yaml:"office_hours"`
	Retention   *RetentionConfig   `yaml:"retention"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Read the YAML file (an explicit path is required to exist; the
//     default ./b2sync.yaml may be absent, leaving built-in defaults)
//  2. Expand environment variables
//  3. Merge user-provided sections over built-in defaults
//  4. Validate all configuration
//  5. Return Config ready for use
func Initialize(ctx context.Context, configPath string) (*Config, error) {
	log := slog.With("config_path", configPath)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized successfully",
		"base_url", cfg.B2Chat.BaseURL,
		"workers", cfg.Queue.WorkerCount,
		"batch_size", cfg.Sync.BatchSize,
		"timezone", cfg.OfficeHours.Timezone)

	return cfg, nil
}

// load is the internal loader (not exported)
func load(_ context.Context, configPath string) (*Config, error) {
	// An explicit path must exist; the default location is optional so the
	// tool runs on environment variables alone.
	required := configPath != ""
	if configPath == "" {
		configPath = configFileName
	}

	raw, err := readYAML(configPath, required)
	if err != nil {
		return nil, NewLoadError(filepath.Base(configPath), err)
	}

	cfg := &Config{
		configDir:   filepath.Dir(configPath),
		B2Chat:      DefaultB2ChatConfig(),
		RateLimit:   DefaultRateLimitConfig(),
		Queue:       DefaultQueueConfig(),
		Sync:        DefaultSyncConfig(),
		SLA:         DefaultSLAConfig(),
		OfficeHours: DefaultOfficeHoursConfig(),
		Retention:   DefaultRetentionConfig(),
	}
	if raw == nil {
		return cfg, nil
	}

	// Merge user-provided sections into defaults (non-zero values override)
	if err := mergeSection(cfg.B2Chat, raw.B2Chat); err != nil {
		return nil, fmt.Errorf("failed to merge b2chat config: %w", err)
	}
	if err := mergeSection(cfg.RateLimit, raw.RateLimit); err != nil {
		return nil, fmt.Errorf("failed to merge rate_limit config: %w", err)
	}
	if err := mergeSection(cfg.Queue, raw.Queue); err != nil {
		return nil, fmt.Errorf("failed to merge queue config: %w", err)
	}
	if err := mergeSection(cfg.Sync, raw.Sync); err != nil {
		return nil, fmt.Errorf("failed to merge sync config: %w", err)
	}
	if err := mergeSection(cfg.SLA, raw.SLA); err != nil {
		return nil, fmt.Errorf("failed to merge sla config: %w", err)
	}
	if err := mergeSection(cfg.OfficeHours, raw.OfficeHours); err != nil {
		return nil, fmt.Errorf("failed to merge office_hours config: %w", err)
	}
	if err := mergeSection(cfg.Retention, raw.Retention); err != nil {
		return nil, fmt.Errorf("failed to merge retention config: %w", err)
	}

	return cfg, nil
}

// mergeSection merges a user-provided section into the defaults; nil means
// the section was absent from the file.
func mergeSection[T any](dst, src *T) error {
	if src == nil {
		return nil
	}
	return mergo.Merge(dst, src, mergo.WithOverride)
}

func readYAML(path string, required bool) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if required {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			slog.Info("No configuration file found, using built-in defaults", "path", path)
			return nil, nil
		}
		return nil, err
	}

	// Expand environment variables using {{.VAR}} template syntax
	data = ExpandEnv(data)

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &raw, nil
}

// validate performs comprehensive validation on loaded configuration
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}
