// Package config loads the service's YAML configuration file, applying
// environment variable overrides the same way the teacher's
// internal/config package does.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the options listed in spec.md §6.
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	SteemdURL   string `yaml:"steemd_url"`
	MaxWorkers  int    `yaml:"max_workers"`
	MaxBatch    int    `yaml:"max_batch"`
	TrailBlocks int    `yaml:"trail_blocks"`
	Port        int    `yaml:"port"`
	LogLevel    string `yaml:"log_level"`

	// CheckpointDir is the directory scanned for <block_num>.json.lst
	// replay files during initial sync.
	CheckpointDir string `yaml:"checkpoint_dir"`

	// ServiceName identifies this ingester for checkpoint/error bookkeeping.
	ServiceName string `yaml:"service_name"`
}

const (
	defaultMaxWorkers  = 1
	defaultMaxBatch    = 100
	defaultTrailBlocks = 2
	defaultPort        = 8080
	defaultLogLevel    = "INFO"
	defaultServiceName = "hivebridge"

	maxMaxWorkers  = 500
	maxMaxBatch    = 5000
	maxTrailBlocks = 24
)

// Load reads the YAML file at path, applies defaults, then applies any
// matching HIVEBRIDGE_* environment variable overrides, and validates
// bounds.
func Load(path string) (*Config, error) {
	cfg := &Config{
		MaxWorkers:    defaultMaxWorkers,
		MaxBatch:      defaultMaxBatch,
		TrailBlocks:   defaultTrailBlocks,
		Port:          defaultPort,
		LogLevel:      defaultLogLevel,
		ServiceName:   defaultServiceName,
		CheckpointDir: "checkpoints",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HIVEBRIDGE_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("HIVEBRIDGE_STEEMD_URL"); v != "" {
		cfg.SteemdURL = v
	}
	if v := os.Getenv("HIVEBRIDGE_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxWorkers = n
		}
	}
	if v := os.Getenv("HIVEBRIDGE_MAX_BATCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxBatch = n
		}
	}
	if v := os.Getenv("HIVEBRIDGE_TRAIL_BLOCKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TrailBlocks = n
		}
	}
	if v := os.Getenv("HIVEBRIDGE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("HIVEBRIDGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: database_url is required")
	}
	if c.SteemdURL == "" {
		return fmt.Errorf("config: steemd_url is required")
	}
	if c.MaxWorkers < 1 || c.MaxWorkers > maxMaxWorkers {
		return fmt.Errorf("config: max_workers must be in [1,%d], got %d", maxMaxWorkers, c.MaxWorkers)
	}
	if c.MaxBatch < 1 || c.MaxBatch > maxMaxBatch {
		return fmt.Errorf("config: max_batch must be in [1,%d], got %d", maxMaxBatch, c.MaxBatch)
	}
	if c.TrailBlocks < 0 || c.TrailBlocks >= maxTrailBlocks {
		return fmt.Errorf("config: trail_blocks must be in [0,%d), got %d", maxTrailBlocks, c.TrailBlocks)
	}
	return nil
}
