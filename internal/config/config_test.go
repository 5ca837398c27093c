package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeTempConfig(t, "database_url: postgres://localhost/hive\nsteemd_url: https://api.example.com\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxWorkers != defaultMaxWorkers {
		t.Errorf("MaxWorkers = %d, want %d", cfg.MaxWorkers, defaultMaxWorkers)
	}
	if cfg.MaxBatch != defaultMaxBatch {
		t.Errorf("MaxBatch = %d, want %d", cfg.MaxBatch, defaultMaxBatch)
	}
	if cfg.TrailBlocks != defaultTrailBlocks {
		t.Errorf("TrailBlocks = %d, want %d", cfg.TrailBlocks, defaultTrailBlocks)
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, defaultLogLevel)
	}
}

func TestLoadValidationBounds(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"workers too high", "database_url: x\nsteemd_url: y\nmax_workers: 501\n"},
		{"batch too high", "database_url: x\nsteemd_url: y\nmax_batch: 5001\n"},
		{"trail too high", "database_url: x\nsteemd_url: y\ntrail_blocks: 24\n"},
		{"missing database_url", "steemd_url: y\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempConfig(t, tc.body)
			if _, err := Load(path); err == nil {
				t.Errorf("Load(%s) = nil error, want error", tc.name)
			}
		})
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeTempConfig(t, "database_url: postgres://localhost/hive\nsteemd_url: https://api.example.com\nmax_workers: 4\n")
	t.Setenv("HIVEBRIDGE_MAX_WORKERS", "10")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxWorkers != 10 {
		t.Errorf("MaxWorkers = %d, want 10 (env override)", cfg.MaxWorkers)
	}
}
