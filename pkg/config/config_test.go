package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWorkerMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadWorker(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.JobConcurrency != 5 {
		t.Errorf("Expected 5, got %d", cfg.JobConcurrency)
	}
	if cfg.FanoutConcurrency != 64 {
		t.Errorf("Expected 64, got %d", cfg.FanoutConcurrency)
	}
}

func TestLoadWorkerOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte("worker:\n  job_concurrency: 10\n  scheduler_interval: 250ms\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWorker(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.JobConcurrency != 10 {
		t.Errorf("Expected 10, got %d", cfg.JobConcurrency)
	}
	if cfg.SchedulerInterval != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %s", cfg.SchedulerInterval)
	}
	if cfg.FanoutConcurrency != 64 {
		t.Errorf("Expected default 64, got %d", cfg.FanoutConcurrency)
	}
}

func TestLoadWorkerMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("worker: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadWorker(path); err == nil {
		t.Error("Expected error for malformed yaml")
	}
}
