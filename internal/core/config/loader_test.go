package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
automation:
  url: http://localhost:9222
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Scan.StateDir != "state" {
		t.Errorf("expected default state dir, got %q", cfg.Scan.StateDir)
	}
	if cfg.Scan.PageFrom != 1 || cfg.Scan.PageTo != 10 {
		t.Errorf("unexpected page range defaults: %d-%d", cfg.Scan.PageFrom, cfg.Scan.PageTo)
	}
	if cfg.Scan.SkipMarker != "#" {
		t.Errorf("expected default skip marker, got %q", cfg.Scan.SkipMarker)
	}
	if cfg.Scan.ErrorThreshold != 3 {
		t.Errorf("expected default error threshold 3, got %d", cfg.Scan.ErrorThreshold)
	}
	if cfg.Scan.RetryCooldown.Std() != 30*time.Second {
		t.Errorf("expected default cooldown 30s, got %v", cfg.Scan.RetryCooldown.Std())
	}
	// Batch size follows the error threshold unless set.
	if cfg.Scan.BatchSize != cfg.Scan.ErrorThreshold {
		t.Errorf("expected batch size %d, got %d", cfg.Scan.ErrorThreshold, cfg.Scan.BatchSize)
	}
	if cfg.Automation.Timeout.Std() != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", cfg.Automation.Timeout.Std())
	}
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
scan:
  state_dir: /var/lib/sift
  page_from: 5
  page_to: 50
  skip_marker: "SKIP"
  error_threshold: 5
  retry_cooldown: 2m
  batch_size: 10
  max_generations: 4
automation:
  url: http://automation:9222
  timeout: 90s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Scan.RetryCooldown.Std() != 2*time.Minute {
		t.Errorf("expected cooldown 2m, got %v", cfg.Scan.RetryCooldown.Std())
	}
	if cfg.Automation.Timeout.Std() != 90*time.Second {
		t.Errorf("expected timeout 90s, got %v", cfg.Automation.Timeout.Std())
	}
	if cfg.Scan.BatchSize != 10 || cfg.Scan.MaxGenerations != 4 {
		t.Errorf("unexpected scan values: %+v", cfg.Scan)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_REDIS_URL", "redis://localhost:6379/1")
	path := writeConfig(t, `
automation:
  url: http://localhost:9222
redis:
  url: ${TEST_REDIS_URL}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Redis.URL != "redis://localhost:6379/1" {
		t.Errorf("env var not expanded, got %q", cfg.Redis.URL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing config file")
	}
}

func TestDurationAcceptsBareSeconds(t *testing.T) {
	path := writeConfig(t, `
scan:
  retry_cooldown: 45
automation:
  url: http://localhost:9222
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scan.RetryCooldown.Std() != 45*time.Second {
		t.Errorf("expected 45s, got %v", cfg.Scan.RetryCooldown.Std())
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	path := writeConfig(t, `
scan:
  retry_cooldown: soon
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for an unparseable duration")
	}
}
