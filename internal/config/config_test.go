package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DB_DRIVER", "DATABASE_DSN", "POSTGRES_HOST", "RECONCILE_CONCURRENCY", "LEGACY_PREFIX"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.DBDriver != "memory" {
		t.Fatalf("expected memory driver, got %q", cfg.DBDriver)
	}
	if cfg.ReconcileConcurrency != 2 {
		t.Fatalf("expected default concurrency 2, got %d", cfg.ReconcileConcurrency)
	}
	if cfg.Storage.Prefix != "evaluations/" {
		t.Fatalf("unexpected prefix %q", cfg.Storage.Prefix)
	}
}

func TestLoadBuildsPostgresDSN(t *testing.T) {
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_USER", "tenf")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "tenf")
	t.Setenv("POSTGRES_PORT", "")
	cfg := Load()
	if cfg.DBDriver != "postgres" {
		t.Fatalf("expected postgres driver, got %q", cfg.DBDriver)
	}
	want := "postgres://tenf:secret@db:5432/tenf?sslmode=disable"
	if cfg.DatabaseDSN != want {
		t.Fatalf("dsn = %q, want %q", cfg.DatabaseDSN, want)
	}
}

func TestLoadScoring(t *testing.T) {
	cfg, err := LoadScoring("")
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if cfg.Text.Floor != 10 || cfg.Voice.Thresholds[4] != 1200 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}

	path := filepath.Join(t.TempDir(), "scoring.yaml")
	body := "text:\n  floor: 5\n  thresholds: [5, 20, 60, 120, 240]\nweights:\n  spotlightPoints: 2\n  eventPoints: 1\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = LoadScoring(path)
	if err != nil {
		t.Fatalf("LoadScoring error: %v", err)
	}
	if cfg.Text.Floor != 5 || cfg.Text.Thresholds[2] != 60 {
		t.Fatalf("text tiers not loaded: %+v", cfg.Text)
	}
	if cfg.Voice.Floor != 30 {
		t.Fatalf("voice tiers should keep defaults, got %+v", cfg.Voice)
	}
	if cfg.Weights.SpotlightPoints != 2 {
		t.Fatalf("weights not loaded: %+v", cfg.Weights)
	}
	if got := cfg.Calculator().Rate(60, 0).TextScore; got != 3 {
		t.Fatalf("calculator should use loaded tiers, got %d", got)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(bad, []byte("text:\n  floor: 1\n  thresholds: [50, 10, 60, 70, 80]\n"), 0o644)
	if _, err := LoadScoring(bad); err == nil {
		t.Fatalf("expected descending thresholds to be rejected")
	}
}
