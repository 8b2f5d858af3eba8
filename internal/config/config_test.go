package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("driver = %q", cfg.Database.Driver)
	}
	if cfg.Scoring.RecomputeConcurrency != 8 {
		t.Fatalf("concurrency = %d", cfg.Scoring.RecomputeConcurrency)
	}
	if cfg.IsProduction() {
		t.Fatal("default environment must not be production")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	env := "CHURNGUARD_ADDR=:9999\nCHURNGUARD_HISTORY_RETENTION=7\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)
	t.Cleanup(func() {
		os.Unsetenv("CHURNGUARD_ADDR")
		os.Unsetenv("CHURNGUARD_HISTORY_RETENTION")
	})

	cfg := Load()
	if cfg.Addr != ":9999" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.Scoring.HistoryRetention != 7 {
		t.Fatalf("retention = %d", cfg.Scoring.HistoryRetention)
	}
}

func TestLoadEnvOverridesDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CHURNGUARD_ENV=development\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)
	t.Setenv("CHURNGUARD_ENV", "production")

	cfg := Load()
	if !cfg.IsProduction() {
		t.Fatalf("expected the real environment to win, got %q", cfg.Environment)
	}
}
