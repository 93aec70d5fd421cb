package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Fetch.CreationWindow != 8 {
		t.Fatalf("creation window = %d, want 8", cfg.Fetch.CreationWindow)
	}
	if cfg.Fetch.OpenTimeoutMs != 30000 {
		t.Fatalf("open timeout = %d, want 30000", cfg.Fetch.OpenTimeoutMs)
	}
	if !cfg.Fetch.ThrowsFetchFailure {
		t.Fatal("fetch failures disabled by default")
	}
	if cfg.Worker.HTTPAddr != ":7337" {
		t.Fatalf("http addr = %q", cfg.Worker.HTTPAddr)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"fetch": {"creationWindow": 16, "throwsFetchFailure": false}, "worker": {"httpAddr": ":9000"}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Fetch.CreationWindow != 16 {
		t.Fatalf("creation window = %d, want 16", cfg.Fetch.CreationWindow)
	}
	if cfg.Fetch.ThrowsFetchFailure {
		t.Fatal("file override ignored")
	}
	// Unset fields keep their defaults.
	if cfg.Fetch.OpenTimeoutMs != 30000 {
		t.Fatalf("open timeout = %d, want default", cfg.Fetch.OpenTimeoutMs)
	}
	if cfg.Worker.HTTPAddr != ":9000" {
		t.Fatalf("http addr = %q", cfg.Worker.HTTPAddr)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"fetch": {"creationWindow": 16}}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	t.Setenv(EnvCreationWindow, "4")
	t.Setenv(EnvThrowsFetchFailure, "false")
	t.Setenv(EnvWorkerDataDir, "/var/blaze")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Fetch.CreationWindow != 4 {
		t.Fatalf("creation window = %d, want env override 4", cfg.Fetch.CreationWindow)
	}
	if cfg.Fetch.ThrowsFetchFailure {
		t.Fatal("env bool override ignored")
	}
	if cfg.Worker.DataDir != "/var/blaze" {
		t.Fatalf("data dir = %q", cfg.Worker.DataDir)
	}
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv(EnvCreationWindow, "not-a-number")
	t.Setenv(EnvPollIntervalMs, "-5")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Fetch.CreationWindow != 8 || cfg.Fetch.PollIntervalMs != 50 {
		t.Fatalf("malformed env applied: %+v", cfg.Fetch)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"fetch": {"creationWindow": -1}}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
