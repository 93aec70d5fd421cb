package config

import (
	"os"
	"strconv"
)

// Environment overrides. Each takes precedence over file values when set.
const (
	EnvCreationWindow     = "BLAZE_FETCH_WINDOW"
	EnvOpenTimeoutMs      = "BLAZE_FETCH_OPEN_TIMEOUT_MS"
	EnvPollIntervalMs     = "BLAZE_FETCH_POLL_MS"
	EnvThrowsFetchFailure = "BLAZE_FETCH_THROWS_FETCH_FAILURE"
	EnvWorkerHTTPAddr     = "BLAZE_WORKER_HTTP"
	EnvWorkerDataDir      = "BLAZE_WORKER_DATA_DIR"
)

func applyEnv(cfg *Config) {
	if n, ok := envInt(EnvCreationWindow); ok {
		cfg.Fetch.CreationWindow = n
	}
	if n, ok := envInt(EnvOpenTimeoutMs); ok {
		cfg.Fetch.OpenTimeoutMs = n
	}
	if n, ok := envInt(EnvPollIntervalMs); ok {
		cfg.Fetch.PollIntervalMs = n
	}
	if v := os.Getenv(EnvThrowsFetchFailure); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Fetch.ThrowsFetchFailure = b
		}
	}
	if v := os.Getenv(EnvWorkerHTTPAddr); v != "" {
		cfg.Worker.HTTPAddr = v
	}
	if v := os.Getenv(EnvWorkerDataDir); v != "" {
		cfg.Worker.DataDir = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
