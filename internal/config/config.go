package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// Fetch tunes the client-side fetch pipeline.
	Fetch FetchConfig `json:"fetch"`
	// Worker tunes the storage-worker server.
	Worker WorkerConfig `json:"worker"`
}

// FetchConfig captures fetch pipeline tunables.
type FetchConfig struct {
	// CreationWindow bounds how many partitions' streams may be under
	// concurrent setup ahead of the consumer.
	CreationWindow int `json:"creationWindow"`
	// OpenTimeoutMs is the per-call timeout for a batched open-stream request.
	OpenTimeoutMs int `json:"openTimeoutMs"`
	// PollIntervalMs bounds how long the iterator waits between registry polls.
	PollIntervalMs int `json:"pollIntervalMs"`
	// ThrowsFetchFailure reports all-replicas-exhausted conditions as
	// stage-retryable fetch failures instead of rethrowing the raw cause.
	ThrowsFetchFailure bool `json:"throwsFetchFailure"`
}

// WorkerConfig captures storage-worker server settings.
type WorkerConfig struct {
	HTTPAddr string `json:"httpAddr"`
	DataDir  string `json:"dataDir"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Fetch: FetchConfig{
			CreationWindow:     8,
			OpenTimeoutMs:      30000,
			PollIntervalMs:     50,
			ThrowsFetchFailure: true,
		},
		Worker: WorkerConfig{
			HTTPAddr: ":7337",
		},
	}
}

// Load reads configuration from a JSON file, then applies env overrides.
// An empty path returns defaults (plus env overrides).
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Fetch.CreationWindow < 1 {
		return fmt.Errorf("fetch.creationWindow must be >= 1, got %d", c.Fetch.CreationWindow)
	}
	if c.Fetch.OpenTimeoutMs < 1 {
		return fmt.Errorf("fetch.openTimeoutMs must be >= 1, got %d", c.Fetch.OpenTimeoutMs)
	}
	if c.Fetch.PollIntervalMs < 1 {
		return fmt.Errorf("fetch.pollIntervalMs must be >= 1, got %d", c.Fetch.PollIntervalMs)
	}
	return nil
}
