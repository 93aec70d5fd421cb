// Package config loads blaze configuration from a JSON file with BLAZE_*
// environment overrides. Defaults are safe for local development.
package config
