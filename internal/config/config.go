// Package config loads cmd/barrelctl's optional configuration file,
// tolerating JSON-with-comments the way a human-edited config usually
// accumulates them.
//
// Grounded on _examples/calvinalkan-agent-task/config.go's use of
// github.com/tailscale/hujson to standardize JSONC before decoding with
// encoding/json.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Config is barrelctl's configuration file shape. Every field is
// optional; zero values fall back to the values from Default.
type Config struct {
	DataDir                  string `json:"data_dir,omitempty"`
	CompactionThresholdBytes int64  `json:"compaction_threshold_bytes,omitempty"`
	LogLevel                 string `json:"log_level,omitempty"`
}

// Default returns barrelctl's built-in defaults, used when no config
// file is present.
func Default() Config {
	return Config{
		DataDir:                  "./barrel-data",
		CompactionThresholdBytes: 1 << 20,
		LogLevel:                 "info",
	}
}

// Load reads and parses the JSONC config file at path, merging it over
// Default(). A missing file is not an error: Load returns the defaults
// unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s is not valid JSONC: %w", path, err)
	}

	var fromFile Config
	if err := json.Unmarshal(standardized, &fromFile); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}

	if fromFile.DataDir != "" {
		cfg.DataDir = fromFile.DataDir
	}
	if fromFile.CompactionThresholdBytes != 0 {
		cfg.CompactionThresholdBytes = fromFile.CompactionThresholdBytes
	}
	if fromFile.LogLevel != "" {
		cfg.LogLevel = fromFile.LogLevel
	}
	return cfg, nil
}
