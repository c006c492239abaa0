package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Scan.StateDir == "" {
		cfg.Scan.StateDir = "state"
	}
	if cfg.Scan.PageFrom == 0 {
		cfg.Scan.PageFrom = 1
	}
	if cfg.Scan.PageTo == 0 {
		cfg.Scan.PageTo = 10
	}
	if cfg.Scan.PageCheckpointEvery == 0 {
		cfg.Scan.PageCheckpointEvery = 5
	}
	if cfg.Scan.SkipMarker == "" {
		cfg.Scan.SkipMarker = "#"
	}
	if cfg.Scan.ErrorThreshold == 0 {
		cfg.Scan.ErrorThreshold = 3
	}
	if cfg.Scan.RetryCooldown == 0 {
		cfg.Scan.RetryCooldown = Duration(30 * time.Second)
	}
	if cfg.Scan.BatchSize == 0 {
		cfg.Scan.BatchSize = cfg.Scan.ErrorThreshold
	}
	if cfg.Automation.Timeout == 0 {
		cfg.Automation.Timeout = Duration(30 * time.Second)
	}

	return &cfg, nil
}
