package config

import (
	"fmt"
	"time"

	redisclient "github.com/vietddude/sifter/internal/infra/redis"
	"github.com/vietddude/sifter/internal/infra/storage/postgres"
)

// Duration accepts "30s"-style values in YAML; a bare integer means seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := unmarshal(&n); err != nil {
		return err
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Scan       ScanConfig         `yaml:"scan"`
	Automation AutomationConfig   `yaml:"automation"`
	Redis      redisclient.Config `yaml:"redis"`
	Logging    LoggingConfig      `yaml:"logging"`
	Database   postgres.Config    `yaml:"database"`
}

// ServerConfig holds the health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"` // 0 disables the server
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ScanConfig holds the knobs of the checkpointed scan loop.
type ScanConfig struct {
	StateDir            string        `yaml:"state_dir"`
	PageFrom            int           `yaml:"page_from"`
	PageTo              int           `yaml:"page_to"`
	PageCheckpointEvery int           `yaml:"page_checkpoint_every"`
	SkipMarker          string        `yaml:"skip_marker"`
	ErrorThreshold      int           `yaml:"error_threshold"`
	RetryCooldown       Duration      `yaml:"retry_cooldown"`
	BatchSize           int           `yaml:"batch_size"`
	MaxGenerations      int           `yaml:"max_generations"` // 0 = unlimited
}

// AutomationConfig holds the upstream browser-automation service settings.
type AutomationConfig struct {
	URL            string   `yaml:"url"`
	Timeout        Duration `yaml:"timeout"`
	GRPCHealthAddr string   `yaml:"grpc_health_addr"` // optional readiness probe
}
