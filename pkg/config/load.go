package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified
// path. It applies default values, validates the configuration, and
// returns any errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow
// the naming convention BASTION_SECTION_FIELD (e.g.,
// BASTION_SERVER_LISTEN_ADDRESS) and always take precedence over
// file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format
// BASTION_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("BASTION_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("BASTION_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("BASTION_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("BASTION_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	// Guard overrides
	if val := os.Getenv("BASTION_GUARDS_PAUSE_CAP"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Guards.PauseCap = d
		}
	}
	if val := os.Getenv("BASTION_GUARDS_BREAKER_MIN_SAMPLE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Guards.Breaker.MinSample = i
		}
	}
	if val := os.Getenv("BASTION_GUARDS_BREAKER_FAILURE_THRESHOLD_PCT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Guards.Breaker.FailureThresholdPct = i
		}
	}
	if val := os.Getenv("BASTION_GUARDS_BREAKER_COOLDOWN"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Guards.Breaker.Cooldown = d
		}
	}
	if val := os.Getenv("BASTION_GUARDS_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Guards.Watch = b
		}
	}

	// Storage overrides
	if val := os.Getenv("BASTION_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
	if val := os.Getenv("BASTION_STORAGE_PATH"); val != "" {
		cfg.Storage.Path = val
	}
	if val := os.Getenv("BASTION_STORAGE_RETENTION"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Storage.Retention = d
		}
	}
	if val := os.Getenv("BASTION_STORAGE_PRUNE_SCHEDULE"); val != "" {
		cfg.Storage.PruneSchedule = val
	}

	// Events overrides
	if val := os.Getenv("BASTION_EVENTS_QUEUE_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Events.QueueSize = i
		}
	}
	if val := os.Getenv("BASTION_EVENTS_AUDIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Events.Audit.Enabled = b
		}
	}
	if val := os.Getenv("BASTION_EVENTS_AUDIT_PATH"); val != "" {
		cfg.Events.Audit.Path = val
	}

	// Telemetry overrides
	if val := os.Getenv("BASTION_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("BASTION_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("BASTION_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("BASTION_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
	if val := os.Getenv("BASTION_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("BASTION_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := os.Getenv("BASTION_TRACING_SAMPLER"); val != "" {
		cfg.Telemetry.Tracing.Sampler = val
	}
	if val := os.Getenv("BASTION_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}
