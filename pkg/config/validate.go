package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific
// configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g., "guards.breaker.min_sample").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface and provides
// access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the
	// configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a
// ValidationError if any validation rules fail. All errors are
// collected and returned together; nothing is clamped.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateGuards(&cfg.Guards)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateEvents(&cfg.Events)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// validateServer validates admin server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if !strings.Contains(cfg.ListenAddress, ":") {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: must be host:port", cfg.ListenAddress),
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "must not be negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "must not be negative",
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "must not be negative",
		})
	}
	return errs
}

// validateGuards validates guard tuning and the rule table.
func validateGuards(cfg *GuardsConfig) []FieldError {
	var errs []FieldError

	if cfg.PauseCap <= 0 {
		errs = append(errs, FieldError{
			Field:   "guards.pause_cap",
			Message: "must be positive",
		})
	}

	if cfg.Breaker.MinSample <= 0 {
		errs = append(errs, FieldError{
			Field:   "guards.breaker.min_sample",
			Message: "must be positive",
		})
	}
	if cfg.Breaker.FailureThresholdPct <= 0 || cfg.Breaker.FailureThresholdPct > 100 {
		errs = append(errs, FieldError{
			Field:   "guards.breaker.failure_threshold_pct",
			Message: "must be in range 1-100",
		})
	}
	if cfg.Breaker.Cooldown <= 0 {
		errs = append(errs, FieldError{
			Field:   "guards.breaker.cooldown",
			Message: "must be positive",
		})
	}

	if cfg.Timelock.MinDelay <= 0 {
		errs = append(errs, FieldError{
			Field:   "guards.timelock.min_delay",
			Message: "must be positive",
		})
	}
	if cfg.Timelock.MaxDelay < cfg.Timelock.MinDelay {
		errs = append(errs, FieldError{
			Field:   "guards.timelock.max_delay",
			Message: "must be at least min_delay",
		})
	}
	if cfg.Timelock.ExecutionWindow <= 0 {
		errs = append(errs, FieldError{
			Field:   "guards.timelock.execution_window",
			Message: "must be positive",
		})
	}

	if cfg.Anomaly.Multiplier <= 1 {
		errs = append(errs, FieldError{
			Field:   "guards.anomaly.multiplier",
			Message: "must be greater than 1",
		})
	}
	if cfg.Anomaly.RefreshWindow <= 0 {
		errs = append(errs, FieldError{
			Field:   "guards.anomaly.refresh_window",
			Message: "must be positive",
		})
	}
	if cfg.Anomaly.MeasurementWindow <= 0 {
		errs = append(errs, FieldError{
			Field:   "guards.anomaly.measurement_window",
			Message: "must be positive",
		})
	}

	for name, op := range cfg.Operations {
		if name == "" {
			errs = append(errs, FieldError{
				Field:   "guards.operations",
				Message: "operation name must not be empty",
			})
			continue
		}
		if op.MaxRequests <= 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("guards.operations.%s.max_requests", name),
				Message: "must be positive",
			})
		}
		if op.Window <= 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("guards.operations.%s.window", name),
				Message: "must be positive",
			})
		}
		if op.Cooldown < 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("guards.operations.%s.cooldown", name),
				Message: "must not be negative",
			})
		}
	}
	return errs
}

// validateStorage validates persistence configuration.
func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("unknown backend %q: must be memory or sqlite", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "storage.path",
			Message: "path is required for the sqlite backend",
		})
	}
	if cfg.Retention < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.retention",
			Message: "must not be negative",
		})
	}
	if cfg.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "storage.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}
	return errs
}

// validateEvents validates event bus and audit configuration.
func validateEvents(cfg *EventsConfig) []FieldError {
	var errs []FieldError

	if cfg.QueueSize < 0 {
		errs = append(errs, FieldError{
			Field:   "events.queue_size",
			Message: "must not be negative",
		})
	}
	if cfg.Audit.Enabled && cfg.Audit.Path == "" {
		errs = append(errs, FieldError{
			Field:   "events.audit.path",
			Message: "path is required when the audit trail is enabled",
		})
	}
	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q", cfg.Logging.Format),
		})
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "must start with /",
		})
	}

	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("unknown sampler %q: must be always, never or ratio", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "must be in range 0.0-1.0",
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}
	return errs
}
