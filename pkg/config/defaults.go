package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Guard defaults
	DefaultPauseCap                = 24 * time.Hour
	DefaultBreakerMinSample        = 10
	DefaultBreakerFailurePct       = 50
	DefaultBreakerCooldown         = time.Hour
	DefaultTimelockMinDelay        = time.Hour
	DefaultTimelockMaxDelay        = 7 * 24 * time.Hour
	DefaultTimelockExecutionWindow = 24 * time.Hour
	DefaultAnomalyMultiplier       = 3.0
	DefaultAnomalyRefreshWindow    = 7 * 24 * time.Hour
	DefaultAnomalyMeasurementWin   = time.Hour

	// Storage defaults
	DefaultStorageBackend       = "sqlite"
	DefaultStoragePath          = "data/bastion.db"
	DefaultStorageRetention     = 90 * 24 * time.Hour
	DefaultStoragePruneSchedule = "0 3 * * *"

	// Events defaults
	DefaultEventsQueueSize = 1024
	DefaultAuditEnabled    = true
	DefaultAuditPath       = "data/audit.db"

	// Telemetry defaults
	DefaultLoggingLevel    = "info"
	DefaultLoggingFormat   = "json"
	DefaultMetricsEnabled  = true
	DefaultMetricsPath     = "/metrics"
	DefaultTracingEndpoint = "localhost:4317"
	DefaultTracingInsecure = true
	DefaultTracingSampler  = "ratio"
	DefaultTracingRatio    = 0.1
	DefaultTracingTimeout  = 10 * time.Second
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Guard defaults
	if cfg.Guards.PauseCap == 0 {
		cfg.Guards.PauseCap = DefaultPauseCap
	}
	if cfg.Guards.Breaker.MinSample == 0 {
		cfg.Guards.Breaker.MinSample = DefaultBreakerMinSample
	}
	if cfg.Guards.Breaker.FailureThresholdPct == 0 {
		cfg.Guards.Breaker.FailureThresholdPct = DefaultBreakerFailurePct
	}
	if cfg.Guards.Breaker.Cooldown == 0 {
		cfg.Guards.Breaker.Cooldown = DefaultBreakerCooldown
	}
	if cfg.Guards.Timelock.MinDelay == 0 {
		cfg.Guards.Timelock.MinDelay = DefaultTimelockMinDelay
	}
	if cfg.Guards.Timelock.MaxDelay == 0 {
		cfg.Guards.Timelock.MaxDelay = DefaultTimelockMaxDelay
	}
	if cfg.Guards.Timelock.ExecutionWindow == 0 {
		cfg.Guards.Timelock.ExecutionWindow = DefaultTimelockExecutionWindow
	}
	if cfg.Guards.Anomaly.Multiplier == 0 {
		cfg.Guards.Anomaly.Multiplier = DefaultAnomalyMultiplier
	}
	if cfg.Guards.Anomaly.RefreshWindow == 0 {
		cfg.Guards.Anomaly.RefreshWindow = DefaultAnomalyRefreshWindow
	}
	if cfg.Guards.Anomaly.MeasurementWindow == 0 {
		cfg.Guards.Anomaly.MeasurementWindow = DefaultAnomalyMeasurementWin
	}

	// Storage defaults
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Storage.Retention == 0 {
		cfg.Storage.Retention = DefaultStorageRetention
	}
	if cfg.Storage.PruneSchedule == "" {
		cfg.Storage.PruneSchedule = DefaultStoragePruneSchedule
	}

	// Events defaults
	if cfg.Events.QueueSize == 0 {
		cfg.Events.QueueSize = DefaultEventsQueueSize
	}
	if !cfg.Events.Audit.Enabled {
		cfg.Events.Audit.Enabled = DefaultAuditEnabled
	}
	if cfg.Events.Audit.Path == "" {
		cfg.Events.Audit.Path = DefaultAuditPath
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if !cfg.Telemetry.Metrics.Enabled {
		cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if !cfg.Telemetry.Tracing.Insecure {
		cfg.Telemetry.Tracing.Insecure = DefaultTracingInsecure
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingRatio
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
}
