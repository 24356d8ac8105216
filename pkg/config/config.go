package config

import "time"

// Config is the root configuration structure for Bastion.
// It contains all configuration sections for the admin server, guard
// tuning, state storage, event handling, and telemetry.
type Config struct {
	// Server contains HTTP admin server configuration including listen
	// address, timeouts, and header limits.
	Server ServerConfig `yaml:"server"`

	// Guards contains tuning for the five admission guards and the
	// per-operation rule table.
	Guards GuardsConfig `yaml:"guards"`

	// Storage contains configuration for guard state persistence.
	Storage StorageConfig `yaml:"storage"`

	// Events contains configuration for the observability event bus
	// and the audit trail.
	Events EventsConfig `yaml:"events"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP admin server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes
	// of the response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next
	// request when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// GuardsConfig contains tuning for the admission guards.
type GuardsConfig struct {
	// PauseCap is the system-wide limit on a single emergency pause.
	// Activations requesting a longer duration are rejected.
	// Default: 24h
	PauseCap time.Duration `yaml:"pause_cap"`

	// Breaker tunes the circuit breaker's automatic trip behavior.
	Breaker BreakerConfig `yaml:"breaker"`

	// Timelock bounds delayed administrative actions.
	Timelock TimelockConfig `yaml:"timelock"`

	// Anomaly tunes baseline-relative spike detection.
	Anomaly AnomalyConfig `yaml:"anomaly"`

	// Operations maps operation names to their admission rules.
	// Operations absent from this table carry no rate limit.
	Operations map[string]OperationConfig `yaml:"operations"`

	// Watch reloads the operations table when the configuration file
	// changes on disk. Guard tuning outside the table is not hot
	// reloadable.
	// Default: false
	Watch bool `yaml:"watch"`
}

// BreakerConfig contains circuit breaker tuning.
type BreakerConfig struct {
	// MinSample is the minimum number of reported outcomes before the
	// failure ratio is evaluated.
	// Default: 10
	MinSample int `yaml:"min_sample"`

	// FailureThresholdPct is the failure percentage at or above which
	// the breaker trips. Range: 1-100.
	// Default: 50
	FailureThresholdPct int `yaml:"failure_threshold_pct"`

	// Cooldown is the quiet period after a trip before the breaker
	// auto-resets.
	// Default: 1h
	Cooldown time.Duration `yaml:"cooldown"`
}

// TimelockConfig contains timelock governor bounds.
type TimelockConfig struct {
	// MinDelay is the shortest acceptable proposal delay.
	// Default: 1h
	MinDelay time.Duration `yaml:"min_delay"`

	// MaxDelay is the longest acceptable proposal delay.
	// Default: 168h (7 days)
	MaxDelay time.Duration `yaml:"max_delay"`

	// ExecutionWindow is how long a matured proposal stays executable.
	// Default: 24h
	ExecutionWindow time.Duration `yaml:"execution_window"`
}

// AnomalyConfig contains anomaly detector tuning.
type AnomalyConfig struct {
	// Multiplier is the factor over baseline at which a value is
	// flagged. Must be greater than 1.
	// Default: 3.0
	Multiplier float64 `yaml:"multiplier"`

	// RefreshWindow is how long a baseline holds before rolling
	// forward.
	// Default: 168h (7 days)
	RefreshWindow time.Duration `yaml:"refresh_window"`

	// MeasurementWindow is the accumulation period for completion
	// counts.
	// Default: 1h
	MeasurementWindow time.Duration `yaml:"measurement_window"`
}

// OperationConfig contains the admission rule for one operation.
type OperationConfig struct {
	// MaxRequests is the number of admissions allowed per window.
	MaxRequests int `yaml:"max_requests"`

	// Window is the quota window duration.
	Window time.Duration `yaml:"window"`

	// Cooldown overrides the breaker cooldown for this operation.
	// Zero keeps the engine-wide default.
	Cooldown time.Duration `yaml:"cooldown,omitempty"`

	// Metric names the anomaly series fed by completions of this
	// operation. Empty disables anomaly forwarding.
	Metric string `yaml:"metric,omitempty"`
}

// StorageConfig contains configuration for guard state persistence.
type StorageConfig struct {
	// Backend selects the persistence backend: "memory" or "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file path (backend=sqlite).
	// Default: "data/bastion.db"
	Path string `yaml:"path"`

	// Retention is how long stale state records are kept before the
	// pruner removes them. Zero disables pruning.
	// Default: 2160h (90 days)
	Retention time.Duration `yaml:"retention"`

	// PruneSchedule is the cron expression for the pruning job.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`
}

// EventsConfig contains configuration for the event bus and audit
// trail.
type EventsConfig struct {
	// QueueSize is the publish queue depth. Events beyond it are
	// dropped rather than blocking the hot path.
	// Default: 1024
	QueueSize int `yaml:"queue_size"`

	// Audit configures the persistent audit trail.
	Audit AuditConfig `yaml:"audit"`
}

// AuditConfig contains configuration for the SQLite audit trail.
type AuditConfig struct {
	// Enabled turns the audit trail on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the audit database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures OpenTelemetry distributed tracing.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn",
	// "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in logs.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled turns metric recording on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// TracingConfig contains distributed tracing configuration. Spans are
// exported over OTLP gRPC.
type TracingConfig struct {
	// Enabled turns span recording and export on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS on the collector connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Sampler selects the sampling strategy: "always", "never" or
	// "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces sampled under the "ratio"
	// strategy. Range: 0.0-1.0.
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Timeout bounds each span export batch.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
