package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Enabled turns metric recording on. When false, the collector
	// still serves an (empty) endpoint so scrapers never see errors.
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path the exposition endpoint is mounted at.
	Path string `yaml:"path"`
}

// Collector owns the Prometheus registry for the process and the
// process-level metrics not tied to a single component.
//
// Component metric sets (the guard engine's counters, the event audit
// trail) register themselves on Registry().
type Collector struct {
	config   Config
	registry *prometheus.Registry

	buildInfo *prometheus.GaugeVec
	uptime    prometheus.GaugeFunc
}

// NewCollector creates a collector with its own registry.
func NewCollector(cfg Config) *Collector {
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	start := time.Now()

	c := &Collector{
		config:   cfg,
		registry: registry,

		buildInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bastion_build_info",
				Help: "Build metadata, value is always 1",
			},
			[]string{"version", "commit"},
		),

		uptime: factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "bastion_uptime_seconds",
				Help: "Seconds since the process started",
			},
			func() float64 { return time.Since(start).Seconds() },
		),
	}
	return c
}

// SetBuildInfo records the running build's metadata.
func (c *Collector) SetBuildInfo(version, commit string) {
	c.buildInfo.WithLabelValues(version, commit).Set(1)
}

// Registry returns the underlying registry for component metric sets.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Enabled reports whether metric recording is turned on.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}

// Path returns the configured exposition endpoint path.
func (c *Collector) Path() string {
	return c.config.Path
}
