package guard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the guard engine.
type Metrics struct {
	// Authorization outcomes
	authorizations *prometheus.CounterVec
	denials        *prometheus.CounterVec

	// Breaker transitions
	breakerTrips  *prometheus.CounterVec
	breakerResets *prometheus.CounterVec

	// Pause state
	pauseActive *prometheus.GaugeVec

	// Anomaly flags
	anomalies *prometheus.CounterVec

	// Check latency
	checkDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance registered on reg. A nil
// registerer falls back to the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		authorizations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bastion_guard_authorizations_total",
				Help: "Total number of authorization checks performed",
			},
			[]string{"operation", "result"},
		),

		denials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bastion_guard_denials_total",
				Help: "Total number of denied authorizations by guard",
			},
			[]string{"operation", "guard"},
		),

		breakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bastion_guard_breaker_trips_total",
				Help: "Total number of circuit breaker trips",
			},
			[]string{"operation"},
		),

		breakerResets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bastion_guard_breaker_resets_total",
				Help: "Total number of circuit breaker resets",
			},
			[]string{"operation"},
		),

		pauseActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bastion_guard_pause_active",
				Help: "Whether an emergency pause is active for the scope (0 or 1)",
			},
			[]string{"scope"},
		),

		anomalies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bastion_guard_anomalies_total",
				Help: "Total number of anomalous observations flagged",
			},
			[]string{"metric"},
		),

		checkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bastion_guard_check_duration_seconds",
				Help:    "Duration of authorization checks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"operation"},
		),
	}
}

// RecordAuthorization records one authorization outcome.
func (m *Metrics) RecordAuthorization(operation string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	m.authorizations.WithLabelValues(operation, result).Inc()
}

// RecordDenial records which guard denied an authorization.
func (m *Metrics) RecordDenial(operation string, guard Name) {
	m.denials.WithLabelValues(operation, string(guard)).Inc()
}

// RecordBreakerTrip records a breaker trip.
func (m *Metrics) RecordBreakerTrip(operation string) {
	m.breakerTrips.WithLabelValues(operation).Inc()
}

// RecordBreakerReset records a breaker reset.
func (m *Metrics) RecordBreakerReset(operation string) {
	m.breakerResets.WithLabelValues(operation).Inc()
}

// SetPauseActive updates the pause gauge for a scope.
func (m *Metrics) SetPauseActive(scope string, active bool) {
	v := 0.0
	if active {
		v = 1.0
	}
	m.pauseActive.WithLabelValues(scope).Set(v)
}

// RecordAnomaly records a flagged observation.
func (m *Metrics) RecordAnomaly(metric string) {
	m.anomalies.WithLabelValues(metric).Inc()
}

// RecordCheckDuration records the duration of one authorization check.
func (m *Metrics) RecordCheckDuration(operation string, seconds float64) {
	m.checkDuration.WithLabelValues(operation).Observe(seconds)
}
