package anomaly

import (
	"errors"
	"sync"
	"time"

	"bastion-hq/bastion/pkg/clock"
)

// Default tuning.
const (
	DefaultMultiplier        = 3.0
	DefaultRefreshWindow     = 7 * 24 * time.Hour
	DefaultMeasurementWindow = time.Hour
)

// ErrInvalidConfig is returned when detector tuning is out of range.
var ErrInvalidConfig = errors.New("invalid anomaly detector configuration")

// Config tunes spike detection.
type Config struct {
	// Multiplier is the factor over baseline at which a value is
	// flagged. Must be greater than 1.
	Multiplier float64

	// RefreshWindow is how long a baseline holds before rolling
	// forward to the latest current value.
	RefreshWindow time.Duration

	// MeasurementWindow is the accumulation period used by
	// Accumulate: deltas sum into a running total that resets when
	// the window elapses.
	MeasurementWindow time.Duration
}

// DefaultConfig returns the default detector tuning.
func DefaultConfig() Config {
	return Config{
		Multiplier:        DefaultMultiplier,
		RefreshWindow:     DefaultRefreshWindow,
		MeasurementWindow: DefaultMeasurementWindow,
	}
}

// Validate rejects tuning that would make detection meaningless.
func (c Config) Validate() error {
	if c.Multiplier <= 1 {
		return ErrInvalidConfig
	}
	if c.RefreshWindow <= 0 {
		return ErrInvalidConfig
	}
	if c.MeasurementWindow <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Series is a serializable snapshot of one metric's tracking state.
type Series struct {
	Metric       string    `json:"metric"`
	Baseline     float64   `json:"baseline"`
	Current      float64   `json:"current"`
	BaselineAt   time.Time `json:"baseline_at"`
	AnomalyCount int       `json:"anomaly_count"`
	WindowTotal  float64   `json:"window_total"`
	WindowStart  time.Time `json:"window_start"`
}

// Detector tracks baselines keyed by metric name.
type Detector struct {
	clock  clock.Clock
	config Config

	mu     sync.RWMutex
	series map[string]*metricState
}

type metricState struct {
	mu           sync.Mutex
	baseline     float64
	current      float64
	baselineAt   time.Time
	anomalyCount int
	windowTotal  float64
	windowStart  time.Time
}

// NewDetector creates a detector with the given tuning. The config
// must have been validated at setup time.
func NewDetector(clk clock.Clock, cfg Config) *Detector {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Detector{
		clock:  clk,
		config: cfg,
		series: make(map[string]*metricState),
	}
}

// Observe records a measurement and reports whether it is anomalous.
//
// The first observation for a metric seeds the baseline and is never
// anomalous. When the refresh window has elapsed since the baseline
// was last anchored, the baseline rolls forward to the previous
// current value before the new value is applied. A value strictly
// greater than baseline*Multiplier is flagged and counted.
func (d *Detector) Observe(metric string, value float64) bool {
	st := d.getOrCreate(metric)

	st.mu.Lock()
	defer st.mu.Unlock()
	return d.observeLocked(st, value, d.clock.Now())
}

// Accumulate adds delta to the metric's running total for the current
// measurement window and evaluates the total the same way Observe
// evaluates a direct measurement. When the measurement window has
// elapsed the total resets before the delta is applied.
func (d *Detector) Accumulate(metric string, delta float64) bool {
	st := d.getOrCreate(metric)

	st.mu.Lock()
	defer st.mu.Unlock()

	now := d.clock.Now()
	if st.windowStart.IsZero() || !now.Before(st.windowStart.Add(d.config.MeasurementWindow)) {
		st.windowTotal = 0
		st.windowStart = now
	}
	st.windowTotal += delta
	return d.observeLocked(st, st.windowTotal, now)
}

func (d *Detector) observeLocked(st *metricState, value float64, now time.Time) bool {
	if st.baselineAt.IsZero() {
		st.baseline = value
		st.current = value
		st.baselineAt = now
		return false
	}

	if !now.Before(st.baselineAt.Add(d.config.RefreshWindow)) {
		st.baseline = st.current
		st.baselineAt = now
	}

	st.current = value

	if value > st.baseline*d.config.Multiplier {
		st.anomalyCount++
		return true
	}
	return false
}

// Snapshot returns a serializable copy of one metric's state, or nil
// if the metric has never been observed.
func (d *Detector) Snapshot(metric string) *Series {
	d.mu.RLock()
	st, ok := d.series[metric]
	d.mu.RUnlock()
	if !ok {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return &Series{
		Metric:       metric,
		Baseline:     st.baseline,
		Current:      st.current,
		BaselineAt:   st.baselineAt,
		AnomalyCount: st.anomalyCount,
		WindowTotal:  st.windowTotal,
		WindowStart:  st.windowStart,
	}
}

// Restore installs a previously snapshotted series, replacing any
// existing state for the metric.
func (d *Detector) Restore(s *Series) {
	if s == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.series[s.Metric] = &metricState{
		baseline:     s.Baseline,
		current:      s.Current,
		baselineAt:   s.BaselineAt,
		anomalyCount: s.AnomalyCount,
		windowTotal:  s.WindowTotal,
		windowStart:  s.WindowStart,
	}
}

// Metrics lists all tracked metric names.
func (d *Detector) Metrics() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.series))
	for m := range d.series {
		names = append(names, m)
	}
	return names
}

func (d *Detector) getOrCreate(metric string) *metricState {
	d.mu.RLock()
	st, ok := d.series[metric]
	d.mu.RUnlock()
	if ok {
		return st
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok = d.series[metric]; ok {
		return st
	}
	st = &metricState{}
	d.series[metric] = st
	return st
}
