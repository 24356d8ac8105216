package breaker

import (
	"errors"
	"time"
)

// Default tuning. MinSample and FailureThresholdPct are engine-wide
// configurable; the cooldown may additionally be overridden per
// operation.
const (
	DefaultMinSample           = 10
	DefaultFailureThresholdPct = 50
	DefaultCooldown            = time.Hour

	// AutoTripReason is the stored reason when the breaker trips from
	// the outcome ratio rather than an administrative call.
	AutoTripReason = "High failure rate detected"
)

// Config tunes the automatic trip behavior.
type Config struct {
	// MinSample is the minimum number of reported outcomes before the
	// failure ratio is evaluated.
	MinSample int

	// FailureThresholdPct is the failure percentage (0-100] at or
	// above which the breaker trips.
	FailureThresholdPct int

	// Cooldown is the quiet period after a trip before the breaker is
	// eligible to auto-reset.
	Cooldown time.Duration
}

// DefaultConfig returns the default breaker tuning.
func DefaultConfig() Config {
	return Config{
		MinSample:           DefaultMinSample,
		FailureThresholdPct: DefaultFailureThresholdPct,
		Cooldown:            DefaultCooldown,
	}
}

// Validate rejects tuning that would disable or corrupt the breaker.
func (c Config) Validate() error {
	if c.MinSample <= 0 {
		return ErrInvalidConfig
	}
	if c.FailureThresholdPct <= 0 || c.FailureThresholdPct > 100 {
		return ErrInvalidConfig
	}
	if c.Cooldown <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Result is the outcome of an admission check.
type Result struct {
	// Allowed indicates whether calls to the operation may proceed.
	Allowed bool

	// Reason is the stored trip reason when denied.
	Reason string

	// RetryAfter is how long until the cooldown elapses. Zero when
	// allowed.
	RetryAfter time.Duration
}

// State is a serializable snapshot of one operation's breaker state.
type State struct {
	Operation string        `json:"operation"`
	Tripped   bool          `json:"tripped"`
	TripTime  time.Time     `json:"trip_time"`
	Cooldown  time.Duration `json:"cooldown"`
	Failures  int           `json:"failures"`
	Successes int           `json:"successes"`
	Reason    string        `json:"reason,omitempty"`
}

// ErrInvalidConfig is returned when breaker tuning is out of range.
var ErrInvalidConfig = errors.New("invalid circuit breaker configuration")
