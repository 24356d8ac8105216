package guard

import (
	"errors"
	"fmt"
	"time"

	"bastion-hq/bastion/pkg/guard/ratelimit"
)

// Name identifies which guard produced a decision.
type Name string

const (
	// NameEmergencyPause is the scope-level kill switch.
	NameEmergencyPause Name = "emergency_pause"

	// NameCircuitBreaker is the per-operation failure-rate breaker.
	NameCircuitBreaker Name = "circuit_breaker"

	// NameRateLimiter is the per-subject-and-operation quota limiter.
	NameRateLimiter Name = "rate_limiter"
)

// Base denial kinds. Callers match these with errors.Is against the
// error produced by Decision.Err.
var (
	// ErrRateLimitExceeded is returned when the quota window is
	// exhausted for a subject and operation.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrCircuitBreakerTripped is returned while an operation's
	// breaker is open.
	ErrCircuitBreakerTripped = errors.New("circuit breaker tripped")

	// ErrEmergencyPauseActive is returned while the scope is paused.
	ErrEmergencyPauseActive = errors.New("emergency pause active")

	// ErrInvalidConfiguration is returned when administrative tuning
	// is rejected at the boundary.
	ErrInvalidConfiguration = errors.New("invalid guard configuration")

	// ErrUnknownOperation is returned when completing or tuning an
	// operation that has no configured rule.
	ErrUnknownOperation = errors.New("unknown operation")
)

// DenialError carries the context of a denied authorization.
// It wraps one of the base denial kinds for errors.Is matching.
type DenialError struct {
	// Guard is the guard that denied the call.
	Guard Name

	// Scope, Subject and Operation locate the denied call.
	Scope     string
	Subject   string
	Operation string

	// Reason is the human-readable cause.
	Reason string

	// RetryAfter is how long the caller should wait, when the denial
	// is temporal. Zero otherwise.
	RetryAfter time.Duration

	// Err is the base denial kind.
	Err error
}

// Error implements the error interface.
func (e *DenialError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s denied %s: %s (retry after %s)",
			e.Guard, e.Operation, e.Reason, e.RetryAfter)
	}
	return fmt.Sprintf("%s denied %s: %s", e.Guard, e.Operation, e.Reason)
}

// Unwrap returns the base denial kind for error wrapping.
func (e *DenialError) Unwrap() error {
	return e.Err
}

// Decision is the outcome of an authorization check.
type Decision struct {
	// Allowed indicates whether the call may proceed.
	Allowed bool

	// Guard names the guard that denied the call. Empty when allowed.
	Guard Name

	// Reason is the specific denial cause. Empty when allowed.
	Reason string

	// RetryAfter is the wait hint for temporal denials.
	RetryAfter time.Duration

	// RateLimit carries quota status when the rate limiter ran,
	// allowed or not. Nil when an earlier guard short-circuited or
	// the operation has no rule.
	RateLimit *ratelimit.Result
}

// Err converts a denial into a typed error, or nil when allowed.
func (d Decision) Err(scope, subject, operation string) error {
	if d.Allowed {
		return nil
	}
	base := error(nil)
	switch d.Guard {
	case NameEmergencyPause:
		base = ErrEmergencyPauseActive
	case NameCircuitBreaker:
		base = ErrCircuitBreakerTripped
	case NameRateLimiter:
		base = ErrRateLimitExceeded
	}
	return &DenialError{
		Guard:      d.Guard,
		Scope:      scope,
		Subject:    subject,
		Operation:  operation,
		Reason:     d.Reason,
		RetryAfter: d.RetryAfter,
		Err:        base,
	}
}

// OperationRule is the per-operation tuning installed through
// Configure: the admission quota, an optional breaker cooldown
// override, and an optional anomaly metric fed on completion.
type OperationRule struct {
	// MaxRequests and Window form the rate limit quota.
	MaxRequests int           `yaml:"max_requests" json:"max_requests"`
	Window      time.Duration `yaml:"window" json:"window"`

	// Cooldown overrides the breaker cooldown for this operation.
	// Zero keeps the engine-wide default.
	Cooldown time.Duration `yaml:"cooldown,omitempty" json:"cooldown,omitempty"`

	// Metric names the anomaly series that accumulates completions
	// of this operation. Empty disables anomaly forwarding.
	Metric string `yaml:"metric,omitempty" json:"metric,omitempty"`
}

// quota converts the rule into a limiter rule.
func (r OperationRule) quota() ratelimit.Rule {
	return ratelimit.Rule{MaxRequests: r.MaxRequests, Window: r.Window}
}

// Validate rejects rules that any guard would refuse.
func (r OperationRule) Validate() error {
	if err := r.quota().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	if r.Cooldown < 0 {
		return fmt.Errorf("%w: negative cooldown", ErrInvalidConfiguration)
	}
	return nil
}
