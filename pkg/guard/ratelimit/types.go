package ratelimit

import (
	"errors"
	"time"
)

// Rule configures the admission quota for one operation.
type Rule struct {
	// MaxRequests is the number of admissions allowed per window.
	// Must be greater than zero.
	MaxRequests int

	// Window is the quota window duration. Must be greater than zero.
	Window time.Duration
}

// Validate rejects rules that would make the limiter misbehave.
// Invalid rules are refused at configuration time, never at admission
// time.
func (r Rule) Validate() error {
	if r.MaxRequests <= 0 {
		return ErrInvalidRule
	}
	if r.Window <= 0 {
		return ErrInvalidRule
	}
	return nil
}

// Result is the outcome of an admission check.
type Result struct {
	// Allowed indicates whether the request may proceed.
	Allowed bool

	// Count is the number of admissions consumed in the current
	// window, including this one when allowed.
	Count int

	// Limit is the configured maximum for the window.
	Limit int

	// Remaining is the number of admissions left in the window.
	Remaining int

	// Reset is when the current window expires.
	Reset time.Time

	// RetryAfter is how long a denied caller should wait before the
	// window opens again. Zero when allowed.
	RetryAfter time.Duration
}

// ErrInvalidRule is returned when a rate limit rule has a
// non-positive quota or window.
var ErrInvalidRule = errors.New("invalid rate limit rule")
