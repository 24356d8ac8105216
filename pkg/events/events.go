package events

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies an event kind.
type Type string

const (
	// TypeRateLimitExceeded is emitted when an admission is denied by
	// the rate limiter.
	TypeRateLimitExceeded Type = "rate_limit_exceeded"

	// TypeCircuitBreakerTripped is emitted when a breaker trips,
	// automatically or administratively.
	TypeCircuitBreakerTripped Type = "circuit_breaker_tripped"

	// TypeCircuitBreakerReset is emitted when a breaker resets,
	// by cooldown expiry or administratively.
	TypeCircuitBreakerReset Type = "circuit_breaker_reset"

	// TypeEmergencyPauseActivated is emitted when a scope is paused.
	TypeEmergencyPauseActivated Type = "emergency_pause_activated"

	// TypeEmergencyPauseDeactivated is emitted when a pause is lifted.
	TypeEmergencyPauseDeactivated Type = "emergency_pause_deactivated"

	// TypeAnomalyDetected is emitted when a metric observation crosses
	// its baseline threshold.
	TypeAnomalyDetected Type = "anomaly_detected"

	// TypeTimelockProposed is emitted when a timelocked operation is
	// proposed.
	TypeTimelockProposed Type = "timelock_proposed"

	// TypeTimelockExecuted is emitted when a timelocked operation is
	// executed.
	TypeTimelockExecuted Type = "timelock_executed"
)

// Event is one observability record.
type Event struct {
	// ID is a unique identifier for the event.
	ID string `json:"id"`

	// Type is the event kind.
	Type Type `json:"type"`

	// Time is when the event occurred.
	Time time.Time `json:"time"`

	// Scope is the pause scope, when applicable.
	Scope string `json:"scope,omitempty"`

	// Subject is the rate-limited subject, when applicable.
	Subject string `json:"subject,omitempty"`

	// Operation is the affected operation name or hash.
	Operation string `json:"operation,omitempty"`

	// Actor is the administrative actor, when applicable.
	Actor string `json:"actor,omitempty"`

	// Reason is the human-readable cause.
	Reason string `json:"reason,omitempty"`

	// Fields carries event-specific details (counts, limits, values).
	Fields map[string]any `json:"fields,omitempty"`
}

// New creates an event with a fresh ID and the given occurrence time.
func New(typ Type, at time.Time) Event {
	return Event{
		ID:   uuid.NewString(),
		Type: typ,
		Time: at,
	}
}
