package timelock

import (
	"errors"
	"time"
)

// Default bounds for proposal delays and the execution window.
const (
	DefaultMinDelay        = time.Hour
	DefaultMaxDelay        = 7 * 24 * time.Hour
	DefaultExecutionWindow = 24 * time.Hour
)

var (
	// ErrInvalidDelay is returned when a proposed delay falls outside
	// [MinDelay, MaxDelay].
	ErrInvalidDelay = errors.New("timelock delay out of bounds")

	// ErrInvalidConfig is returned when the governor bounds themselves
	// are inconsistent.
	ErrInvalidConfig = errors.New("invalid timelock configuration")

	// ErrAlreadyProposed is returned when a live (non-executed,
	// non-expired) proposal already exists under the same hash.
	ErrAlreadyProposed = errors.New("operation already proposed")

	// ErrUnknownProposal is returned when executing a hash that was
	// never proposed.
	ErrUnknownProposal = errors.New("unknown timelocked operation")

	// ErrNotReady is returned when executing before the delay has
	// elapsed.
	ErrNotReady = errors.New("timelocked operation not ready")

	// ErrExpired is returned when executing after the execution window
	// has closed.
	ErrExpired = errors.New("timelocked operation expired")

	// ErrAlreadyExecuted is returned on a second execution attempt.
	// It is a hard error rather than a silent no-op so caller bugs
	// surface immediately.
	ErrAlreadyExecuted = errors.New("timelocked operation already executed")
)

// Config bounds proposal delays and the post-delay execution window.
type Config struct {
	// MinDelay is the shortest acceptable delay between proposal and
	// earliest execution.
	MinDelay time.Duration

	// MaxDelay is the longest acceptable delay.
	MaxDelay time.Duration

	// ExecutionWindow is how long after the delay elapses the
	// proposal remains executable.
	ExecutionWindow time.Duration
}

// DefaultConfig returns the default governor bounds.
func DefaultConfig() Config {
	return Config{
		MinDelay:        DefaultMinDelay,
		MaxDelay:        DefaultMaxDelay,
		ExecutionWindow: DefaultExecutionWindow,
	}
}

// Validate rejects inconsistent bounds at setup time.
func (c Config) Validate() error {
	if c.MinDelay <= 0 || c.MaxDelay <= 0 || c.ExecutionWindow <= 0 {
		return ErrInvalidConfig
	}
	if c.MinDelay > c.MaxDelay {
		return ErrInvalidConfig
	}
	return nil
}

// Proposal is the stored state of one timelocked operation.
type Proposal struct {
	// ID is a unique identifier for this proposal record. A re-proposal
	// of the same hash after expiry gets a fresh ID.
	ID string `json:"id"`

	// OperationHash is the content-derived identifier of the action.
	OperationHash string `json:"operation_hash"`

	// Description is a human-readable summary of the action.
	Description string `json:"description"`

	// ProposedBy is the proposing actor.
	ProposedBy string `json:"proposed_by"`

	// ProposalTime is when the proposal was created.
	ProposalTime time.Time `json:"proposal_time"`

	// ExecutionTime is ProposalTime + delay: the earliest execution
	// instant.
	ExecutionTime time.Time `json:"execution_time"`

	// Executed reports whether the proposal has been executed.
	Executed bool `json:"executed"`

	// ExecutedAt is when execution happened, zero if not executed.
	ExecutedAt time.Time `json:"executed_at"`
}
