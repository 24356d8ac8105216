package pause

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"bastion-hq/bastion/pkg/clock"
)

// DefaultMaxDuration is the system-wide cap on a single pause.
const DefaultMaxDuration = 24 * time.Hour

var (
	// ErrInvalidDuration is returned when an activation duration is
	// non-positive or exceeds the system-wide cap.
	ErrInvalidDuration = errors.New("invalid pause duration")

	// ErrNotPaused is returned by Deactivate when the scope has no
	// active pause.
	ErrNotPaused = errors.New("scope is not paused")
)

// Status reports the pause state of a scope at check time.
type Status struct {
	// Paused indicates an active, unexpired pause.
	Paused bool

	// Reason is the activation reason.
	Reason string

	// PausedBy is the actor that activated the pause.
	PausedBy string

	// Expires is when the pause lapses on its own.
	Expires time.Time

	// RetryAfter is how long until the pause expires. Zero when not
	// paused.
	RetryAfter time.Duration
}

// State is a serializable snapshot of one scope's pause record.
type State struct {
	Scope     string        `json:"scope"`
	Paused    bool          `json:"paused"`
	PauseTime time.Time     `json:"pause_time"`
	Duration  time.Duration `json:"duration"`
	PausedBy  string        `json:"paused_by"`
	Reason    string        `json:"reason"`
}

// Controller tracks emergency pauses keyed by scope name.
type Controller struct {
	clock clock.Clock
	cap   time.Duration

	mu     sync.RWMutex
	scopes map[string]*scopeState
}

type scopeState struct {
	mu        sync.Mutex
	paused    bool
	pauseTime time.Time
	duration  time.Duration
	pausedBy  string
	reason    string
}

// NewController creates a pause controller. A non-positive cap falls
// back to DefaultMaxDuration.
func NewController(clk clock.Clock, cap time.Duration) *Controller {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if cap <= 0 {
		cap = DefaultMaxDuration
	}
	return &Controller{
		clock:  clk,
		cap:    cap,
		scopes: make(map[string]*scopeState),
	}
}

// Activate pauses a scope for the given duration.
//
// Durations above the system-wide cap are rejected, not capped:
// misconfiguration must be visible at the call site. Re-activating an
// already-paused scope replaces the pause (fresh start time, duration,
// actor and reason).
func (c *Controller) Activate(scope, reason string, duration time.Duration, actor string) error {
	if duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidDuration, duration)
	}
	if duration > c.cap {
		return fmt.Errorf("%w: %v exceeds system cap %v", ErrInvalidDuration, duration, c.cap)
	}

	st := c.getOrCreate(scope)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.paused = true
	st.pauseTime = c.clock.Now()
	st.duration = duration
	st.pausedBy = actor
	st.reason = reason
	return nil
}

// Deactivate clears the pause record for a scope. Returns ErrNotPaused
// if the scope has no pause record, or only an already-expired one.
func (c *Controller) Deactivate(scope string) error {
	c.mu.RLock()
	st, ok := c.scopes[scope]
	c.mu.RUnlock()
	if !ok {
		return ErrNotPaused
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	expired := !c.clock.Now().Before(st.pauseTime.Add(st.duration))
	if !st.paused || expired {
		st.paused = false
		return ErrNotPaused
	}
	st.paused = false
	return nil
}

// Check reports whether the scope is currently paused. Expiry is
// computed here from the stored activation time: a pause past
// pauseTime+duration reads as not paused even though Deactivate was
// never called.
func (c *Controller) Check(scope string) Status {
	c.mu.RLock()
	st, ok := c.scopes[scope]
	c.mu.RUnlock()
	if !ok {
		return Status{}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.paused {
		return Status{}
	}

	now := c.clock.Now()
	expires := st.pauseTime.Add(st.duration)
	if !now.Before(expires) {
		return Status{}
	}

	return Status{
		Paused:     true,
		Reason:     st.reason,
		PausedBy:   st.pausedBy,
		Expires:    expires,
		RetryAfter: expires.Sub(now),
	}
}

// Snapshot returns a serializable copy of one scope's record, or nil
// if the scope is unknown.
func (c *Controller) Snapshot(scope string) *State {
	c.mu.RLock()
	st, ok := c.scopes[scope]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return &State{
		Scope:     scope,
		Paused:    st.paused,
		PauseTime: st.pauseTime,
		Duration:  st.duration,
		PausedBy:  st.pausedBy,
		Reason:    st.reason,
	}
}

// Restore installs a previously snapshotted record, replacing any
// existing record for the scope.
func (c *Controller) Restore(s *State) {
	if s == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scopes[s.Scope] = &scopeState{
		paused:    s.Paused,
		pauseTime: s.PauseTime,
		duration:  s.Duration,
		pausedBy:  s.PausedBy,
		reason:    s.Reason,
	}
}

// Scopes lists all scopes with a pause record, active or not.
func (c *Controller) Scopes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	scopes := make([]string, 0, len(c.scopes))
	for s := range c.scopes {
		scopes = append(scopes, s)
	}
	return scopes
}

func (c *Controller) getOrCreate(scope string) *scopeState {
	c.mu.RLock()
	st, ok := c.scopes[scope]
	c.mu.RUnlock()
	if ok {
		return st
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok = c.scopes[scope]; ok {
		return st
	}
	st = &scopeState{}
	c.scopes[scope] = st
	return st
}
