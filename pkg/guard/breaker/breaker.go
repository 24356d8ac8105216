package breaker

import (
	"sync"
	"time"

	"bastion-hq/bastion/pkg/clock"
)

// Breaker tracks failure-rate state keyed by operation name.
//
// States are created lazily on the first outcome report or admission
// check for an operation. Each state carries its own lock so
// operations never contend with each other.
type Breaker struct {
	clock  clock.Clock
	config Config

	mu     sync.RWMutex
	states map[string]*opState
}

// opState is the per-operation breaker state.
type opState struct {
	mu        sync.Mutex
	tripped   bool
	tripTime  time.Time
	cooldown  time.Duration
	failures  int
	successes int
	reason    string
}

// New creates a breaker with the given tuning. The config must have
// been validated at setup time.
func New(clk clock.Clock, cfg Config) *Breaker {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Breaker{
		clock:  clk,
		config: cfg,
		states: make(map[string]*opState),
	}
}

// Allow checks whether the operation currently admits calls.
//
// A tripped breaker whose cooldown has elapsed auto-resets on this
// check: tripped clears, both counters zero, and the call is allowed.
// The returned reset flag reports that transition so the caller can
// emit a reset event.
func (b *Breaker) Allow(operation string) (res Result, reset bool) {
	st := b.getOrCreate(operation)

	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.tripped {
		return Result{Allowed: true}, false
	}

	now := b.clock.Now()
	cooldownEnd := st.tripTime.Add(st.cooldown)
	if now.Before(cooldownEnd) {
		return Result{
			Allowed:    false,
			Reason:     st.reason,
			RetryAfter: cooldownEnd.Sub(now),
		}, false
	}

	// Cooldown elapsed: auto-reset on this check.
	st.tripped = false
	st.failures = 0
	st.successes = 0
	st.reason = ""
	return Result{Allowed: true}, true
}

// ReportOutcome records a success or failure for the operation.
//
// This is the only automatic trip path: when the post-update sample
// reaches MinSample and the failure percentage is at or above the
// threshold, the breaker trips with AutoTripReason. Returns true when
// this report tripped the breaker.
func (b *Breaker) ReportOutcome(operation string, success bool) (tripped bool) {
	st := b.getOrCreate(operation)

	st.mu.Lock()
	defer st.mu.Unlock()

	if success {
		st.successes++
	} else {
		st.failures++
	}

	if st.tripped {
		return false
	}

	cfg := b.tuning()
	total := st.failures + st.successes
	if total < cfg.MinSample {
		return false
	}
	if st.failures*100/total < cfg.FailureThresholdPct {
		return false
	}

	st.tripped = true
	st.tripTime = b.clock.Now()
	st.reason = AutoTripReason
	return true
}

// Trip trips the breaker administratively, bypassing the ratio
// thresholding.
func (b *Breaker) Trip(operation, reason string) {
	st := b.getOrCreate(operation)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.tripped = true
	st.tripTime = b.clock.Now()
	st.reason = reason
}

// Reset clears the breaker administratively: tripped flag and both
// counters.
func (b *Breaker) Reset(operation string) {
	st := b.getOrCreate(operation)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.tripped = false
	st.failures = 0
	st.successes = 0
	st.reason = ""
}

// Configure replaces the breaker tuning for subsequent evaluations.
// Existing per-operation cooldown overrides are preserved; states
// created before the change keep their cooldown.
func (b *Breaker) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config = cfg
	return nil
}

// tuning returns the current config under the registry lock.
func (b *Breaker) tuning() Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// SetCooldown overrides the cooldown for one operation. Used by the
// engine to apply per-operation tuning.
func (b *Breaker) SetCooldown(operation string, cooldown time.Duration) error {
	if cooldown <= 0 {
		return ErrInvalidConfig
	}
	st := b.getOrCreate(operation)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.cooldown = cooldown
	return nil
}

// Snapshot returns a serializable copy of one operation's state, or
// nil if the operation is unknown.
func (b *Breaker) Snapshot(operation string) *State {
	b.mu.RLock()
	st, ok := b.states[operation]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return &State{
		Operation: operation,
		Tripped:   st.tripped,
		TripTime:  st.tripTime,
		Cooldown:  st.cooldown,
		Failures:  st.failures,
		Successes: st.successes,
		Reason:    st.reason,
	}
}

// Restore installs a previously snapshotted state, replacing any
// existing state for the operation. Used at startup to survive
// restarts.
func (b *Breaker) Restore(s *State) {
	if s == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	cooldown := s.Cooldown
	if cooldown <= 0 {
		cooldown = b.config.Cooldown
	}
	b.states[s.Operation] = &opState{
		tripped:   s.Tripped,
		tripTime:  s.TripTime,
		cooldown:  cooldown,
		failures:  s.Failures,
		successes: s.Successes,
		reason:    s.Reason,
	}
}

// Operations lists all operations with live breaker state.
func (b *Breaker) Operations() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ops := make([]string, 0, len(b.states))
	for op := range b.states {
		ops = append(ops, op)
	}
	return ops
}

// getOrCreate returns the state for an operation, creating it with
// the default cooldown if needed.
func (b *Breaker) getOrCreate(operation string) *opState {
	b.mu.RLock()
	st, ok := b.states[operation]
	b.mu.RUnlock()
	if ok {
		return st
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok = b.states[operation]; ok {
		return st
	}
	st = &opState{cooldown: b.config.Cooldown}
	b.states[operation] = st
	return st
}
