package timelock

import (
	"errors"
	"testing"
	"time"

	"bastion-hq/bastion/pkg/clock"
)

func newTestGovernor(clk clock.Clock) *Governor {
	return NewGovernor(clk, DefaultConfig())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"zero min", Config{MinDelay: 0, MaxDelay: time.Hour, ExecutionWindow: time.Hour}, true},
		{"zero window", Config{MinDelay: time.Hour, MaxDelay: 2 * time.Hour, ExecutionWindow: 0}, true},
		{"min over max", Config{MinDelay: 2 * time.Hour, MaxDelay: time.Hour, ExecutionWindow: time.Hour}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGovernor_DelayBounds(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	g := newTestGovernor(clk)

	// Below the 1h minimum.
	if _, err := g.Propose("hash-1", 30*time.Minute, "d", "admin"); !errors.Is(err, ErrInvalidDelay) {
		t.Errorf("Expected ErrInvalidDelay below minimum, got %v", err)
	}

	// Above the 7d maximum.
	if _, err := g.Propose("hash-1", 8*24*time.Hour, "d", "admin"); !errors.Is(err, ErrInvalidDelay) {
		t.Errorf("Expected ErrInvalidDelay above maximum, got %v", err)
	}

	// Both bounds inclusive.
	if _, err := g.Propose("hash-min", DefaultMinDelay, "d", "admin"); err != nil {
		t.Errorf("Expected minimum delay to be accepted, got %v", err)
	}
	if _, err := g.Propose("hash-max", DefaultMaxDelay, "d", "admin"); err != nil {
		t.Errorf("Expected maximum delay to be accepted, got %v", err)
	}
}

func TestGovernor_ExecuteLifecycle(t *testing.T) {
	start := time.Unix(1000, 0)
	clk := clock.NewFake(start)
	g := newTestGovernor(clk)

	p, err := g.Propose("raise-threshold", 2*time.Hour, "raise mint quota", "admin")
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if !p.ExecutionTime.Equal(start.Add(2 * time.Hour)) {
		t.Errorf("ExecutionTime = %v, want proposal time + delay", p.ExecutionTime)
	}

	// Before the delay elapses: not ready.
	if _, err := g.Execute("raise-threshold"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady before delay, got %v", err)
	}

	// Exactly at ExecutionTime: executable.
	clk.Set(start.Add(2 * time.Hour))
	executed, err := g.Execute("raise-threshold")
	if err != nil {
		t.Fatalf("Execute at ExecutionTime: %v", err)
	}
	if !executed.Executed || !executed.ExecutedAt.Equal(clk.Now()) {
		t.Errorf("Unexpected executed proposal: %+v", executed)
	}

	// A second execution is a hard error, not a silent no-op.
	if _, err := g.Execute("raise-threshold"); !errors.Is(err, ErrAlreadyExecuted) {
		t.Errorf("Expected ErrAlreadyExecuted, got %v", err)
	}
}

func TestGovernor_ExecutionWindowExpiry(t *testing.T) {
	start := time.Unix(1000, 0)
	clk := clock.NewFake(start)
	g := newTestGovernor(clk)

	g.Propose("op", time.Hour, "d", "admin")

	// Exactly at the window end: still executable.
	clk.Set(start.Add(time.Hour + DefaultExecutionWindow))
	if _, err := g.Execute("op"); err != nil {
		t.Errorf("Expected execution at window end to succeed, got %v", err)
	}

	g2 := newTestGovernor(clock.NewFake(start))
	g2.Propose("op", time.Hour, "d", "admin")

	clk2 := clock.NewFake(start.Add(time.Hour + DefaultExecutionWindow + time.Second))
	g3 := NewGovernor(clk2, DefaultConfig())
	p := g2.Get("op")
	g3.Restore(p)
	if _, err := g3.Execute("op"); !errors.Is(err, ErrExpired) {
		t.Errorf("Expected ErrExpired past window, got %v", err)
	}
}

func TestGovernor_AlreadyProposed(t *testing.T) {
	start := time.Unix(1000, 0)
	clk := clock.NewFake(start)
	g := newTestGovernor(clk)

	if _, err := g.Propose("op", time.Hour, "d", "admin"); err != nil {
		t.Fatalf("Propose: %v", err)
	}

	// Live proposal blocks re-proposal.
	if _, err := g.Propose("op", 2*time.Hour, "d", "admin"); !errors.Is(err, ErrAlreadyProposed) {
		t.Errorf("Expected ErrAlreadyProposed, got %v", err)
	}

	// An expired proposal must be re-proposable.
	clk.Set(start.Add(time.Hour + DefaultExecutionWindow + time.Second))
	p, err := g.Propose("op", time.Hour, "d", "admin")
	if err != nil {
		t.Fatalf("Expected re-proposal after expiry, got %v", err)
	}
	if p.Executed {
		t.Error("Re-proposal must start fresh")
	}

	// An executed proposal is also replaceable.
	clk.Advance(time.Hour)
	if _, err := g.Execute("op"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := g.Propose("op", time.Hour, "again", "admin"); err != nil {
		t.Errorf("Expected re-proposal after execution, got %v", err)
	}
}

func TestGovernor_UnknownProposal(t *testing.T) {
	g := newTestGovernor(clock.NewFake(time.Unix(1000, 0)))

	if _, err := g.Execute("never-proposed"); !errors.Is(err, ErrUnknownProposal) {
		t.Errorf("Expected ErrUnknownProposal, got %v", err)
	}
}

func TestGovernor_Pending(t *testing.T) {
	start := time.Unix(1000, 0)
	clk := clock.NewFake(start)
	g := newTestGovernor(clk)

	g.Propose("a", time.Hour, "d", "admin")
	g.Propose("b", 2*time.Hour, "d", "admin")

	if got := len(g.Pending()); got != 2 {
		t.Fatalf("Expected 2 pending proposals, got %d", got)
	}

	// Execute one, expire nothing: one remains pending.
	clk.Set(start.Add(time.Hour))
	g.Execute("a")
	if got := len(g.Pending()); got != 1 {
		t.Errorf("Expected 1 pending proposal after execution, got %d", got)
	}

	// Push past b's window: none pending.
	clk.Set(start.Add(2*time.Hour + DefaultExecutionWindow + time.Second))
	if got := len(g.Pending()); got != 0 {
		t.Errorf("Expected 0 pending proposals after expiry, got %d", got)
	}
}

func TestGovernor_GetReturnsCopy(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	g := newTestGovernor(clk)

	g.Propose("op", time.Hour, "d", "admin")

	p := g.Get("op")
	p.Executed = true

	// Mutating the copy must not affect stored state.
	clk.Advance(time.Hour)
	if _, err := g.Execute("op"); err != nil {
		t.Errorf("Stored proposal was aliased by Get: %v", err)
	}

	if g.Get("missing") != nil {
		t.Error("Expected nil for unknown hash")
	}
}
