package ratelimit

import (
	"sync"
	"testing"
	"time"

	"bastion-hq/bastion/pkg/clock"
)

func testRule() Rule {
	return Rule{MaxRequests: 3, Window: time.Minute}
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{"valid", Rule{MaxRequests: 10, Window: time.Minute}, false},
		{"zero max", Rule{MaxRequests: 0, Window: time.Minute}, true},
		{"negative max", Rule{MaxRequests: -1, Window: time.Minute}, true},
		{"zero window", Rule{MaxRequests: 10, Window: 0}, true},
		{"negative window", Rule{MaxRequests: 10, Window: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLimiter_QuotaExhaustion(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	l := NewLimiter(clk)

	// 4 calls in immediate succession: allowed, allowed, allowed, denied.
	want := []bool{true, true, true, false}
	for i, expected := range want {
		res := l.Admit("user-1", "register", testRule())
		if res.Allowed != expected {
			t.Errorf("call %d: Allowed = %v, want %v", i+1, res.Allowed, expected)
		}
	}

	// After the window elapses, a 5th call is admitted with count=1.
	clk.Advance(61 * time.Second)
	res := l.Admit("user-1", "register", testRule())
	if !res.Allowed {
		t.Error("Expected admission after window elapsed")
	}
	if res.Count != 1 {
		t.Errorf("Expected fresh window count=1, got %d", res.Count)
	}
}

func TestLimiter_DenialIsIdempotent(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	l := NewLimiter(clk)

	for i := 0; i < 3; i++ {
		l.Admit("u", "op", testRule())
	}

	// Repeated denied calls must not extend or mutate the window.
	first := l.Admit("u", "op", testRule())
	clk.Advance(10 * time.Second)
	second := l.Admit("u", "op", testRule())

	if first.Allowed || second.Allowed {
		t.Fatal("Expected both calls to be denied")
	}
	if !first.Reset.Equal(second.Reset) {
		t.Errorf("Window reset moved under denial: %v vs %v", first.Reset, second.Reset)
	}
	if second.Count != 3 {
		t.Errorf("Denied call mutated count: got %d, want 3", second.Count)
	}
}

func TestLimiter_ExactBoundaryResets(t *testing.T) {
	start := time.Unix(1000, 0)
	clk := clock.NewFake(start)
	l := NewLimiter(clk)

	for i := 0; i < 3; i++ {
		l.Admit("u", "op", testRule())
	}

	// Exactly at windowStart + window the record must reset (strict >=).
	clk.Set(start.Add(time.Minute))
	res := l.Admit("u", "op", testRule())
	if !res.Allowed {
		t.Error("Expected reset exactly at the window boundary")
	}
	if res.Count != 1 {
		t.Errorf("Expected count=1 after boundary reset, got %d", res.Count)
	}
}

func TestLimiter_RetryAfterHint(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	l := NewLimiter(clk)

	for i := 0; i < 3; i++ {
		l.Admit("u", "op", testRule())
	}

	clk.Advance(20 * time.Second)
	res := l.Admit("u", "op", testRule())
	if res.Allowed {
		t.Fatal("Expected denial")
	}
	if res.RetryAfter != 40*time.Second {
		t.Errorf("RetryAfter = %v, want 40s", res.RetryAfter)
	}
}

func TestLimiter_IndependentKeys(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	l := NewLimiter(clk)

	for i := 0; i < 3; i++ {
		l.Admit("user-1", "register", testRule())
	}

	// A different subject and a different operation are unaffected.
	if res := l.Admit("user-2", "register", testRule()); !res.Allowed {
		t.Error("Different subject should not share quota")
	}
	if res := l.Admit("user-1", "allocate", testRule()); !res.Allowed {
		t.Error("Different operation should not share quota")
	}
}

func TestLimiter_Usage(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	l := NewLimiter(clk)

	if count, _ := l.Usage("u", "op", testRule()); count != 0 {
		t.Errorf("Expected zero usage before first admit, got %d", count)
	}

	l.Admit("u", "op", testRule())
	l.Admit("u", "op", testRule())

	count, reset := l.Usage("u", "op", testRule())
	if count != 2 {
		t.Errorf("Expected usage 2, got %d", count)
	}
	if reset.IsZero() {
		t.Error("Expected non-zero reset time for live window")
	}

	// Usage must not consume a slot.
	if res := l.Admit("u", "op", testRule()); !res.Allowed {
		t.Error("Usage consumed an admission slot")
	}

	clk.Advance(2 * time.Minute)
	if count, _ := l.Usage("u", "op", testRule()); count != 0 {
		t.Errorf("Expected zero usage after window elapsed, got %d", count)
	}
}

func TestLimiter_ConcurrentLastSlot(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	l := NewLimiter(clk)
	rule := Rule{MaxRequests: 10, Window: time.Minute}

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	// 100 goroutines race for 10 slots; exactly 10 must win.
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit("u", "op", rule).Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 10 {
		t.Errorf("Expected exactly 10 admissions, got %d", admitted)
	}
}

func TestLimiter_Reset(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	l := NewLimiter(clk)

	for i := 0; i < 3; i++ {
		l.Admit("u", "op", testRule())
	}
	l.Reset("u", "op")

	res := l.Admit("u", "op", testRule())
	if !res.Allowed || res.Count != 1 {
		t.Errorf("Expected fresh window after Reset, got allowed=%v count=%d", res.Allowed, res.Count)
	}
}
