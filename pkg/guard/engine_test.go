package guard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bastion-hq/bastion/pkg/clock"
	"bastion-hq/bastion/pkg/events"
	"bastion-hq/bastion/pkg/guard/breaker"
	"bastion-hq/bastion/pkg/guard/storage"
	"bastion-hq/bastion/pkg/guard/timelock"
)

func newTestEngine(t *testing.T, clk clock.Clock, rules map[string]OperationRule) *Engine {
	t.Helper()
	e, err := New(Config{Clock: clk, Rules: rules})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// collector records bus events for assertion after Close.
type collector struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *collector) handle(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) ofType(typ events.Type) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, e := range c.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// ==========================================================================
// Construction
// ==========================================================================

func TestEngine_NewRejectsInvalidTuning(t *testing.T) {
	_, err := New(Config{Breaker: breaker.Config{MinSample: -1}})
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration for bad breaker tuning, got %v", err)
	}

	_, err = New(Config{Rules: map[string]OperationRule{
		"register": {MaxRequests: 0, Window: time.Minute},
	}})
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration for bad rule, got %v", err)
	}
}

// ==========================================================================
// Authorization hot path
// ==========================================================================

func TestEngine_AuthorizeRateLimitScenario(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	e := newTestEngine(t, clk, map[string]OperationRule{
		"register": {MaxRequests: 3, Window: 60 * time.Second},
	})

	want := []bool{true, true, true, false}
	for i, expected := range want {
		d := e.Authorize("payments", "user-1", "register")
		if d.Allowed != expected {
			t.Fatalf("Call %d: Allowed = %v, want %v", i+1, d.Allowed, expected)
		}
	}

	d := e.Authorize("payments", "user-1", "register")
	if d.Guard != NameRateLimiter {
		t.Errorf("Guard = %q, want rate limiter", d.Guard)
	}
	if !errors.Is(d.Err("payments", "user-1", "register"), ErrRateLimitExceeded) {
		t.Error("Expected denial to unwrap to ErrRateLimitExceeded")
	}
	if d.RetryAfter <= 0 {
		t.Error("Expected a retry-after hint on a quota denial")
	}

	clk.Advance(61 * time.Second)
	if d := e.Authorize("payments", "user-1", "register"); !d.Allowed {
		t.Error("Expected admission after the window elapsed")
	}
}

func TestEngine_AuthorizeGuardOrder(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	e := newTestEngine(t, clk, map[string]OperationRule{
		"mint": {MaxRequests: 1, Window: time.Minute},
	})

	// Stack all three denials: paused scope, tripped breaker,
	// exhausted quota. The pause must win.
	e.TripBreaker("mint", "incident", "ops")
	e.Authorize("vault", "user-1", "mint")
	if err := e.ActivatePause("vault", "exploit suspected", time.Hour, "ops"); err != nil {
		t.Fatalf("ActivatePause: %v", err)
	}

	d := e.Authorize("vault", "user-1", "mint")
	if d.Allowed || d.Guard != NameEmergencyPause {
		t.Fatalf("Decision = %+v, want emergency pause denial", d)
	}
	if !errors.Is(d.Err("vault", "user-1", "mint"), ErrEmergencyPauseActive) {
		t.Error("Expected denial to unwrap to ErrEmergencyPauseActive")
	}

	// Lift the pause: the breaker is next in line.
	if err := e.DeactivatePause("vault", "ops"); err != nil {
		t.Fatalf("DeactivatePause: %v", err)
	}
	d = e.Authorize("vault", "user-1", "mint")
	if d.Allowed || d.Guard != NameCircuitBreaker {
		t.Fatalf("Decision = %+v, want breaker denial", d)
	}

	// Reset the breaker: the rate limiter is last.
	e.ResetBreaker("mint", "ops")
	d = e.Authorize("vault", "user-2", "mint")
	if !d.Allowed {
		t.Fatalf("Fresh subject should be admitted, got %+v", d)
	}
	d = e.Authorize("vault", "user-2", "mint")
	if d.Allowed || d.Guard != NameRateLimiter {
		t.Fatalf("Decision = %+v, want rate limit denial", d)
	}
}

func TestEngine_ShortCircuitPreservesQuota(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	e := newTestEngine(t, clk, map[string]OperationRule{
		"register": {MaxRequests: 2, Window: time.Minute},
	})

	if err := e.ActivatePause("payments", "maintenance", time.Hour, "ops"); err != nil {
		t.Fatalf("ActivatePause: %v", err)
	}
	for i := 0; i < 5; i++ {
		if d := e.Authorize("payments", "user-1", "register"); d.Allowed {
			t.Fatal("Expected denial while paused")
		}
	}

	// None of the paused calls reached the limiter: the full quota
	// remains.
	if err := e.DeactivatePause("payments", "ops"); err != nil {
		t.Fatalf("DeactivatePause: %v", err)
	}
	for i := 0; i < 2; i++ {
		if d := e.Authorize("payments", "user-1", "register"); !d.Allowed {
			t.Fatalf("Call %d after unpause should be admitted", i+1)
		}
	}
}

func TestEngine_UnconfiguredOperationHasNoQuota(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	e := newTestEngine(t, clk, nil)

	for i := 0; i < 100; i++ {
		if d := e.Authorize("payments", "user-1", "health"); !d.Allowed {
			t.Fatalf("Call %d denied for an operation without a rule", i+1)
		}
	}
}

// ==========================================================================
// Outcome feedback
// ==========================================================================

func TestEngine_CompleteTripsBreaker(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	e := newTestEngine(t, clk, map[string]OperationRule{
		"mint": {MaxRequests: 100, Window: time.Minute},
	})

	// 6 failures, 4 successes: 60% at sample 10 trips.
	for i := 0; i < 6; i++ {
		e.Complete("mint", false)
	}
	for i := 0; i < 4; i++ {
		e.Complete("mint", true)
	}

	clk.Advance(30 * time.Minute)
	d := e.Authorize("payments", "user-1", "mint")
	if d.Allowed || d.Guard != NameCircuitBreaker {
		t.Fatalf("Decision = %+v, want breaker denial mid-cooldown", d)
	}
	if !errors.Is(d.Err("payments", "user-1", "mint"), ErrCircuitBreakerTripped) {
		t.Error("Expected denial to unwrap to ErrCircuitBreakerTripped")
	}
	if d.RetryAfter != 30*time.Minute {
		t.Errorf("RetryAfter = %v, want 30m", d.RetryAfter)
	}

	clk.Advance(31 * time.Minute)
	if d := e.Authorize("payments", "user-1", "mint"); !d.Allowed {
		t.Error("Expected admission after the cooldown elapsed")
	}
}

func TestEngine_CompleteAccumulatesBoundMetric(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	bus := events.NewBus(0)
	col := &collector{}
	bus.Subscribe(col.handle)

	e, err := New(Config{
		Clock: clk,
		Bus:   bus,
		Rules: map[string]OperationRule{
			"mint": {MaxRequests: 1000, Window: time.Minute, Metric: "mint_volume"},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Anchor a baseline of 100 completions per measurement window.
	e.ObserveMetric("mint_volume", 100)

	// 300 completions is exactly 3x the baseline: not anomalous. The
	// 301st crosses the strict threshold.
	for i := 0; i < 301; i++ {
		e.Complete("mint", true)
	}
	bus.Close()

	flagged := col.ofType(events.TypeAnomalyDetected)
	if len(flagged) != 1 {
		t.Fatalf("Anomaly events = %d, want exactly 1", len(flagged))
	}
	if flagged[0].Operation != "mint" {
		t.Errorf("Anomaly event operation = %q, want mint", flagged[0].Operation)
	}
}

// ==========================================================================
// Events
// ==========================================================================

func TestEngine_EmitsLifecycleEvents(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	bus := events.NewBus(0)
	col := &collector{}
	bus.Subscribe(col.handle)

	e, err := New(Config{
		Clock: clk,
		Bus:   bus,
		Rules: map[string]OperationRule{
			"register": {MaxRequests: 1, Window: time.Minute},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	e.Authorize("payments", "user-1", "register")
	e.Authorize("payments", "user-1", "register") // quota denial

	if err := e.ActivatePause("payments", "incident", time.Hour, "ops"); err != nil {
		t.Fatalf("ActivatePause: %v", err)
	}
	if err := e.DeactivatePause("payments", "ops"); err != nil {
		t.Fatalf("DeactivatePause: %v", err)
	}

	e.TripBreaker("register", "manual", "ops")
	e.ResetBreaker("register", "ops")

	if _, err := e.ProposeTimelock("hash-1", 2*time.Hour, "raise quota", "ops"); err != nil {
		t.Fatalf("ProposeTimelock: %v", err)
	}
	clk.Advance(2 * time.Hour)
	if _, err := e.ExecuteTimelock("hash-1"); err != nil {
		t.Fatalf("ExecuteTimelock: %v", err)
	}
	bus.Close()

	counts := map[events.Type]int{
		events.TypeRateLimitExceeded:         1,
		events.TypeEmergencyPauseActivated:   1,
		events.TypeEmergencyPauseDeactivated: 1,
		events.TypeCircuitBreakerTripped:     1,
		events.TypeCircuitBreakerReset:       1,
		events.TypeTimelockProposed:          1,
		events.TypeTimelockExecuted:          1,
	}
	for typ, want := range counts {
		if got := len(col.ofType(typ)); got != want {
			t.Errorf("Events of type %s = %d, want %d", typ, got, want)
		}
	}
}

// ==========================================================================
// Timelock surface
// ==========================================================================

func TestEngine_TimelockLifecycle(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	e := newTestEngine(t, clk, nil)

	p, err := e.ProposeTimelock("hash-1", 2*time.Hour, "rotate signer", "admin")
	if err != nil {
		t.Fatalf("ProposeTimelock: %v", err)
	}
	if p.ID == "" {
		t.Error("Expected proposal to carry an ID")
	}

	if _, err := e.ExecuteTimelock("hash-1"); !errors.Is(err, timelock.ErrNotReady) {
		t.Errorf("Early execute error = %v, want ErrNotReady", err)
	}

	clk.Advance(2 * time.Hour)
	if _, err := e.ExecuteTimelock("hash-1"); err != nil {
		t.Fatalf("Execute at maturity: %v", err)
	}
	if _, err := e.ExecuteTimelock("hash-1"); !errors.Is(err, timelock.ErrAlreadyExecuted) {
		t.Errorf("Repeat execute error = %v, want ErrAlreadyExecuted", err)
	}

	if got := len(e.PendingTimelocks()); got != 0 {
		t.Errorf("Pending proposals = %d, want 0 after execution", got)
	}
}

// ==========================================================================
// Administrative tuning
// ==========================================================================

func TestEngine_ConfigureReplacesRule(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	e := newTestEngine(t, clk, map[string]OperationRule{
		"register": {MaxRequests: 1, Window: time.Minute},
	})

	if err := e.Configure("register", OperationRule{MaxRequests: 0, Window: time.Minute}); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Expected rejection of invalid rule, got %v", err)
	}

	if err := e.Configure("register", OperationRule{MaxRequests: 3, Window: time.Minute}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	for i := 0; i < 3; i++ {
		if d := e.Authorize("payments", "user-1", "register"); !d.Allowed {
			t.Fatalf("Call %d denied under the raised quota", i+1)
		}
	}
	if d := e.Authorize("payments", "user-1", "register"); d.Allowed {
		t.Error("Expected denial past the raised quota")
	}
}

func TestEngine_SetRulesIsAtomic(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	e := newTestEngine(t, clk, map[string]OperationRule{
		"register": {MaxRequests: 1, Window: time.Minute},
	})

	err := e.SetRules(map[string]OperationRule{
		"register": {MaxRequests: 5, Window: time.Minute},
		"mint":     {MaxRequests: 0, Window: time.Minute},
	})
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("Expected rejection, got %v", err)
	}

	// The bad batch must not have been applied partially.
	if rule, ok := e.Rule("register"); !ok || rule.MaxRequests != 1 {
		t.Errorf("Rule after failed batch = %+v, want untouched original", rule)
	}
}

// ==========================================================================
// Persistence
// ==========================================================================

func TestEngine_StateSurvivesRestart(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	backend := storage.NewMemoryBackend()
	rules := map[string]OperationRule{
		"mint": {MaxRequests: 100, Window: time.Minute},
	}

	e, err := New(Config{Clock: clk, Storage: backend, Rules: rules})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	e.TripBreaker("mint", "incident", "ops")
	if err := e.ActivatePause("vault", "exploit", time.Hour, "ops"); err != nil {
		t.Fatalf("ActivatePause: %v", err)
	}
	if _, err := e.ProposeTimelock("hash-1", 2*time.Hour, "rotate", "ops"); err != nil {
		t.Fatalf("ProposeTimelock: %v", err)
	}

	// A second engine on the same backend sees the same state.
	e2, err := New(Config{Clock: clk, Storage: backend, Rules: rules})
	if err != nil {
		t.Fatalf("New (restarted): %v", err)
	}

	if d := e2.Authorize("payments", "user-1", "mint"); d.Allowed || d.Guard != NameCircuitBreaker {
		t.Errorf("Restarted engine lost the tripped breaker: %+v", d)
	}
	if status := e2.PauseStatus("vault"); !status.Paused {
		t.Error("Restarted engine lost the active pause")
	}
	if p := e2.TimelockProposal("hash-1"); p == nil {
		t.Error("Restarted engine lost the pending proposal")
	}

	// Deactivation removes the persisted pause record.
	if err := e2.DeactivatePause("vault", "ops"); err != nil {
		t.Fatalf("DeactivatePause: %v", err)
	}
	rec, err := backend.Load(context.Background(), storage.KindPause, "vault")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec != nil {
		t.Error("Expected pause record deleted after deactivation")
	}
}

// ==========================================================================
// Concurrency
// ==========================================================================

func TestEngine_ConcurrentAuthorize(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	e := newTestEngine(t, clk, map[string]OperationRule{
		"register": {MaxRequests: 10, Window: time.Minute},
	})

	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := e.Authorize("payments", "user-1", "register")
			if d.Allowed {
				mu.Lock()
				count++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count != 10 {
		t.Errorf("Admitted %d of 100 concurrent calls, want exactly 10", count)
	}
}
