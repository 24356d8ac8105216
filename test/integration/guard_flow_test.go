package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bastion-hq/bastion/pkg/clock"
	"bastion-hq/bastion/pkg/config"
	"bastion-hq/bastion/pkg/events"
	"bastion-hq/bastion/pkg/guard"
	"bastion-hq/bastion/pkg/guard/anomaly"
	"bastion-hq/bastion/pkg/guard/breaker"
	"bastion-hq/bastion/pkg/guard/storage"
	"bastion-hq/bastion/pkg/guard/timelock"
	"bastion-hq/bastion/pkg/server"
	"bastion-hq/bastion/pkg/telemetry/logging"
)

// newStack assembles the full admission stack over an in-memory
// backend and returns the HTTP test server plus the shared pieces.
func newStack(t *testing.T, clk *clock.Fake, backend storage.Backend) (*httptest.Server, *guard.Engine) {
	t.Helper()

	logger, err := logging.New(logging.Config{Level: "error", Format: "json", Writer: io.Discard})
	if err != nil {
		t.Fatalf("logging.New() error = %v", err)
	}

	bus := events.NewBus(64)
	t.Cleanup(bus.Close)

	engine, err := guard.New(guard.Config{
		Clock:    clk,
		PauseCap: 24 * time.Hour,
		Breaker: breaker.Config{
			MinSample:           10,
			FailureThresholdPct: 50,
			Cooldown:            time.Hour,
		},
		Timelock: timelock.Config{
			MinDelay:        time.Hour,
			MaxDelay:        7 * 24 * time.Hour,
			ExecutionWindow: 24 * time.Hour,
		},
		Anomaly: anomaly.Config{
			Multiplier:        3.0,
			RefreshWindow:     7 * 24 * time.Hour,
			MeasurementWindow: time.Hour,
		},
		Rules: map[string]guard.OperationRule{
			"mint": {MaxRequests: 2, Window: time.Minute},
			"burn": {MaxRequests: 100, Window: time.Minute},
		},
		Storage: backend,
		Bus:     bus,
		Logger:  logger.Slog(),
	})
	if err != nil {
		t.Fatalf("guard.New() error = %v", err)
	}

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	srv := server.NewServer(&cfg.Server, engine, nil, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, engine
}

func postJSON(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, raw
}

func authorize(t *testing.T, baseURL, scope, subject, operation string) (*http.Response, server.AuthorizeResponse) {
	t.Helper()
	resp, raw := postJSON(t, baseURL+"/v1/authorize", server.AuthorizeRequest{
		Scope:     scope,
		Subject:   subject,
		Operation: operation,
	})
	var body server.AuthorizeResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode authorize response: %v (%s)", err, raw)
	}
	return resp, body
}

// ============================================================
// End-to-End Guard Flow
// ============================================================

func TestGuardFlow_RateLimitThenPause(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	ts, _ := newStack(t, clk, storage.NewMemoryBackend())

	// Quota of 2 admits twice, then denies with Retry-After.
	for i := 0; i < 2; i++ {
		resp, body := authorize(t, ts.URL, "treasury", "alice", "mint")
		if resp.StatusCode != http.StatusOK || !body.Allowed {
			t.Fatalf("authorize %d = %d allowed=%v, want 200 allowed", i, resp.StatusCode, body.Allowed)
		}
	}
	resp, body := authorize(t, ts.URL, "treasury", "alice", "mint")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("third authorize = %d, want 429", resp.StatusCode)
	}
	if body.Guard != "rate_limiter" {
		t.Errorf("denying guard = %q, want rate_limiter", body.Guard)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("Retry-After header missing on rate limit denial")
	}

	// The window rolls over and admits again.
	clk.Advance(time.Minute)
	if resp, body := authorize(t, ts.URL, "treasury", "alice", "mint"); !body.Allowed {
		t.Fatalf("authorize after window = %d allowed=false", resp.StatusCode)
	}

	// An emergency pause takes precedence for every subject in scope.
	if resp, raw := postJSON(t, ts.URL+"/v1/pause", server.PauseRequest{
		Scope:    "treasury",
		Reason:   "incident response",
		Duration: "2h",
		Actor:    "ops",
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("pause = %d (%s)", resp.StatusCode, raw)
	}
	resp, body = authorize(t, ts.URL, "treasury", "bob", "burn")
	if resp.StatusCode != http.StatusServiceUnavailable || body.Guard != "emergency_pause" {
		t.Fatalf("authorize under pause = %d guard=%q, want 503 emergency_pause", resp.StatusCode, body.Guard)
	}

	// The pause expires on its own.
	clk.Advance(2*time.Hour + time.Second)
	if _, body := authorize(t, ts.URL, "treasury", "bob", "burn"); !body.Allowed {
		t.Fatal("authorize after pause expiry denied")
	}
}

func TestGuardFlow_BreakerTripAndCooldown(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	ts, _ := newStack(t, clk, storage.NewMemoryBackend())

	// Ten straight failures trip the breaker.
	for i := 0; i < 10; i++ {
		if resp, raw := postJSON(t, ts.URL+"/v1/complete", server.CompleteRequest{
			Operation: "burn",
			Success:   false,
		}); resp.StatusCode != http.StatusOK {
			t.Fatalf("complete %d = %d (%s)", i, resp.StatusCode, raw)
		}
	}

	resp, body := authorize(t, ts.URL, "treasury", "alice", "burn")
	if resp.StatusCode != http.StatusServiceUnavailable || body.Guard != "circuit_breaker" {
		t.Fatalf("authorize with tripped breaker = %d guard=%q, want 503 circuit_breaker", resp.StatusCode, body.Guard)
	}

	// The cooldown elapses and the breaker resets on the next check.
	clk.Advance(time.Hour + time.Second)
	if resp, body := authorize(t, ts.URL, "treasury", "alice", "burn"); !body.Allowed {
		t.Fatalf("authorize after cooldown = %d allowed=false", resp.StatusCode)
	}
}

func TestGuardFlow_TimelockLifecycle(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	ts, _ := newStack(t, clk, storage.NewMemoryBackend())

	resp, raw := postJSON(t, ts.URL+"/v1/timelock/propose", server.TimelockProposeRequest{
		OperationHash: "0xraise-mint-quota",
		Delay:         "2h",
		Description:   "raise mint quota",
		Proposer:      "ops",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("propose = %d (%s)", resp.StatusCode, raw)
	}
	var proposal server.ProposalResponse
	if err := json.Unmarshal(raw, &proposal); err != nil {
		t.Fatalf("decode proposal: %v", err)
	}

	// Execution before maturity is rejected.
	if resp, _ := postJSON(t, ts.URL+"/v1/timelock/execute", server.TimelockExecuteRequest{
		OperationHash: proposal.OperationHash,
	}); resp.StatusCode != http.StatusTooEarly {
		t.Fatalf("early execute = %d, want 425", resp.StatusCode)
	}

	clk.Advance(2*time.Hour + time.Second)
	if resp, raw := postJSON(t, ts.URL+"/v1/timelock/execute", server.TimelockExecuteRequest{
		OperationHash: proposal.OperationHash,
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("execute = %d (%s)", resp.StatusCode, raw)
	}
}

// ============================================================
// State Persistence Across Restart
// ============================================================

func TestGuardFlow_BreakerStateSurvivesRestart(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	backend := storage.NewMemoryBackend()

	ts, _ := newStack(t, clk, backend)
	if resp, _ := postJSON(t, ts.URL+"/v1/breaker", server.BreakerRequest{
		Operation: "burn",
		Action:    "trip",
		Reason:    "maintenance",
		Actor:     "ops",
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("trip = %d", resp.StatusCode)
	}
	ts.Close()

	// A fresh engine over the same backend restores the trip.
	ts2, _ := newStack(t, clk, backend)
	resp, body := authorize(t, ts2.URL, "treasury", "alice", "burn")
	if resp.StatusCode != http.StatusServiceUnavailable || body.Guard != "circuit_breaker" {
		t.Fatalf("authorize after restart = %d guard=%q, want 503 circuit_breaker", resp.StatusCode, body.Guard)
	}
}
