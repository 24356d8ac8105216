package events

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestAudit(t *testing.T) *Audit {
	t.Helper()
	a, err := NewAudit(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("NewAudit: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestAudit_AppendAndList(t *testing.T) {
	a := newTestAudit(t)
	ctx := context.Background()

	e := New(TypeCircuitBreakerTripped, time.Now())
	e.Operation = "mint"
	e.Reason = "High failure rate detected"
	e.Fields = map[string]any{"failures": 6, "successes": 4}

	if err := a.Append(ctx, e); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := a.List(ctx, Query{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(got))
	}
	if got[0].ID != e.ID || got[0].Operation != "mint" {
		t.Errorf("Unexpected event: %+v", got[0])
	}
	if got[0].Fields["failures"] != float64(6) {
		t.Errorf("Fields roundtrip: %+v", got[0].Fields)
	}
}

func TestAudit_ListFilters(t *testing.T) {
	a := newTestAudit(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, typ := range []Type{TypeRateLimitExceeded, TypeRateLimitExceeded, TypeAnomalyDetected} {
		e := New(typ, base.Add(time.Duration(i)*time.Minute))
		if err := a.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	byType, err := a.List(ctx, Query{Type: TypeRateLimitExceeded})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byType) != 2 {
		t.Errorf("Expected 2 rate limit events, got %d", len(byType))
	}

	byTime, err := a.List(ctx, Query{Since: base.Add(time.Minute)})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byTime) != 2 {
		t.Errorf("Expected 2 events since %v, got %d", base.Add(time.Minute), len(byTime))
	}

	limited, err := a.List(ctx, Query{Limit: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected 1 event with limit, got %d", len(limited))
	}
	// Newest first.
	if limited[0].Type != TypeAnomalyDetected {
		t.Errorf("Expected newest event first, got %s", limited[0].Type)
	}
}

func TestAudit_SinkOnBus(t *testing.T) {
	a := newTestAudit(t)

	b := NewBus(16)
	b.Subscribe(a.Sink())

	e := New(TypeEmergencyPauseActivated, time.Now())
	e.Scope = "minting"
	e.Actor = "ops-alice"
	b.Publish(e)
	b.Close()

	got, err := a.List(context.Background(), Query{Type: TypeEmergencyPauseActivated})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Scope != "minting" {
		t.Errorf("Expected audited pause event, got %+v", got)
	}
}
