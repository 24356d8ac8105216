package ratelimit

import (
	"sync"
	"time"

	"bastion-hq/bastion/pkg/clock"
)

// Limiter tracks admission windows keyed by (subject, operation).
//
// Records are created lazily on the first admission check for a pair
// and are never deleted by the limiter itself; long-inactive records
// are reclaimed by the storage pruner.
type Limiter struct {
	clock clock.Clock

	// mu guards the records map only. Each record carries its own
	// lock so unrelated keys never contend.
	mu      sync.RWMutex
	records map[key]*record
}

type key struct {
	subject   string
	operation string
}

// record is the per-(subject, operation) window state.
type record struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
}

// NewLimiter creates a rate limiter using the given time source.
func NewLimiter(clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Limiter{
		clock:   clk,
		records: make(map[key]*record),
	}
}

// Admit checks whether subject may perform operation under the given
// rule and consumes one admission slot when allowed.
//
// The rule must have been validated at configuration time; Admit does
// not re-validate it. Denied calls do not mutate the window, so
// repeated denied attempts neither extend nor corrupt it.
func (l *Limiter) Admit(subject, operation string, rule Rule) Result {
	rec := l.getOrCreate(key{subject: subject, operation: operation})

	rec.mu.Lock()
	defer rec.mu.Unlock()

	now := l.clock.Now()
	windowEnd := rec.windowStart.Add(rule.Window)

	// A request exactly at the boundary observes an expired window.
	if rec.count == 0 || !now.Before(windowEnd) {
		rec.windowStart = now
		rec.count = 1
		return Result{
			Allowed:   true,
			Count:     1,
			Limit:     rule.MaxRequests,
			Remaining: rule.MaxRequests - 1,
			Reset:     now.Add(rule.Window),
		}
	}

	if rec.count < rule.MaxRequests {
		rec.count++
		return Result{
			Allowed:   true,
			Count:     rec.count,
			Limit:     rule.MaxRequests,
			Remaining: rule.MaxRequests - rec.count,
			Reset:     windowEnd,
		}
	}

	return Result{
		Allowed:    false,
		Count:      rec.count,
		Limit:      rule.MaxRequests,
		Remaining:  0,
		Reset:      windowEnd,
		RetryAfter: windowEnd.Sub(now),
	}
}

// Usage reports the current window state for a pair without consuming
// a slot. Returns zero count if no record exists or the window has
// elapsed.
func (l *Limiter) Usage(subject, operation string, rule Rule) (count int, reset time.Time) {
	l.mu.RLock()
	rec, ok := l.records[key{subject: subject, operation: operation}]
	l.mu.RUnlock()
	if !ok {
		return 0, time.Time{}
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	now := l.clock.Now()
	windowEnd := rec.windowStart.Add(rule.Window)
	if !now.Before(windowEnd) {
		return 0, time.Time{}
	}
	return rec.count, windowEnd
}

// Reset clears the window for a single pair. Primarily administrative.
func (l *Limiter) Reset(subject, operation string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, key{subject: subject, operation: operation})
}

// Len returns the number of live window records.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// getOrCreate returns the record for k, creating it if needed.
func (l *Limiter) getOrCreate(k key) *record {
	l.mu.RLock()
	rec, ok := l.records[k]
	l.mu.RUnlock()
	if ok {
		return rec
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Re-check under the write lock; another caller may have raced us.
	if rec, ok = l.records[k]; ok {
		return rec
	}
	rec = &record{}
	l.records[k] = rec
	return rec
}
