package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bastion-hq/bastion/pkg/clock"
	"bastion-hq/bastion/pkg/events"
	"bastion-hq/bastion/pkg/guard/anomaly"
	"bastion-hq/bastion/pkg/guard/breaker"
	"bastion-hq/bastion/pkg/guard/pause"
	"bastion-hq/bastion/pkg/guard/ratelimit"
	"bastion-hq/bastion/pkg/guard/storage"
	"bastion-hq/bastion/pkg/guard/timelock"
)

// persistTimeout bounds each best-effort state write.
const persistTimeout = 5 * time.Second

// Config assembles an Engine.
//
// Zero-valued guard tunings fall back to each guard's defaults; set
// fields are validated and rejected at construction, never clamped.
type Config struct {
	// Clock is the time source. Nil falls back to the system clock.
	Clock clock.Clock

	// PauseCap is the system-wide limit on a single pause duration.
	// Zero falls back to pause.DefaultMaxDuration.
	PauseCap time.Duration

	// Breaker tunes automatic trip behavior engine-wide.
	Breaker breaker.Config

	// Timelock bounds proposal delays and the execution window.
	Timelock timelock.Config

	// Anomaly tunes spike detection.
	Anomaly anomaly.Config

	// Rules maps operation names to their admission tuning.
	Rules map[string]OperationRule

	// Storage persists guard state across restarts. Nil disables
	// persistence.
	Storage storage.Backend

	// Bus receives observability events. Nil disables emission.
	Bus *events.Bus

	// Logger receives engine diagnostics. Nil falls back to the
	// default logger.
	Logger *slog.Logger

	// Metrics receives engine metrics. Nil creates an unregistered
	// collector set.
	Metrics *Metrics
}

// Engine composes the five guards behind a single call surface.
//
// Authorize runs the per-call hot path: Emergency Pause (scope) →
// Circuit Breaker (operation) → Rate Limiter (subject, operation),
// short-circuiting on the first denial. Complete feeds outcomes back
// into the breaker and, for operations bound to a metric, into the
// anomaly detector. The timelock governor rides alongside for
// administrative changes and never participates in the hot path.
//
// The five underlying state stores are owned exclusively by the
// Engine; callers interact only through this surface.
type Engine struct {
	clock   clock.Clock
	logger  *slog.Logger
	metrics *Metrics
	bus     *events.Bus
	store   storage.Backend

	limiter  *ratelimit.Limiter
	breaker  *breaker.Breaker
	pause    *pause.Controller
	timelock *timelock.Governor
	anomaly  *anomaly.Detector

	mu    sync.RWMutex
	rules map[string]OperationRule
}

// New creates an engine, validating all tuning up front and restoring
// any persisted guard state from the storage backend.
func New(cfg Config) (*Engine, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystem()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "guard")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	if cfg.PauseCap == 0 {
		cfg.PauseCap = pause.DefaultMaxDuration
	}
	if cfg.PauseCap < 0 {
		return nil, fmt.Errorf("%w: negative pause cap", ErrInvalidConfiguration)
	}

	if (cfg.Breaker == breaker.Config{}) {
		cfg.Breaker = breaker.DefaultConfig()
	}
	if err := cfg.Breaker.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	if (cfg.Timelock == timelock.Config{}) {
		cfg.Timelock = timelock.DefaultConfig()
	}
	if err := cfg.Timelock.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	if (cfg.Anomaly == anomaly.Config{}) {
		cfg.Anomaly = anomaly.DefaultConfig()
	}
	if err := cfg.Anomaly.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	rules := make(map[string]OperationRule, len(cfg.Rules))
	for op, rule := range cfg.Rules {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("operation %q: %w", op, err)
		}
		rules[op] = rule
	}

	e := &Engine{
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		bus:      cfg.Bus,
		store:    cfg.Storage,
		limiter:  ratelimit.NewLimiter(cfg.Clock),
		breaker:  breaker.New(cfg.Clock, cfg.Breaker),
		pause:    pause.NewController(cfg.Clock, cfg.PauseCap),
		timelock: timelock.NewGovernor(cfg.Clock, cfg.Timelock),
		anomaly:  anomaly.NewDetector(cfg.Clock, cfg.Anomaly),
		rules:    rules,
	}

	for op, rule := range rules {
		if rule.Cooldown > 0 {
			if err := e.breaker.SetCooldown(op, rule.Cooldown); err != nil {
				return nil, fmt.Errorf("operation %q: %w", op, err)
			}
		}
	}

	if e.store != nil {
		if err := e.restore(); err != nil {
			return nil, fmt.Errorf("restoring guard state: %w", err)
		}
	}
	return e, nil
}

// Authorize decides whether subject may perform operation now.
//
// Guards run in fixed order: pause, breaker, rate limiter. The first
// denial wins and names its guard; later guards do not run, so a
// denied call never consumes rate limit quota behind a pause or a
// tripped breaker. Operations without a configured rule pass the rate
// limiter unconditionally.
func (e *Engine) Authorize(scope, subject, operation string) Decision {
	start := time.Now()
	defer func() {
		e.metrics.RecordCheckDuration(operation, time.Since(start).Seconds())
	}()

	if status := e.pause.Check(scope); status.Paused {
		e.metrics.RecordAuthorization(operation, false)
		e.metrics.RecordDenial(operation, NameEmergencyPause)
		return Decision{
			Guard:      NameEmergencyPause,
			Reason:     fmt.Sprintf("scope %q paused: %s", scope, status.Reason),
			RetryAfter: status.RetryAfter,
		}
	}

	res, wasReset := e.breaker.Allow(operation)
	if wasReset {
		e.metrics.RecordBreakerReset(operation)
		e.emitBreakerReset(operation, "cooldown elapsed")
		e.persistBreaker(operation)
	}
	if !res.Allowed {
		e.metrics.RecordAuthorization(operation, false)
		e.metrics.RecordDenial(operation, NameCircuitBreaker)
		return Decision{
			Guard:      NameCircuitBreaker,
			Reason:     res.Reason,
			RetryAfter: res.RetryAfter,
		}
	}

	rule, ok := e.rule(operation)
	if !ok {
		e.metrics.RecordAuthorization(operation, true)
		return Decision{Allowed: true}
	}

	quota := e.limiter.Admit(subject, operation, rule.quota())
	if !quota.Allowed {
		e.metrics.RecordAuthorization(operation, false)
		e.metrics.RecordDenial(operation, NameRateLimiter)

		ev := events.New(events.TypeRateLimitExceeded, e.clock.Now())
		ev.Scope = scope
		ev.Subject = subject
		ev.Operation = operation
		ev.Reason = "quota exhausted for window"
		ev.Fields = map[string]any{
			"count": quota.Count,
			"limit": quota.Limit,
			"reset": quota.Reset,
		}
		e.emit(ev)

		return Decision{
			Guard:      NameRateLimiter,
			Reason:     fmt.Sprintf("rate limit of %d per %s exhausted", quota.Limit, rule.Window),
			RetryAfter: quota.RetryAfter,
			RateLimit:  &quota,
		}
	}

	e.metrics.RecordAuthorization(operation, true)
	return Decision{Allowed: true, RateLimit: &quota}
}

// Complete reports the outcome of an executed operation.
//
// The outcome always feeds the circuit breaker. When the operation's
// rule binds an anomaly metric, the completion also accumulates into
// that metric's measurement window.
func (e *Engine) Complete(operation string, success bool) {
	if e.breaker.ReportOutcome(operation, success) {
		e.metrics.RecordBreakerTrip(operation)
		e.emitBreakerTrip(operation, breaker.AutoTripReason, "")
		e.persistBreaker(operation)
	}

	rule, ok := e.rule(operation)
	if !ok || rule.Metric == "" {
		return
	}
	if e.anomaly.Accumulate(rule.Metric, 1) {
		e.flagAnomaly(rule.Metric, operation)
	}
}

// ObserveMetric records a direct measurement against a metric's
// baseline and reports whether it is anomalous. Anomalies are
// advisory: the observation is recorded either way.
func (e *Engine) ObserveMetric(metric string, value float64) bool {
	flagged := e.anomaly.Observe(metric, value)
	if flagged {
		e.flagAnomaly(metric, "")
	} else {
		e.persistAnomaly(metric)
	}
	return flagged
}

// ActivatePause halts all operations under a scope for the given
// duration. Durations beyond the system-wide cap are rejected, never
// clamped.
func (e *Engine) ActivatePause(scope, reason string, duration time.Duration, actor string) error {
	if err := e.pause.Activate(scope, reason, duration, actor); err != nil {
		return err
	}
	e.metrics.SetPauseActive(scope, true)
	e.logger.Warn("emergency pause activated",
		"scope", scope,
		"reason", reason,
		"duration", duration,
		"actor", actor)

	ev := events.New(events.TypeEmergencyPauseActivated, e.clock.Now())
	ev.Scope = scope
	ev.Actor = actor
	ev.Reason = reason
	ev.Fields = map[string]any{"duration": duration.String()}
	e.emit(ev)

	e.persistPause(scope)
	return nil
}

// DeactivatePause lifts the pause on a scope. Deactivating a scope
// that is not paused, or whose pause has already expired, is an error.
func (e *Engine) DeactivatePause(scope, actor string) error {
	if err := e.pause.Deactivate(scope); err != nil {
		return err
	}
	e.metrics.SetPauseActive(scope, false)
	e.logger.Info("emergency pause deactivated", "scope", scope, "actor", actor)

	ev := events.New(events.TypeEmergencyPauseDeactivated, e.clock.Now())
	ev.Scope = scope
	ev.Actor = actor
	e.emit(ev)

	e.deleteState(storage.KindPause, scope)
	return nil
}

// PauseStatus reports the pause state of a scope. Expiry is computed
// at check time.
func (e *Engine) PauseStatus(scope string) pause.Status {
	return e.pause.Check(scope)
}

// ProposeTimelock schedules an administrative action for delayed
// execution.
func (e *Engine) ProposeTimelock(operationHash string, delay time.Duration, description, proposer string) (*timelock.Proposal, error) {
	p, err := e.timelock.Propose(operationHash, delay, description, proposer)
	if err != nil {
		return nil, err
	}

	ev := events.New(events.TypeTimelockProposed, e.clock.Now())
	ev.Operation = operationHash
	ev.Actor = proposer
	ev.Reason = description
	ev.Fields = map[string]any{
		"proposal_id":    p.ID,
		"execution_time": p.ExecutionTime,
	}
	e.emit(ev)

	e.persistTimelock(operationHash)
	return p, nil
}

// ExecuteTimelock executes a matured proposal. Execution is exactly
// once within the window; early, late and repeated attempts fail with
// distinct errors.
func (e *Engine) ExecuteTimelock(operationHash string) (*timelock.Proposal, error) {
	p, err := e.timelock.Execute(operationHash)
	if err != nil {
		return nil, err
	}

	ev := events.New(events.TypeTimelockExecuted, e.clock.Now())
	ev.Operation = operationHash
	ev.Fields = map[string]any{"proposal_id": p.ID}
	e.emit(ev)

	e.persistTimelock(operationHash)
	return p, nil
}

// TimelockProposal returns a copy of the proposal stored under the
// hash, or nil.
func (e *Engine) TimelockProposal(operationHash string) *timelock.Proposal {
	return e.timelock.Get(operationHash)
}

// PendingTimelocks lists proposals that are neither executed nor
// expired.
func (e *Engine) PendingTimelocks() []*timelock.Proposal {
	return e.timelock.Pending()
}

// TripBreaker trips an operation's breaker administratively.
func (e *Engine) TripBreaker(operation, reason, actor string) {
	e.breaker.Trip(operation, reason)
	e.metrics.RecordBreakerTrip(operation)
	e.logger.Warn("circuit breaker tripped", "operation", operation, "reason", reason, "actor", actor)
	e.emitBreakerTrip(operation, reason, actor)
	e.persistBreaker(operation)
}

// ResetBreaker clears an operation's breaker administratively.
func (e *Engine) ResetBreaker(operation, actor string) {
	e.breaker.Reset(operation)
	e.metrics.RecordBreakerReset(operation)
	e.logger.Info("circuit breaker reset", "operation", operation, "actor", actor)
	e.emitBreakerReset(operation, "administrative reset")
	e.persistBreaker(operation)
}

// BreakerState returns a copy of an operation's breaker state, or nil
// if the operation has never been seen.
func (e *Engine) BreakerState(operation string) *breaker.State {
	return e.breaker.Snapshot(operation)
}

// Configure installs or replaces the rule for one operation. Invalid
// tuning is rejected, leaving the previous rule in effect.
func (e *Engine) Configure(operation string, rule OperationRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if rule.Cooldown > 0 {
		if err := e.breaker.SetCooldown(operation, rule.Cooldown); err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.rules[operation] = rule
	e.mu.Unlock()

	e.logger.Info("operation rule configured",
		"operation", operation,
		"max_requests", rule.MaxRequests,
		"window", rule.Window)
	return nil
}

// ConfigureBreaker replaces the engine-wide breaker tuning.
func (e *Engine) ConfigureBreaker(cfg breaker.Config) error {
	if err := e.breaker.Configure(cfg); err != nil {
		return err
	}
	e.logger.Info("breaker tuning configured",
		"min_sample", cfg.MinSample,
		"failure_threshold_pct", cfg.FailureThresholdPct,
		"cooldown", cfg.Cooldown)
	return nil
}

// SetRules atomically replaces the whole rule table, validating every
// entry first. Used by configuration hot reload.
func (e *Engine) SetRules(rules map[string]OperationRule) error {
	next := make(map[string]OperationRule, len(rules))
	for op, rule := range rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("operation %q: %w", op, err)
		}
		next[op] = rule
	}
	for op, rule := range next {
		if rule.Cooldown > 0 {
			if err := e.breaker.SetCooldown(op, rule.Cooldown); err != nil {
				return fmt.Errorf("operation %q: %w", op, err)
			}
		}
	}

	e.mu.Lock()
	e.rules = next
	e.mu.Unlock()

	e.logger.Info("operation rules replaced", "count", len(next))
	return nil
}

// Rule returns the rule configured for an operation.
func (e *Engine) Rule(operation string) (OperationRule, bool) {
	return e.rule(operation)
}

// Rules returns a copy of the rule table.
func (e *Engine) Rules() map[string]OperationRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]OperationRule, len(e.rules))
	for op, rule := range e.rules {
		out[op] = rule
	}
	return out
}

func (e *Engine) rule(operation string) (OperationRule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rule, ok := e.rules[operation]
	return rule, ok
}

func (e *Engine) flagAnomaly(metric, operation string) {
	e.metrics.RecordAnomaly(metric)
	e.logger.Warn("anomaly detected", "metric", metric)

	ev := events.New(events.TypeAnomalyDetected, e.clock.Now())
	ev.Operation = operation
	ev.Reason = fmt.Sprintf("metric %q exceeded baseline threshold", metric)
	if s := e.anomaly.Snapshot(metric); s != nil {
		ev.Fields = map[string]any{
			"metric":   metric,
			"baseline": s.Baseline,
			"current":  s.Current,
		}
	}
	e.emit(ev)

	e.persistAnomaly(metric)
}

func (e *Engine) emitBreakerTrip(operation, reason, actor string) {
	ev := events.New(events.TypeCircuitBreakerTripped, e.clock.Now())
	ev.Operation = operation
	ev.Reason = reason
	ev.Actor = actor
	e.emit(ev)
}

func (e *Engine) emitBreakerReset(operation, reason string) {
	ev := events.New(events.TypeCircuitBreakerReset, e.clock.Now())
	ev.Operation = operation
	ev.Reason = reason
	e.emit(ev)
}

func (e *Engine) emit(ev events.Event) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(ev)
}

// ==========================================================================
// Persistence
// ==========================================================================

func (e *Engine) persistBreaker(operation string) {
	if s := e.breaker.Snapshot(operation); s != nil {
		e.persistState(storage.KindBreaker, operation, s)
	}
}

func (e *Engine) persistPause(scope string) {
	if s := e.pause.Snapshot(scope); s != nil {
		e.persistState(storage.KindPause, scope, s)
	}
}

func (e *Engine) persistTimelock(operationHash string) {
	if p := e.timelock.Get(operationHash); p != nil {
		e.persistState(storage.KindTimelock, operationHash, p)
	}
}

func (e *Engine) persistAnomaly(metric string) {
	if s := e.anomaly.Snapshot(metric); s != nil {
		e.persistState(storage.KindAnomaly, metric, s)
	}
}

// persistState writes one guard snapshot best-effort: failures are
// logged, never surfaced to the hot path.
func (e *Engine) persistState(kind storage.Kind, key string, snapshot any) {
	if e.store == nil {
		return
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		e.logger.Error("marshaling guard state", "kind", kind, "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	err = e.store.Save(ctx, &storage.Record{
		Kind:      kind,
		Key:       key,
		Payload:   payload,
		UpdatedAt: e.clock.Now(),
	})
	if err != nil {
		e.logger.Error("persisting guard state", "kind", kind, "key", key, "error", err)
	}
}

func (e *Engine) deleteState(kind storage.Kind, key string) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.store.Delete(ctx, kind, key); err != nil {
		e.logger.Error("deleting guard state", "kind", kind, "key", key, "error", err)
	}
}

// restore reloads persisted guard state. Individual corrupt records
// are skipped with a log line; a failing backend aborts startup.
func (e *Engine) restore() error {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	recs, err := e.store.List(ctx, storage.KindBreaker)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		var s breaker.State
		if err := json.Unmarshal(rec.Payload, &s); err != nil {
			e.logger.Warn("skipping corrupt breaker record", "key", rec.Key, "error", err)
			continue
		}
		e.breaker.Restore(&s)
	}

	recs, err = e.store.List(ctx, storage.KindPause)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		var s pause.State
		if err := json.Unmarshal(rec.Payload, &s); err != nil {
			e.logger.Warn("skipping corrupt pause record", "key", rec.Key, "error", err)
			continue
		}
		e.pause.Restore(&s)
	}

	recs, err = e.store.List(ctx, storage.KindTimelock)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		var p timelock.Proposal
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			e.logger.Warn("skipping corrupt timelock record", "key", rec.Key, "error", err)
			continue
		}
		e.timelock.Restore(&p)
	}

	recs, err = e.store.List(ctx, storage.KindAnomaly)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		var s anomaly.Series
		if err := json.Unmarshal(rec.Payload, &s); err != nil {
			e.logger.Warn("skipping corrupt anomaly record", "key", rec.Key, "error", err)
			continue
		}
		e.anomaly.Restore(&s)
	}
	return nil
}
