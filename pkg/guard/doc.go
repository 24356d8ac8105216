// Package guard composes admission guards behind a single policy engine.
//
// # Overview
//
// The guard package decides, per call, whether a subject may perform an
// operation right now. Five guards cooperate:
//
//   - ratelimit: fixed-quota admission windows per subject and operation
//   - breaker: failure-rate circuit breaking per operation
//   - pause: scope-level emergency kill switch
//   - timelock: delayed execution of administrative actions
//   - anomaly: baseline-relative spike detection per metric
//
// # Architecture
//
// The Engine owns all five guards and their state; callers never touch
// guard state directly. Authorize runs the hot path in fixed order —
// emergency pause, circuit breaker, rate limiter — short-circuiting on
// the first denial, so a blocked call never consumes quota further down
// the chain. Complete feeds outcomes back into the breaker and the
// anomaly detector. The timelock governor sits outside the hot path and
// gates administrative changes only.
//
// # Usage
//
//	engine, err := guard.New(guard.Config{
//	    Rules: map[string]guard.OperationRule{
//	        "register": {MaxRequests: 3, Window: time.Minute},
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//
//	decision := engine.Authorize("payments", "user-1", "register")
//	if !decision.Allowed {
//	    return decision.Err("payments", "user-1", "register")
//	}
//	// ... perform the operation ...
//	engine.Complete("register", err == nil)
//
// # Thread Safety
//
// All Engine methods are safe for concurrent use. Guard state is locked
// per key (per operation, per scope, per subject+operation pair) so
// unrelated traffic never serializes.
package guard
