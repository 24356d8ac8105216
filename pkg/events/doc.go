// Package events carries the observability events emitted by the
// guard engine: rate-limit denials, breaker trips and resets, pause
// activations, anomaly flags and timelock transitions.
//
// Events are advisory. The Bus publishes asynchronously and never
// blocks the admission hot path: a slow or absent subscriber causes
// events to be dropped (and counted), not admission checks to stall.
//
// An optional Audit sink appends every event to a SQLite table for
// after-the-fact review.
package events
