// Package storage persists guard state snapshots.
//
// Guards hold their authoritative state in memory; the storage
// backend is a durability layer so breaker trips, active pauses and
// pending timelock proposals survive restarts. Records are simple
// (kind, key) entries with a JSON payload, written asynchronously by
// the engine after mutations and restored at startup.
//
// Two backends are provided: MemoryBackend (default, no durability)
// and SQLiteBackend. A Pruner with an optional cron Scheduler reclaims
// records that have been inactive past the retention period.
package storage
