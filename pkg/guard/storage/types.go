package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Kind partitions guard state records by owning component.
type Kind string

const (
	// KindBreaker holds per-operation circuit breaker snapshots.
	KindBreaker Kind = "breaker"

	// KindPause holds per-scope emergency pause snapshots.
	KindPause Kind = "pause"

	// KindTimelock holds timelock proposals keyed by operation hash.
	KindTimelock Kind = "timelock"

	// KindAnomaly holds per-metric anomaly baselines.
	KindAnomaly Kind = "anomaly"
)

// Record is one persisted guard state entry.
type Record struct {
	// Kind identifies the owning guard.
	Kind Kind

	// Key is the guard-specific key: operation name, scope name,
	// operation hash or metric name.
	Key string

	// Payload is the JSON-encoded guard snapshot.
	Payload json.RawMessage

	// UpdatedAt is when this record was last written.
	UpdatedAt time.Time

	// CreatedAt is when this record was first written.
	CreatedAt time.Time
}

// Backend is the persistence interface for guard state.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Save upserts a record. An existing (kind, key) entry is replaced.
	Save(ctx context.Context, rec *Record) error

	// Load retrieves a record, or nil if none exists.
	Load(ctx context.Context, kind Kind, key string) (*Record, error)

	// List returns all records of a kind. Empty slice if none exist.
	List(ctx context.Context, kind Kind) ([]*Record, error)

	// Delete removes a record. No-op if it does not exist.
	Delete(ctx context.Context, kind Kind, key string) error

	// Cleanup removes records not updated since olderThan and returns
	// the number deleted.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources. The backend must not be used
	// afterwards.
	Close() error
}
