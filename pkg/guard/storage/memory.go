package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryBackend implements Backend with an in-process map. It is the
// default backend: fast, no durability, everything is lost on exit.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]*Record),
	}
}

func memKey(kind Kind, key string) string {
	return string(kind) + ":" + key
}

// Save upserts a record.
func (m *MemoryBackend) Save(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	now := time.Now()
	cp := *rec
	cp.UpdatedAt = now
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.records[memKey(rec.Kind, rec.Key)]; ok {
		cp.CreatedAt = existing.CreatedAt
	}
	m.records[memKey(rec.Kind, rec.Key)] = &cp
	return nil
}

// Load retrieves a record, or nil if none exists.
func (m *MemoryBackend) Load(ctx context.Context, kind Kind, key string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[memKey(kind, key)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// List returns all records of a kind.
func (m *MemoryBackend) List(ctx context.Context, kind Kind) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Record, 0)
	for _, rec := range m.records {
		if rec.Kind == kind {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Delete removes a record if present.
func (m *MemoryBackend) Delete(ctx context.Context, kind Kind, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, memKey(kind, key))
	return nil
}

// Cleanup removes records not updated since olderThan.
func (m *MemoryBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for k, rec := range m.records {
		if rec.UpdatedAt.Before(olderThan) {
			delete(m.records, k)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op for the memory backend.
func (m *MemoryBackend) Close() error {
	return nil
}

func validateRecord(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if rec.Kind == "" {
		return fmt.Errorf("record kind cannot be empty")
	}
	if rec.Key == "" {
		return fmt.Errorf("record key cannot be empty")
	}
	return nil
}
