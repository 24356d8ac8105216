package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// PruneConfig contains configuration for the state pruner.
type PruneConfig struct {
	// Retention is how long an inactive record is kept.
	// 0 means keep records forever (no pruning).
	Retention time.Duration

	// Schedule is a cron expression for automatic pruning.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables the
	// scheduler; Prune can still be called directly.
	Schedule string
}

// DefaultPruneConfig returns the default retention settings.
func DefaultPruneConfig() *PruneConfig {
	return &PruneConfig{
		Retention: 30 * 24 * time.Hour,
		Schedule:  "0 3 * * *",
	}
}

// Pruner reclaims guard state records that have been inactive past
// the retention period. Stale rate-limit windows and long-executed
// timelock proposals are the usual candidates; expiry itself is never
// delegated to the pruner, guards compute it on read.
type Pruner struct {
	backend Backend
	config  *PruneConfig
	logger  *slog.Logger
}

// NewPruner creates a pruner over the given backend.
func NewPruner(backend Backend, config *PruneConfig) *Pruner {
	if config == nil {
		config = DefaultPruneConfig()
	}
	return &Pruner{
		backend: backend,
		config:  config,
		logger:  slog.Default().With("component", "guard.storage.pruner"),
	}
}

// Prune deletes records older than the retention period and returns
// the number deleted. A zero retention disables pruning.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	if p.config.Retention <= 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-p.config.Retention)
	deleted, err := p.backend.Cleanup(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune failed: %w", err)
	}

	if deleted > 0 {
		p.logger.Info("pruned inactive guard state",
			"deleted_count", deleted,
			"retention", p.config.Retention,
		)
	}
	return deleted, nil
}
