package health

import (
	"context"
	"fmt"

	"bastion-hq/bastion/pkg/events"
	"bastion-hq/bastion/pkg/guard/storage"
)

// StorageCheck probes the guard state backend with a cheap read.
func StorageCheck(backend storage.Backend) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := backend.List(ctx, storage.KindPause); err != nil {
			return fmt.Errorf("state store unreachable: %w", err)
		}
		return nil
	}
}

// BusCheck reports the event bus as unhealthy once its drop count
// crosses the threshold. A zero threshold flags any drop.
func BusCheck(bus *events.Bus, threshold int64) CheckFunc {
	return func(context.Context) error {
		if dropped := bus.Dropped(); dropped > threshold {
			return fmt.Errorf("event bus dropped %d events", dropped)
		}
		return nil
	}
}
