package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ============================================================================
// Watcher Tests
// ============================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfigFile(t, `
guards:
  operations:
    mint:
      max_requests: 10
      window: 1m
`)

	w, err := NewWatcher(path, discardLogger())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	reloaded := make(chan *Config, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Watch(ctx, func(cfg *Config) error {
			reloaded <- cfg
			return nil
		})
	}()

	// Give the watch loop a moment to register before writing.
	time.Sleep(100 * time.Millisecond)

	updated := `
guards:
  operations:
    mint:
      max_requests: 99
      window: 1m
`
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("rewriting config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if got := cfg.Guards.Operations["mint"].MaxRequests; got != 99 {
			t.Errorf("reloaded mint.max_requests = %d, want 99", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcher_InvalidReloadSkipped(t *testing.T) {
	path := writeConfigFile(t, "")

	w, err := NewWatcher(path, discardLogger())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	var calls atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Watch(ctx, func(*Config) error {
			calls.Add(1)
			return nil
		})
	}()
	time.Sleep(100 * time.Millisecond)

	// A file that fails validation must not reach the callback.
	if err := os.WriteFile(path, []byte("storage:\n  backend: bogus\n"), 0o600); err != nil {
		t.Fatalf("rewriting config: %v", err)
	}
	time.Sleep(500 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("callback invoked %d times for invalid config, want 0", n)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	path := writeConfigFile(t, "")
	w, err := NewWatcher(path, discardLogger())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = w.Watch(context.Background(), func(*Config) error { return nil })
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not exit after Stop")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWatcher_ShouldProcessEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	w := &Watcher{path: path}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{
			name:  "write to config file",
			event: fsnotify.Event{Name: path, Op: fsnotify.Write},
			want:  true,
		},
		{
			name:  "create of config file",
			event: fsnotify.Event{Name: path, Op: fsnotify.Create},
			want:  true,
		},
		{
			name:  "chmod ignored",
			event: fsnotify.Event{Name: path, Op: fsnotify.Chmod},
			want:  false,
		},
		{
			name:  "sibling file ignored",
			event: fsnotify.Event{Name: filepath.Join(dir, "other.yaml"), Op: fsnotify.Write},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.shouldProcessEvent(tt.event); got != tt.want {
				t.Errorf("shouldProcessEvent(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

// ============================================================================
// Debouncer Tests
// ============================================================================

func TestDebouncer_CollapsesBursts(t *testing.T) {
	d := newDebouncer(50 * time.Millisecond)
	defer d.stop()

	var fired atomic.Int64
	for i := 0; i < 10; i++ {
		d.trigger(func() { fired.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Errorf("callback fired %d times for one burst, want 1", n)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := newDebouncer(50 * time.Millisecond)

	var fired atomic.Int64
	d.trigger(func() { fired.Add(1) })
	d.stop()

	time.Sleep(150 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("callback fired %d times after stop, want 0", n)
	}
}
