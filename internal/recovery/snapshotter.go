package recovery

import (
	"context"
	"time"

	"github.com/ninelines/scribe/internal/app"
	"github.com/ninelines/scribe/internal/engine/buffer"
)

// DefaultInterval is how often the snapshotter polls buffers for pending
// writes.
const DefaultInterval = 2 * time.Second

// Target describes one buffer due for a snapshot: its recovery id, the
// metadata to record, the modified regions to persist, and a callback
// that clears the buffer's pending flag once the snapshot is on disk.
type Target struct {
	ID     string
	Meta   Metadata
	Chunks []buffer.RecoveryChunk
	Done   func()
}

// Snapshotter periodically asks the editor for buffers with pending
// writes and snapshots each one. It runs on its own goroutine and touches
// editor state only through the collect callback, which the caller makes
// safe (the callback reads a consistent snapshot of each due buffer).
type Snapshotter struct {
	store    *Store
	interval time.Duration
	collect  func() []Target
	logger   *app.Logger
}

// NewSnapshotter creates a snapshotter over store. collect is called on
// every tick and returns the buffers due for snapshotting; interval <= 0
// selects DefaultInterval.
func NewSnapshotter(store *Store, interval time.Duration, collect func() []Target, logger *app.Logger) *Snapshotter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = app.NullLogger
	}
	return &Snapshotter{store: store, interval: interval, collect: collect, logger: logger}
}

// Run ticks until ctx is cancelled. Snapshot failures are logged and
// retried on the next tick; a failing disk must not take down the editor.
func (sn *Snapshotter) Run(ctx context.Context) {
	ticker := time.NewTicker(sn.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sn.tick()
		}
	}
}

func (sn *Snapshotter) tick() {
	for _, target := range sn.collect() {
		if err := sn.store.Snapshot(target.ID, target.Meta, target.Chunks); err != nil {
			sn.logger.Error("recovery snapshot for %s failed: %v", target.ID, err)
			continue
		}
		if target.Done != nil {
			target.Done()
		}
	}
}
