// Package session wires the long-lived background collaborators around
// one editor process: the debounced filesystem watcher feeding
// auto-revert, the periodic recovery snapshotter, and the session lock
// that lets the next start detect a crash. The editing engine knows
// nothing of these; they drive it purely through its public operations.
package session

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/ninelines/scribe/internal/app"
	"github.com/ninelines/scribe/internal/engine/buffer"
	"github.com/ninelines/scribe/internal/recovery"
	watcher "github.com/ninelines/scribe/internal/watch"
)

// Config carries the session-scoped settings.
type Config struct {
	// RecoveryDir is the directory holding session.lock and snapshots.
	RecoveryDir string
	// RecoveryInterval is how often pending buffers are snapshotted.
	RecoveryInterval time.Duration
	// WatchDebounce is the quiet window applied to filesystem notices.
	WatchDebounce time.Duration
}

// DefaultConfig returns the stock intervals: 2 s snapshots, 500 ms watch
// debounce (wide enough to defeat mtime granularity and double-fire).
func DefaultConfig(recoveryDir string) Config {
	return Config{
		RecoveryDir:      recoveryDir,
		RecoveryInterval: recovery.DefaultInterval,
		WatchDebounce:    500 * time.Millisecond,
	}
}

// Session owns the background goroutines for one editor process.
type Session struct {
	mu      sync.Mutex
	editor  *app.Editor
	store   *recovery.Store
	watch   *watcher.DebouncedWatcher
	logger  *app.Logger
	cfg     Config
	cancel  context.CancelFunc
	crashed bool
	prev    recovery.SessionLock
}

// New builds a session over editor. It detects whether the previous
// session crashed (before taking the lock over) and acquires the session
// lock for this process.
func New(editor *app.Editor, cfg Config, logger *app.Logger) (*Session, error) {
	if logger == nil {
		logger = app.NullLogger
	}
	store, err := recovery.NewStore(cfg.RecoveryDir, logger)
	if err != nil {
		return nil, err
	}
	crashed, prev, err := store.DetectCrash()
	if err != nil {
		return nil, err
	}
	if err := store.AcquireSession(); err != nil {
		return nil, err
	}

	fsw, err := watcher.NewFSNotifyWatcher()
	if err != nil {
		return nil, err
	}
	debounce := cfg.WatchDebounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Session{
		editor:  editor,
		store:   store,
		watch:   watcher.NewDebouncedWatcher(fsw, debounce),
		logger:  logger.WithComponent("session"),
		cfg:     cfg,
		crashed: crashed,
		prev:    prev,
	}, nil
}

// CrashDetected reports whether the previous session exited uncleanly,
// and its lock record if so.
func (s *Session) CrashDetected() (bool, recovery.SessionLock) {
	return s.crashed, s.prev
}

// RecoveryOutcomes loads every snapshot left behind by a crashed session.
// Callers present these to the user; accepted chunk outcomes are applied
// as events atop the re-opened buffer, then discarded via DiscardRecovery.
func (s *Session) RecoveryOutcomes() ([]recovery.Outcome, error) {
	ids, err := s.store.List()
	if err != nil {
		return nil, err
	}
	outcomes := make([]recovery.Outcome, 0, len(ids))
	for _, id := range ids {
		outcomes = append(outcomes, s.store.Load(id))
	}
	return outcomes, nil
}

// DiscardRecovery deletes one snapshot after the user accepted or
// rejected it.
func (s *Session) DiscardRecovery(id string) error {
	return s.store.Discard(id)
}

// Start launches the watch loop and the recovery snapshotter. They run
// until Close.
func (s *Session) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go s.watchLoop(ctx)

	snap := recovery.NewSnapshotter(s.store, s.cfg.RecoveryInterval, s.collectTargets, s.logger)
	go snap.Run(ctx)
}

// WatchDocument registers a document's backing file with the watcher.
func (s *Session) WatchDocument(path string) error {
	return s.watch.Watch(path)
}

// UnwatchDocument removes a document's backing file from the watcher.
func (s *Session) UnwatchDocument(path string) error {
	return s.watch.Unwatch(path)
}

func (s *Session) watchLoop(ctx context.Context) {
	events := s.watch.Events()
	errs := s.watch.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleWatchEvent(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			s.logger.Warn("watcher error: %v", err)
		}
	}
}

// handleWatchEvent routes one debounced notice into the auto-revert rule.
// A rename arrives as change-plus-reopen: the watch on the old inode is
// dropped by the kernel, so re-register before reconciling.
func (s *Session) handleWatchEvent(ev watcher.Event) {
	if ev.Op.Has(watcher.OpRename) || ev.Op.Has(watcher.OpCreate) {
		if err := s.watch.Watch(ev.Path); err != nil {
			s.logger.Debug("re-watch %s: %v", ev.Path, err)
		}
	}
	outcome, err := s.editor.HandleFileChanged(ev.Path)
	if err != nil {
		s.logger.Warn("auto-revert %s: %v", ev.Path, err)
		return
	}
	s.logger.Debug("auto-revert %s: %d", ev.Path, outcome)
}

// collectTargets gathers every open document with pending writes into
// snapshot targets for the recovery ticker.
func (s *Session) collectTargets() []recovery.Target {
	var targets []recovery.Target
	for _, id := range s.editor.DocumentIDs() {
		state, ok := s.editor.Get(id)
		if !ok || !state.RecoveryPending() {
			continue
		}

		recID, ok := s.editor.RecoveryID(id)
		if !ok {
			if state.Buf.Path() != "" {
				recID = recovery.FileID(state.Buf.Path())
			} else {
				recID = recovery.ScratchID()
			}
			s.editor.SetRecoveryID(id, recID)
		}

		meta := recovery.Metadata{
			BufferName: id,
			FinalSize:  state.Buf.Len(),
		}
		if n, err := state.Buf.LineCount(); err == nil {
			meta.LineCount = n
		}
		// Only chunked buffers snapshot as regions against the original
		// file; loaded buffers (even file-backed ones) snapshot their full
		// content, recorded with OriginalFileSize 0 so Load hands back the
		// complete bytes rather than chunks to replay.
		if path := state.Buf.Path(); path != "" && state.Buf.Mode() == buffer.ModeChunked {
			if info, err := os.Stat(path); err == nil {
				meta.OriginalPath = path
				meta.OriginalFileSize = info.Size()
				meta.OriginalFileModTime = info.ModTime()
			}
		}
		targets = append(targets, recovery.Target{
			ID:     recID,
			Meta:   meta,
			Chunks: state.Buf.ModifiedChunks(),
			Done:   state.ClearRecoveryPending,
		})
	}
	return targets
}

// Close stops the background goroutines, discards every open document's
// snapshot (a clean exit owes no recovery), and releases the session
// lock.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	_ = s.watch.Close()

	for _, id := range s.editor.DocumentIDs() {
		if recID, ok := s.editor.RecoveryID(id); ok {
			if err := s.store.Discard(recID); err != nil {
				s.logger.Warn("discard recovery %s: %v", recID, err)
			}
		}
	}
	return s.store.ReleaseSession()
}
