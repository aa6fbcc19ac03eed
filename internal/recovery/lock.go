package recovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/ninelines/scribe/internal/engine/errs"
)

const lockFileName = "session.lock"

// SessionLock is the on-disk record of the process holding the recovery
// directory.
type SessionLock struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

func (s *Store) lockPath() string {
	return filepath.Join(s.dir, lockFileName)
}

// AcquireSession writes this process's session lock, replacing any stale
// one. Call DetectCrash first: acquiring overwrites the evidence of a
// previous unclean exit.
func (s *Store) AcquireSession() error {
	lock := SessionLock{PID: os.Getpid(), StartedAt: time.Now().UTC()}
	data, err := json.Marshal(&lock)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.lockPath(), data, 0o600); err != nil {
		return &errs.IoError{Path: s.lockPath(), Cause: err}
	}
	return nil
}

// ReleaseSession removes the session lock on clean shutdown.
func (s *Store) ReleaseSession() error {
	if err := os.Remove(s.lockPath()); err != nil && !os.IsNotExist(err) {
		return &errs.IoError{Path: s.lockPath(), Cause: err}
	}
	return nil
}

// DetectCrash reports whether a previous session died uncleanly: its lock
// file is still present and its recorded process is no longer alive. A
// present lock with a live process means another editor instance owns the
// directory.
func (s *Store) DetectCrash() (crashed bool, prev SessionLock, err error) {
	data, err := os.ReadFile(s.lockPath())
	if os.IsNotExist(err) {
		return false, SessionLock{}, nil
	}
	if err != nil {
		return false, SessionLock{}, &errs.IoError{Path: s.lockPath(), Cause: err}
	}
	if err := json.Unmarshal(data, &prev); err != nil {
		// An unreadable lock is treated as a crash: the chunk files are
		// still intact and worth offering.
		return true, SessionLock{}, nil
	}
	return !processAlive(prev.PID), prev, nil
}
