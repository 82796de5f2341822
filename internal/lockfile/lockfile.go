// Package lockfile provides the single-instance daemon lock: an exclusive
// non-blocking file lock plus a PID liveness probe.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrLocked means another live process already holds the lock.
var ErrLocked = errors.New("daemon lock already held by another process")

// Info is the metadata written into the lock file for diagnostics.
type Info struct {
	PID       int       `json:"pid"`
	Home      string    `json:"home"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
}

// Lock represents a held lock. Closing it releases the lock.
type Lock struct {
	file *os.File
	path string
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Close releases the lock.
func (l *Lock) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Acquire takes an exclusive non-blocking lock on lockPath and records the
// holder's metadata in it. Returns ErrLocked when another process holds it.
func Acquire(lockPath, home, version string) (*Lock, error) {
	// #nosec G304 - controlled path under curator home
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("cannot open lock file: %w", err)
	}

	if err := flockExclusive(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrLocked) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("cannot lock file: %w", err)
	}

	info := Info{
		PID:       os.Getpid(),
		Home:      home,
		Version:   version,
		StartedAt: time.Now().UTC(),
	}
	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	_ = enc.Encode(info)
	_ = f.Sync()

	return &Lock{file: f, path: lockPath}, nil
}

// IsProcessAlive reports whether a process with the given PID exists.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return isProcessRunning(pid)
}
