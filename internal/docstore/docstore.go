// Package docstore defines the interface for change-history storage backends.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates no record exists for the requested path.
var ErrNotFound = errors.New("record not found")

// ErrUnavailable wraps transient backend failures. Callers treat it as
// retryable; the daemon logs a warning and tries again on the next cycle.
var ErrUnavailable = errors.New("document store unavailable")

// FileRecord tracks the observed change history of one watched file.
// Keyed by absolute path. ModTimes and Angles are append-only, newest last,
// and always the same length.
type FileRecord struct {
	ID        string      `json:"id"`
	Path      string      `json:"path"`
	Checksum  string      `json:"checksum"`
	SizeBytes int64       `json:"size_bytes"`
	ModTimes  []time.Time `json:"mod_time_list"`
	Angles    []float64   `json:"angle_list"`
	Directory string      `json:"directory"`
	Priority  float64     `json:"priority"`
}

// Validate enforces the record invariants.
func (r *FileRecord) Validate() error {
	if r.Path == "" {
		return fmt.Errorf("record has empty path")
	}
	if len(r.ModTimes) != len(r.Angles) {
		return fmt.Errorf("record %s: mod_time_list/angle_list length mismatch (%d != %d)",
			r.Path, len(r.ModTimes), len(r.Angles))
	}
	return nil
}

// LatestAngle returns the most recent drift score, or 0 with false when the
// record has no observations.
func (r *FileRecord) LatestAngle() (float64, bool) {
	if len(r.Angles) == 0 {
		return 0, false
	}
	return r.Angles[len(r.Angles)-1], true
}

// PreviousAngle returns the second most recent drift score.
func (r *FileRecord) PreviousAngle() (float64, bool) {
	if len(r.Angles) < 2 {
		return 0, false
	}
	return r.Angles[len(r.Angles)-2], true
}

// LatestModTime returns the most recent observed modification time.
func (r *FileRecord) LatestModTime() (time.Time, bool) {
	if len(r.ModTimes) == 0 {
		return time.Time{}, false
	}
	return r.ModTimes[len(r.ModTimes)-1], true
}

// Filter selects records for Find and DeleteWhere. Zero values disable a
// clause; clauses combine with AND.
type Filter struct {
	PathPrefix       string
	MaxPriorityBelow float64 // match records with priority strictly below
	ModifiedBefore   time.Time
	Paths            []string // exact-path set; empty means all
}

// Store is the capability interface consumed by the monitor engine and the
// broker handlers. Implementations must be safe for concurrent use.
type Store interface {
	// Put inserts or replaces the record keyed by its path.
	Put(ctx context.Context, rec *FileRecord) error
	// Get returns the record for an absolute path, or ErrNotFound.
	Get(ctx context.Context, path string) (*FileRecord, error)
	// Delete removes the record for a path. Missing records are not an error.
	Delete(ctx context.Context, path string) error
	// Find returns records matching the filter, ordered by path.
	Find(ctx context.Context, f Filter) ([]*FileRecord, error)
	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
	// DeleteWhere removes all records matching the filter and reports how
	// many were removed.
	DeleteWhere(ctx context.Context, f Filter) (int, error)
	// Close releases backend resources.
	Close() error
}
