// Package monitor maintains per-file change history for the watched trees.
// It computes content checksums, asks the similarity service for a drift
// score on every real change, applies the significance filter, and prunes
// stale records on a schedule.
package monitor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/curatorhq/curator/internal/config"
	"github.com/curatorhq/curator/internal/docstore"
	"github.com/curatorhq/curator/internal/similarity"
)

// Engine is the file monitor & sync engine. One logical loop inside the
// daemon drives it; Observe calls are serialized per path while independent
// paths proceed concurrently.
type Engine struct {
	store      docstore.Store
	sim        similarity.Service
	syncCfg    config.SyncConfig
	thresholds config.Thresholds
	priorities map[string]float64 // priority directory -> weight

	locks pathLocks

	// Last observed content per path, kept so the next change can be
	// scored against it. Lost on restart; the first observation after a
	// restart scores zero drift, same as a brand-new file.
	contentMu sync.Mutex
	content   map[string][]byte

	lastEventMu sync.Mutex
	lastEventAt time.Time
}

// NewEngine wires the engine to its collaborators. The SyncConfig must
// already be validated.
func NewEngine(store docstore.Store, sim similarity.Service, syncCfg config.SyncConfig,
	thresholds config.Thresholds, priorities map[string]float64) *Engine {
	return &Engine{
		store:      store,
		sim:        sim,
		syncCfg:    syncCfg,
		thresholds: thresholds,
		priorities: priorities,
		content:    make(map[string][]byte),
	}
}

// Checksum returns the hex-encoded SHA-256 of content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Observe records the current state of path. Unchanged content is a no-op;
// changed content appends one (mod time, drift score) pair to the record.
// Returns the updated record, or nil when nothing changed.
func (e *Engine) Observe(ctx context.Context, path string) (*docstore.FileRecord, error) {
	unlock := e.locks.lock(path)
	defer unlock()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // deletion is handled by the prune pass
		}
		return nil, fmt.Errorf("cannot stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, nil
	}

	content, err := os.ReadFile(path) // #nosec G304 - watched tree
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	checksum := Checksum(content)
	now := time.Now().UTC()

	rec, err := e.store.Get(ctx, path)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		dir, priority := e.owningDirectory(path)
		rec = &docstore.FileRecord{
			Path:      path,
			Checksum:  checksum,
			SizeBytes: info.Size(),
			ModTimes:  []time.Time{now},
			Angles:    []float64{0.0}, // first observation is zero drift
			Directory: dir,
			Priority:  priority,
		}
	case err != nil:
		return nil, err
	case rec.Checksum == checksum:
		return nil, nil // touched but unchanged
	default:
		prev := e.previousContent(path)
		angle, err := e.sim.Score(ctx, prev, content)
		if err != nil {
			// Leave the record untouched so a later Observe retries
			// against the same prior state.
			return nil, err
		}
		rec.Checksum = checksum
		rec.SizeBytes = info.Size()
		rec.ModTimes = append(rec.ModTimes, now)
		rec.Angles = append(rec.Angles, angle)
	}

	if err := e.store.Put(ctx, rec); err != nil {
		return nil, err
	}
	e.rememberContent(path, content)
	e.markEvent(now)
	return rec, nil
}

// Interesting reports whether the record's latest change passes the
// significance filter. Thresholds set to zero disable their check.
func (e *Engine) Interesting(rec *docstore.FileRecord) bool {
	latest, ok := rec.LatestAngle()
	if !ok {
		return false
	}

	t := e.thresholds
	if t.MinAngle > 0 && abs(latest) < t.MinAngle {
		return false
	}
	if t.MinAngleChange > 0 {
		if prev, ok := rec.PreviousAngle(); ok && abs(latest-prev) < t.MinAngleChange {
			return false
		}
	}
	if t.MaxAge > 0 {
		if mod, ok := rec.LatestModTime(); ok && time.Since(mod) > t.MaxAge {
			return false
		}
	}
	if t.MinBytes > 0 && rec.SizeBytes < t.MinBytes {
		return false
	}
	return true
}

// InterestingChanges returns the significance-filtered records, ordered by
// newest change first.
func (e *Engine) InterestingChanges(ctx context.Context, limit int) ([]*docstore.FileRecord, error) {
	all, err := e.store.Find(ctx, docstore.Filter{})
	if err != nil {
		return nil, err
	}

	var out []*docstore.FileRecord
	for _, rec := range all {
		if e.Interesting(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, _ := out[i].LatestModTime()
		tj, _ := out[j].LatestModTime()
		return ti.After(tj)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PruneStats reports what a prune pass removed.
type PruneStats struct {
	RemovedMissing     int `json:"removed_missing"`
	RemovedLowPriority int `json:"removed_low_priority"`
	Evicted            int `json:"evicted"`
	Remaining          int `json:"remaining"`
}

// Prune deletes records for paths that no longer exist, drops records below
// the priority floor, and evicts the lowest-priority records down to
// max_documents. Holds no lock that blocks Observe on unrelated paths.
func (e *Engine) Prune(ctx context.Context) (PruneStats, error) {
	var stats PruneStats

	all, err := e.store.Find(ctx, docstore.Filter{})
	if err != nil {
		return stats, err
	}

	for _, rec := range all {
		if _, err := os.Stat(rec.Path); os.IsNotExist(err) {
			if err := e.store.Delete(ctx, rec.Path); err != nil {
				return stats, err
			}
			e.forgetContent(rec.Path)
			stats.RemovedMissing++
		}
	}

	if e.syncCfg.MinPriority > 0 {
		n, err := e.store.DeleteWhere(ctx, docstore.Filter{MaxPriorityBelow: e.syncCfg.MinPriority})
		if err != nil {
			return stats, err
		}
		stats.RemovedLowPriority = n
	}

	count, err := e.store.Count(ctx)
	if err != nil {
		return stats, err
	}

	if e.syncCfg.MaxDocuments > 0 && count > e.syncCfg.MaxDocuments {
		remaining, err := e.store.Find(ctx, docstore.Filter{})
		if err != nil {
			return stats, err
		}
		// The bound comes from this Find, not the earlier Count: records
		// may have vanished between the two store calls.
		overflow := len(remaining) - e.syncCfg.MaxDocuments
		if overflow > 0 {
			// Lowest priority goes first; among equals, stalest first.
			sort.Slice(remaining, func(i, j int) bool {
				if remaining[i].Priority != remaining[j].Priority {
					return remaining[i].Priority < remaining[j].Priority
				}
				ti, _ := remaining[i].LatestModTime()
				tj, _ := remaining[j].LatestModTime()
				return ti.Before(tj)
			})
			for _, rec := range remaining[:overflow] {
				if err := e.store.Delete(ctx, rec.Path); err != nil {
					return stats, err
				}
				e.forgetContent(rec.Path)
				stats.Evicted++
			}
		}
	}

	stats.Remaining, err = e.store.Count(ctx)
	if err != nil {
		return stats, err
	}
	return stats, nil
}

// Nearest delegates a nearest-neighbor lookup to the similarity service.
func (e *Engine) Nearest(ctx context.Context, content []byte, k int) ([]similarity.Match, error) {
	return e.sim.Nearest(ctx, content, k)
}

// RecordCount returns the number of tracked files.
func (e *Engine) RecordCount(ctx context.Context) (int, error) {
	return e.store.Count(ctx)
}

// LastEventAt returns the time of the most recent accepted observation.
func (e *Engine) LastEventAt() (time.Time, bool) {
	e.lastEventMu.Lock()
	defer e.lastEventMu.Unlock()
	return e.lastEventAt, !e.lastEventAt.IsZero()
}

// owningDirectory resolves the deepest configured priority directory that
// contains path.
func (e *Engine) owningDirectory(path string) (string, float64) {
	var bestDir string
	var bestPriority float64
	for dir, priority := range e.priorities {
		if isUnder(path, dir) && len(dir) > len(bestDir) {
			bestDir = dir
			bestPriority = priority
		}
	}
	if bestDir == "" {
		return filepath.Dir(path), 0
	}
	return bestDir, bestPriority
}

func (e *Engine) previousContent(path string) []byte {
	e.contentMu.Lock()
	defer e.contentMu.Unlock()
	return e.content[path]
}

func (e *Engine) rememberContent(path string, content []byte) {
	e.contentMu.Lock()
	defer e.contentMu.Unlock()
	e.content[path] = content
}

func (e *Engine) forgetContent(path string) {
	e.contentMu.Lock()
	defer e.contentMu.Unlock()
	delete(e.content, path)
}

func (e *Engine) markEvent(t time.Time) {
	e.lastEventMu.Lock()
	defer e.lastEventMu.Unlock()
	if t.After(e.lastEventAt) {
		e.lastEventAt = t
	}
}

func isUnder(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// pathLocks serializes updates per path without a lock shared across paths.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (p *pathLocks) lock(path string) (unlock func()) {
	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[string]*sync.Mutex)
	}
	l, ok := p.locks[path]
	if !ok {
		l = &sync.Mutex{}
		p.locks[path] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
