// Package memory implements the docstore interface using in-memory maps.
// Used as the swappable test double for the monitor engine and broker tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/curatorhq/curator/internal/docstore"
)

// MemoryStore implements docstore.Store with a mutex-guarded map.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*docstore.FileRecord // path -> record
}

// New creates an empty in-memory store.
func New() *MemoryStore {
	return &MemoryStore{records: make(map[string]*docstore.FileRecord)}
}

func (m *MemoryStore) Put(_ context.Context, rec *docstore.FileRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Path] = copyRecord(rec)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, path string) (*docstore.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[path]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return copyRecord(rec), nil
}

func (m *MemoryStore) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, path)
	return nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

func (m *MemoryStore) Find(_ context.Context, f docstore.Filter) ([]*docstore.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*docstore.FileRecord
	for _, rec := range m.records {
		if matches(rec, f) {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (m *MemoryStore) DeleteWhere(_ context.Context, f docstore.Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for path, rec := range m.records {
		if matches(rec, f) {
			delete(m.records, path)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func matches(rec *docstore.FileRecord, f docstore.Filter) bool {
	if f.PathPrefix != "" && !strings.HasPrefix(rec.Path, f.PathPrefix) {
		return false
	}
	if f.MaxPriorityBelow > 0 && rec.Priority >= f.MaxPriorityBelow {
		return false
	}
	if !f.ModifiedBefore.IsZero() {
		latest, ok := rec.LatestModTime()
		if !ok || !latest.Before(f.ModifiedBefore) {
			return false
		}
	}
	if len(f.Paths) > 0 {
		found := false
		for _, p := range f.Paths {
			if p == rec.Path {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func copyRecord(rec *docstore.FileRecord) *docstore.FileRecord {
	dup := *rec
	dup.ModTimes = append([]time.Time(nil), rec.ModTimes...)
	dup.Angles = append([]float64(nil), rec.Angles...)
	return &dup
}

// interface guard
var _ docstore.Store = (*MemoryStore)(nil)
