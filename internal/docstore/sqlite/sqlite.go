// Package sqlite implements the docstore interface using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/curatorhq/curator/internal/config"
	"github.com/curatorhq/curator/internal/docstore"

	// SQLite driver
	_ "modernc.org/sqlite"
)

// SQLiteStore implements docstore.Store backed by a single SQLite database.
// The "database.collection" qualifier from SyncConfig maps to the table name
// <database>_<collection>.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	table  string
	closed atomic.Bool
}

// New opens (creating if needed) the SQLite store at path for the given
// "database.collection" namespace.
func New(path, databaseCollection string) (*SQLiteStore, error) {
	dbName, collection, err := config.SplitCollection(databaseCollection)
	if err != nil {
		return nil, err
	}
	table := dbName + "_" + collection

	dbPath := path
	if path == ":memory:" {
		dbPath = "file::memory:?cache=shared"
	}

	if !strings.Contains(dbPath, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// WAL for concurrent CLI readers, busy timeout instead of immediate
	// lock failures.
	connStr := dbPath
	if strings.Contains(dbPath, "?") {
		connStr += "&_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)&_time_format=sqlite"
	} else {
		connStr += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)&_time_format=sqlite"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         TEXT NOT NULL,
			path       TEXT PRIMARY KEY,
			checksum   TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			mod_times  TEXT NOT NULL,
			angles     TEXT NOT NULL,
			directory  TEXT NOT NULL,
			priority   REAL NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_%s_priority ON %s(priority);
		CREATE INDEX IF NOT EXISTS idx_%s_directory ON %s(directory);
	`, table, table, table, table, table)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: path, table: table}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Put(ctx context.Context, rec *docstore.FileRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	modTimes, err := json.Marshal(rec.ModTimes)
	if err != nil {
		return fmt.Errorf("failed to marshal mod times: %w", err)
	}
	angles, err := json.Marshal(rec.Angles)
	if err != nil {
		return fmt.Errorf("failed to marshal angles: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, path, checksum, size_bytes, mod_times, angles, directory, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum = excluded.checksum,
			size_bytes = excluded.size_bytes,
			mod_times = excluded.mod_times,
			angles = excluded.angles,
			directory = excluded.directory,
			priority = excluded.priority
	`, s.table)

	if _, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Path, rec.Checksum, rec.SizeBytes,
		string(modTimes), string(angles), rec.Directory, rec.Priority); err != nil {
		return fmt.Errorf("%w: put %s: %v", docstore.ErrUnavailable, rec.Path, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, path string) (*docstore.FileRecord, error) {
	query := fmt.Sprintf(
		`SELECT id, path, checksum, size_bytes, mod_times, angles, directory, priority
		 FROM %s WHERE path = ?`, s.table)
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, path))
	if err == sql.ErrNoRows {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", docstore.ErrUnavailable, path, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, path string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE path = ?`, s.table)
	if _, err := s.db.ExecContext(ctx, query, path); err != nil {
		return fmt.Errorf("%w: delete %s: %v", docstore.ErrUnavailable, path, err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %v", docstore.ErrUnavailable, err)
	}
	return n, nil
}

func (s *SQLiteStore) Find(ctx context.Context, f docstore.Filter) ([]*docstore.FileRecord, error) {
	where, args := buildWhere(f)
	query := fmt.Sprintf(
		`SELECT id, path, checksum, size_bytes, mod_times, angles, directory, priority
		 FROM %s%s ORDER BY path`, s.table, where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: find: %v", docstore.ErrUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var records []*docstore.FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: find scan: %v", docstore.ErrUnavailable, err)
		}
		// ModifiedBefore compares against the newest observation, which
		// lives inside the JSON column; filter here rather than in SQL.
		if !f.ModifiedBefore.IsZero() {
			latest, ok := rec.LatestModTime()
			if !ok || !latest.Before(f.ModifiedBefore) {
				continue
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: find rows: %v", docstore.ErrUnavailable, err)
	}
	return records, nil
}

func (s *SQLiteStore) DeleteWhere(ctx context.Context, f docstore.Filter) (int, error) {
	if !f.ModifiedBefore.IsZero() {
		// Route through Find so the JSON-column comparison applies.
		matches, err := s.Find(ctx, f)
		if err != nil {
			return 0, err
		}
		deleted := 0
		for _, rec := range matches {
			if err := s.Delete(ctx, rec.Path); err != nil {
				return deleted, err
			}
			deleted++
		}
		return deleted, nil
	}

	where, args := buildWhere(f)
	query := fmt.Sprintf(`DELETE FROM %s%s`, s.table, where)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: delete where: %v", docstore.ErrUnavailable, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func buildWhere(f docstore.Filter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if f.PathPrefix != "" {
		clauses = append(clauses, "path LIKE ?")
		args = append(args, f.PathPrefix+"%")
	}
	if f.MaxPriorityBelow > 0 {
		clauses = append(clauses, "priority < ?")
		args = append(args, f.MaxPriorityBelow)
	}
	if len(f.Paths) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Paths)), ",")
		clauses = append(clauses, "path IN ("+placeholders+")")
		for _, p := range f.Paths {
			args = append(args, p)
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*docstore.FileRecord, error) {
	var rec docstore.FileRecord
	var modTimes, angles string
	if err := row.Scan(&rec.ID, &rec.Path, &rec.Checksum, &rec.SizeBytes,
		&modTimes, &angles, &rec.Directory, &rec.Priority); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(modTimes), &rec.ModTimes); err != nil {
		return nil, fmt.Errorf("corrupt mod_times for %s: %v", rec.Path, err)
	}
	if err := json.Unmarshal([]byte(angles), &rec.Angles); err != nil {
		return nil, fmt.Errorf("corrupt angles for %s: %v", rec.Path, err)
	}
	return &rec, nil
}

// interface guard
var _ docstore.Store = (*SQLiteStore)(nil)
