// Package status provides atomic read/write of the small JSON state documents
// shared between the daemon and CLI processes. Writers publish through a
// sibling temp file followed by a rename, so readers never observe a partial
// document. Missing or corrupt files read back as zero-value defaults.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Well-known status file names under the curator home directory.
const (
	DaemonFile   = "daemon.json"
	MonitorFile  = "monitor.json"
	VaultFile    = "vault.json"
	DatabaseFile = "database.json"
)

// DaemonStatus reflects daemon lifecycle state. Written by the daemon on
// every lifecycle transition; read-only to CLI clients.
type DaemonStatus struct {
	PID       int        `json:"pid,omitempty"`
	Running   bool       `json:"running"`
	Warnings  []string   `json:"warnings,omitempty"`
	Errors    []string   `json:"errors,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// MonitorStatus summarizes the file monitor's view of the watched trees.
type MonitorStatus struct {
	WatchedRoots []string   `json:"watched_roots,omitempty"`
	RecordCount  int        `json:"record_count"`
	LastEventAt  *time.Time `json:"last_event_at,omitempty"`
}

// VaultStatus carries the managed-directory validation report.
type VaultStatus struct {
	Issues       []string            `json:"issues,omitempty"`
	Redundancies []string            `json:"redundancies,omitempty"`
	Managed      map[string]DirState `json:"managed_directories,omitempty"`
	CheckedAt    *time.Time          `json:"checked_at,omitempty"`
}

// DirState is the per-directory slice of a VaultStatus.
type DirState struct {
	Priority float64 `json:"priority"`
	Valid    bool    `json:"valid"`
	Error    string  `json:"error,omitempty"`
}

// DatabaseStatus summarizes the change-history store.
type DatabaseStatus struct {
	Collection    string     `json:"collection"`
	DocumentCount int        `json:"document_count"`
	LastPruneAt   *time.Time `json:"last_prune_at,omitempty"`
}

// Write serializes v to JSON and atomically replaces the file at path.
// The temp file is created in the destination directory so the final
// rename stays on one filesystem.
func Write(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal status: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("cannot create status directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("cannot create temp status file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot write status: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot sync status: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot close temp status file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot publish status: %w", err)
	}
	return nil
}

// read unmarshals the file at path into v. Any failure (missing file,
// unreadable file, malformed JSON) leaves v untouched and reports false.
func read(path string, v interface{}) bool {
	data, err := os.ReadFile(path) // #nosec G304 - controlled path under curator home
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// ReadDaemon reads a DaemonStatus. Absent or corrupt files yield the
// not-running default.
func ReadDaemon(path string) DaemonStatus {
	var s DaemonStatus
	if !read(path, &s) {
		return DaemonStatus{Running: false}
	}
	return s
}

// ReadMonitor reads a MonitorStatus, defaulting to the zero value.
func ReadMonitor(path string) MonitorStatus {
	var s MonitorStatus
	read(path, &s)
	return s
}

// ReadVault reads a VaultStatus, defaulting to the zero value.
func ReadVault(path string) VaultStatus {
	var s VaultStatus
	read(path, &s)
	return s
}

// ReadDatabase reads a DatabaseStatus, defaulting to the zero value.
func ReadDatabase(path string) DatabaseStatus {
	var s DatabaseStatus
	read(path, &s)
	return s
}
