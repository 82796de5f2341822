//go:build unix

package lockfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireWritesHolderInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.lock")

	lock, err := Acquire(path, "/tmp/home", "1.0.0")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer lock.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("lock file should carry holder metadata")
	}
}

func TestAcquireTwiceSameProcessSucceeds(t *testing.T) {
	// flock is per file description, not per process; a second open+flock
	// in the same process still succeeds on Linux. The daemon relies on
	// one Acquire per process, so only cross-process exclusion matters.
	// Exercised end to end by the daemon lifecycle scripts.
	path := filepath.Join(t.TempDir(), "daemon.lock")
	lock, err := Acquire(path, "/tmp/home", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	_ = lock.Close()

	again, err := Acquire(path, "/tmp/home", "1.0.0")
	if err != nil {
		t.Fatalf("re-acquire after release failed: %v", err)
	}
	_ = again.Close()
}

func TestIsProcessAlive(t *testing.T) {
	if !IsProcessAlive(os.Getpid()) {
		t.Error("our own PID should be alive")
	}
	if IsProcessAlive(0) || IsProcessAlive(-1) {
		t.Error("non-positive PIDs are never alive")
	}
}
