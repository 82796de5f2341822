package status

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DaemonFile)
	started := time.Now().UTC().Truncate(time.Second)

	want := DaemonStatus{
		PID:       4242,
		Running:   true,
		Warnings:  []string{"slow store"},
		StartedAt: &started,
	}
	if err := Write(path, want); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got := ReadDaemon(path)
	if got.PID != want.PID || !got.Running {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if len(got.Warnings) != 1 || got.Warnings[0] != "slow store" {
		t.Errorf("warnings not preserved: %v", got.Warnings)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Errorf("started_at not preserved: %v", got.StartedAt)
	}
}

func TestReadMissingFileReturnsDefault(t *testing.T) {
	got := ReadDaemon(filepath.Join(t.TempDir(), "nope.json"))
	if got.Running {
		t.Error("missing file should read as not running")
	}
	if got.PID != 0 {
		t.Errorf("missing file should have zero PID, got %d", got.PID)
	}
}

func TestReadCorruptFileReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), DaemonFile)
	if err := os.WriteFile(path, []byte(`{"running": tru`), 0600); err != nil {
		t.Fatal(err)
	}

	got := ReadDaemon(path)
	if got.Running {
		t.Error("corrupt file should read as not running")
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, MonitorFile)
	if err := Write(path, MonitorStatus{RecordCount: 3}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != MonitorFile {
		t.Errorf("unexpected directory contents: %v", entries)
	}
}

// Concurrent readers must always see a fully-formed JSON document, either the
// previous or the new one, never a partial write.
func TestConcurrentReadersNeverSeePartialWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), DaemonFile)
	if err := Write(path, DaemonStatus{Running: false}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				data, err := os.ReadFile(path)
				if err != nil {
					continue // rename window on some platforms
				}
				var s DaemonStatus
				if err := json.Unmarshal(data, &s); err != nil {
					t.Errorf("reader saw partial document: %q", data)
					return
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		if err := Write(path, DaemonStatus{Running: i%2 == 0, PID: i}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	close(done)
	wg.Wait()
}

func TestVaultStatusRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), VaultFile)
	now := time.Now().UTC()
	want := VaultStatus{
		Issues: []string{"missing: /tmp/gone"},
		Managed: map[string]DirState{
			"/tmp/docs": {Priority: 2.5, Valid: true},
			"/tmp/gone": {Priority: 1.0, Valid: false, Error: "directory does not exist"},
		},
		CheckedAt: &now,
	}
	if err := Write(path, want); err != nil {
		t.Fatal(err)
	}

	got := ReadVault(path)
	if len(got.Managed) != 2 {
		t.Fatalf("managed map not preserved: %+v", got.Managed)
	}
	if info := got.Managed["/tmp/gone"]; info.Valid || info.Error == "" {
		t.Errorf("invalid dir state not preserved: %+v", info)
	}
}
