package logscan

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractSeparatesWarningsAndErrors(t *testing.T) {
	log := strings.Join([]string{
		"[2026-01-02 10:00:00] Daemon started (interval: 1h)",
		"[2026-01-02 10:00:05] Warning: similarity service unreachable, will retry",
		"[2026-01-02 10:00:09] Using database: /home/u/.curator/curator.db",
		"[2026-01-02 10:01:00] Error: cannot open database: locked",
		"[2026-01-02 10:02:00] Warning: cannot watch /gone: no such file",
	}, "\n")

	warnings, errors := Extract(strings.NewReader(log))

	if len(warnings) != 2 {
		t.Fatalf("got %d warnings: %v", len(warnings), warnings)
	}
	if warnings[0] != "similarity service unreachable, will retry" {
		t.Errorf("warning text not trimmed: %q", warnings[0])
	}
	if len(errors) != 1 || errors[0] != "cannot open database: locked" {
		t.Errorf("errors = %v", errors)
	}
}

func TestExtractCapsToMostRecent(t *testing.T) {
	var b strings.Builder
	for i := 0; i < keep+15; i++ {
		fmt.Fprintf(&b, "[ts] Warning: w%d\n", i)
	}

	warnings, _ := Extract(strings.NewReader(b.String()))
	if len(warnings) != keep {
		t.Fatalf("got %d warnings, want cap of %d", len(warnings), keep)
	}
	if warnings[len(warnings)-1] != fmt.Sprintf("w%d", keep+14) {
		t.Errorf("cap should keep the newest entries, last = %q", warnings[len(warnings)-1])
	}
}

func TestExtractFileMissingIsEmpty(t *testing.T) {
	warnings, errors := ExtractFile(filepath.Join(t.TempDir(), "absent.log"))
	if warnings != nil || errors != nil {
		t.Errorf("missing log should yield empty results, got %v / %v", warnings, errors)
	}
}
