// Package logscan is the best-effort adapter that harvests warning and error
// lines from the daemon log for status displays. Its line heuristics stay
// behind this narrow interface and never leak into the lifecycle state
// machines.
package logscan

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Markers recognized in log lines. The daemon logger writes
// "[timestamp] Warning: ..." / "[timestamp] Error: ..." lines.
const (
	warningMarker = "Warning:"
	errorMarker   = "Error:"
)

// keep bounds how many of the most recent messages of each kind survive.
const keep = 20

// Extract scans a log stream line by line and collects warning and error
// messages, newest last, capped to the most recent entries. It never fails:
// a read error simply ends the scan with whatever was collected.
func Extract(r io.Reader) (warnings, errors []string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, errorMarker); idx >= 0 {
			errors = appendCapped(errors, strings.TrimSpace(line[idx+len(errorMarker):]))
			continue
		}
		if idx := strings.Index(line, warningMarker); idx >= 0 {
			warnings = appendCapped(warnings, strings.TrimSpace(line[idx+len(warningMarker):]))
		}
	}
	return warnings, errors
}

// ExtractFile reads the log at path. A missing or unreadable log yields
// empty results, never an error.
func ExtractFile(path string) (warnings, errors []string) {
	f, err := os.Open(path) // #nosec G304 - controlled path under curator home
	if err != nil {
		return nil, nil
	}
	defer func() { _ = f.Close() }()
	return Extract(f)
}

func appendCapped(msgs []string, msg string) []string {
	if msg == "" {
		return msgs
	}
	msgs = append(msgs, msg)
	if len(msgs) > keep {
		msgs = msgs[len(msgs)-keep:]
	}
	return msgs
}
