// Package dirs validates the configured priority directories and
// include/exclude rules. Validation is pure: same config in, same report
// out, no filesystem mutation.
package dirs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/curatorhq/curator/internal/config"
)

// DirInfo describes one configured priority directory after validation.
type DirInfo struct {
	Priority float64 `json:"priority"`
	Valid    bool    `json:"valid"`
	Error    string  `json:"error,omitempty"`
}

// Report is the full validation result consumed by status displays.
type Report struct {
	Issues       []string           `json:"issues,omitempty"`
	Redundancies []string           `json:"redundancies,omitempty"`
	Managed      map[string]DirInfo `json:"managed_directories"`
	IncludeRules []string           `json:"include_rules,omitempty"`
	ExcludeRules []string           `json:"exclude_rules,omitempty"`
}

// Config is the slice of curator configuration the validator consumes.
type Config struct {
	Roots       []string           // configured watch roots
	Directories map[string]float64 // priority directory -> weight
	Rules       config.Rules
}

// Validate checks every configured priority directory and flags redundant
// entries. A directory is valid iff it exists, is a directory, and sits
// inside at least one configured root.
func Validate(cfg Config) Report {
	report := Report{
		Managed:      make(map[string]DirInfo, len(cfg.Directories)),
		IncludeRules: append([]string(nil), cfg.Rules.IncludePaths...),
		ExcludeRules: collectExcludeRules(cfg.Rules),
	}

	// Deterministic issue ordering regardless of map iteration.
	paths := make([]string, 0, len(cfg.Directories))
	for path := range cfg.Directories {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		priority := cfg.Directories[path]
		info := DirInfo{Priority: priority}

		switch {
		case priority < 0:
			info.Error = fmt.Sprintf("priority must be >= 0 (got %g)", priority)
		case !exists(path):
			info.Error = "directory does not exist"
		case !isDir(path):
			info.Error = "path is not a directory"
		case !underAnyRoot(path, cfg.Roots):
			info.Error = "directory is outside every configured root"
		default:
			info.Valid = true
		}

		if !info.Valid {
			report.Issues = append(report.Issues, fmt.Sprintf("%s: %s", path, info.Error))
		}
		report.Managed[path] = info
	}

	// An entry is redundant when an ancestor is already configured with
	// priority >= its own. Flagged, not removed.
	for _, path := range paths {
		for _, ancestor := range paths {
			if ancestor == path || !isAncestor(ancestor, path) {
				continue
			}
			if cfg.Directories[ancestor] >= cfg.Directories[path] {
				report.Redundancies = append(report.Redundancies,
					fmt.Sprintf("%s is covered by %s (priority %g >= %g)",
						path, ancestor, cfg.Directories[ancestor], cfg.Directories[path]))
				break
			}
		}
	}

	return report
}

func collectExcludeRules(r config.Rules) []string {
	var out []string
	out = append(out, r.ExcludePaths...)
	out = append(out, r.ExcludeDirnames...)
	out = append(out, r.ExcludeGlobs...)
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func underAnyRoot(path string, roots []string) bool {
	if len(roots) == 0 {
		return true // no roots configured means every directory qualifies
	}
	for _, root := range roots {
		if path == filepath.Clean(root) || isAncestor(root, path) {
			return true
		}
	}
	return false
}

func isAncestor(ancestor, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(ancestor), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
