// Package config loads curator configuration from the curator home directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrConfigInvalid indicates a malformed configuration value.
var ErrConfigInvalid = errors.New("invalid configuration")

var v *viper.Viper

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup, after Home is resolved.
func Initialize(home string) error {
	v = viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(home)

	v.SetEnvPrefix("CURATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("sync.database_collection", "curator.files")
	v.SetDefault("sync.max_documents", 10000)
	v.SetDefault("sync.min_priority", 0.0)
	v.SetDefault("sync.prune_interval_secs", 3600.0)
	v.SetDefault("thresholds.min_angle", 0.0)
	v.SetDefault("thresholds.min_angle_change", 0.0)
	v.SetDefault("thresholds.max_age_secs", 0.0)
	v.SetDefault("thresholds.min_bytes", 0)
	v.SetDefault("similarity.url", "http://127.0.0.1:8421")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil // defaults only
		}
		return fmt.Errorf("cannot read config: %w", err)
	}
	return nil
}

// Home resolves the curator home directory.
// Precedence: explicit flag value, CURATOR_HOME, ~/.curator.
func Home(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv("CURATOR_HOME"); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve home directory: %w", err)
	}
	return filepath.Join(home, ".curator"), nil
}

// EnsureHome resolves and creates the curator home directory.
func EnsureHome(flagValue string) (string, error) {
	dir, err := Home(flagValue)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("cannot create curator directory: %w", err)
	}
	return dir, nil
}

// SyncConfig controls the monitor engine's retention behavior.
// Immutable once loaded for a daemon session.
type SyncConfig struct {
	DatabaseCollection string        `json:"database_collection"`
	MaxDocuments       int           `json:"max_documents"`
	MinPriority        float64       `json:"min_priority"`
	PruneInterval      time.Duration `json:"prune_interval"`
}

// Validate rejects malformed sync settings.
func (c SyncConfig) Validate() error {
	if _, _, err := SplitCollection(c.DatabaseCollection); err != nil {
		return err
	}
	if c.MaxDocuments < 0 {
		return fmt.Errorf("%w: max_documents must be >= 0 (got %d)", ErrConfigInvalid, c.MaxDocuments)
	}
	if c.MinPriority < 0 {
		return fmt.Errorf("%w: min_priority must be >= 0 (got %g)", ErrConfigInvalid, c.MinPriority)
	}
	if c.PruneInterval <= 0 {
		return fmt.Errorf("%w: prune_interval_secs must be > 0 (got %v)", ErrConfigInvalid, c.PruneInterval)
	}
	return nil
}

// SplitCollection splits a "database.collection" qualifier into its parts.
func SplitCollection(qualified string) (database, collection string, err error) {
	parts := strings.Split(qualified, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: database_collection must use \"database.collection\" format (got %q)",
			ErrConfigInvalid, qualified)
	}
	return parts[0], parts[1], nil
}

// Thresholds configure the significance filter. Zero disables a check.
type Thresholds struct {
	MinAngle       float64       `json:"min_angle"`
	MinAngleChange float64       `json:"min_angle_change"`
	MaxAge         time.Duration `json:"max_age"`
	MinBytes       int64         `json:"min_bytes"`
}

// Rules holds include/exclude filtering rules for watched trees.
// The rules are validated here and interpreted by the monitor watcher.
type Rules struct {
	IncludePaths    []string `json:"include_paths"`
	ExcludePaths    []string `json:"exclude_paths"`
	ExcludeDirnames []string `json:"exclude_dirnames"`
	ExcludeGlobs    []string `json:"exclude_globs"`
}

// Validate checks that every glob pattern compiles.
func (r Rules) Validate() error {
	for _, pattern := range r.ExcludeGlobs {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			return fmt.Errorf("%w: bad exclude glob %q: %v", ErrConfigInvalid, pattern, err)
		}
	}
	return nil
}

// Sync returns the loaded SyncConfig. Validation happens at daemon startup.
func Sync() SyncConfig {
	return SyncConfig{
		DatabaseCollection: v.GetString("sync.database_collection"),
		MaxDocuments:       v.GetInt("sync.max_documents"),
		MinPriority:        v.GetFloat64("sync.min_priority"),
		PruneInterval:      time.Duration(v.GetFloat64("sync.prune_interval_secs") * float64(time.Second)),
	}
}

// SignificanceThresholds returns the configured significance filter settings.
func SignificanceThresholds() Thresholds {
	return Thresholds{
		MinAngle:       v.GetFloat64("thresholds.min_angle"),
		MinAngleChange: v.GetFloat64("thresholds.min_angle_change"),
		MaxAge:         time.Duration(v.GetFloat64("thresholds.max_age_secs") * float64(time.Second)),
		MinBytes:       v.GetInt64("thresholds.min_bytes"),
	}
}

// PriorityDirectories returns the configured priority directory map
// (absolute path -> priority weight).
func PriorityDirectories() map[string]float64 {
	raw := v.GetStringMap("directories")
	dirs := make(map[string]float64, len(raw))
	for path := range raw {
		dirs[path] = v.GetFloat64("directories." + path)
	}
	return dirs
}

// WatchRoots returns the configured watch roots. When none are configured
// the priority directories themselves act as roots.
func WatchRoots() []string {
	if roots := v.GetStringSlice("roots"); len(roots) > 0 {
		return roots
	}
	dirs := PriorityDirectories()
	roots := make([]string, 0, len(dirs))
	for path := range dirs {
		roots = append(roots, path)
	}
	sort.Strings(roots)
	return roots
}

// PathRules returns the configured include/exclude rule sets.
func PathRules() Rules {
	return Rules{
		IncludePaths:    v.GetStringSlice("rules.include_paths"),
		ExcludePaths:    v.GetStringSlice("rules.exclude_paths"),
		ExcludeDirnames: v.GetStringSlice("rules.exclude_dirnames"),
		ExcludeGlobs:    v.GetStringSlice("rules.exclude_globs"),
	}
}

// SimilarityURL returns the base URL of the similarity service.
func SimilarityURL() string {
	return v.GetString("similarity.url")
}
