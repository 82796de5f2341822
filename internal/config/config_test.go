package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSyncConfigValidate(t *testing.T) {
	valid := SyncConfig{
		DatabaseCollection: "curator.files",
		MaxDocuments:       100,
		MinPriority:        0.5,
		PruneInterval:      time.Hour,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*SyncConfig)
	}{
		{"no dot", func(c *SyncConfig) { c.DatabaseCollection = "nodot" }},
		{"empty database", func(c *SyncConfig) { c.DatabaseCollection = ".files" }},
		{"empty collection", func(c *SyncConfig) { c.DatabaseCollection = "curator." }},
		{"two dots", func(c *SyncConfig) { c.DatabaseCollection = "a.b.c" }},
		{"negative max documents", func(c *SyncConfig) { c.MaxDocuments = -1 }},
		{"negative min priority", func(c *SyncConfig) { c.MinPriority = -0.1 }},
		{"zero prune interval", func(c *SyncConfig) { c.PruneInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrConfigInvalid) {
				t.Errorf("error not wrapped in ErrConfigInvalid: %v", err)
			}
		})
	}
}

func TestSyncConfigValidateMessageMentionsFormat(t *testing.T) {
	cfg := SyncConfig{DatabaseCollection: "nodot", PruneInterval: time.Minute}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for database_collection without dot")
	}
	if !strings.Contains(err.Error(), `"database.collection"`) {
		t.Errorf("error should mention the required format, got: %v", err)
	}
}

func TestSplitCollection(t *testing.T) {
	db, coll, err := SplitCollection("curator.files")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db != "curator" || coll != "files" {
		t.Errorf("got (%q, %q), want (curator, files)", db, coll)
	}
}

func TestHomePrecedence(t *testing.T) {
	if got, err := Home("/explicit/path"); err != nil || got != "/explicit/path" {
		t.Errorf("flag value should win: got %q, err %v", got, err)
	}

	t.Setenv("CURATOR_HOME", "/from/env")
	if got, err := Home(""); err != nil || got != "/from/env" {
		t.Errorf("env should win over default: got %q, err %v", got, err)
	}
}

func TestInitializeDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize with no config file should succeed: %v", err)
	}

	sync := Sync()
	if sync.DatabaseCollection != "curator.files" {
		t.Errorf("default collection = %q", sync.DatabaseCollection)
	}
	if sync.PruneInterval != time.Hour {
		t.Errorf("default prune interval = %v", sync.PruneInterval)
	}
	if err := sync.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestRulesValidate(t *testing.T) {
	good := Rules{ExcludeGlobs: []string{"*.tmp", "*~"}}
	if err := good.Validate(); err != nil {
		t.Fatalf("good globs rejected: %v", err)
	}

	bad := Rules{ExcludeGlobs: []string{"[unclosed"}}
	if err := bad.Validate(); !errors.Is(err, ErrConfigInvalid) {
		t.Errorf("bad glob should fail with ErrConfigInvalid, got %v", err)
	}
}
