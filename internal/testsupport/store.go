// Package testsupport provides shared constructors for package tests.
package testsupport

import (
	"testing"

	"tubewatch/internal/config"
	"tubewatch/internal/store"
)

// NewConfig returns a validated config rooted in a test temp directory.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.DataDir = dir
	cfg.Paths.LogDir = dir + "/logs"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("test config directories: %v", err)
	}
	return &cfg
}

// MustOpenStore opens a store for tests and registers cleanup. A nil cfg
// gets a fresh temp-dir config.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	if cfg == nil {
		cfg = NewConfig(t)
	}
	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}
