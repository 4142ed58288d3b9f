package config

import (
	"os"
	"path/filepath"
	"testing"

	"lmc/internal/paths"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(paths.EnvHome, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("missing config file must not be an error: %v", err)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "human" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.Commit.RequireReason {
		t.Error("require_reason should default to false")
	}
	if cfg.Repository != "" {
		t.Errorf("repository default = %q", cfg.Repository)
	}
}

func TestLoadFromFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv(paths.EnvHome, home)

	content := `
repository = "/srv/modules"

[logging]
level = "debug"
format = "json"

[commit]
require_reason = true
`
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Repository != "/srv/modules" {
		t.Errorf("repository = %q", cfg.Repository)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if !cfg.Commit.RequireReason {
		t.Error("require_reason should be set")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv(paths.EnvHome, home)
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte("not [valid toml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Error("malformed config must be an error")
	}
}
