// Package paths centralizes the on-disk locations the composer uses.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvHome overrides the composer home directory, mainly for tests.
const EnvHome = "LMC_HOME"

// Home returns the composer home directory (~/.lmc), creating it if needed.
func Home() (string, error) {
	if override := os.Getenv(EnvHome); override != "" {
		if err := os.MkdirAll(override, 0700); err != nil {
			return "", fmt.Errorf("failed to create composer home: %w", err)
		}
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(home, ".lmc")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create composer home: %w", err)
	}
	return dir, nil
}

// ConfigPath returns the path to config.toml.
func ConfigPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.toml"), nil
}

// PortalsPath returns the path to the portal registry file.
func PortalsPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "portals.toml"), nil
}

// WorkspacePath returns the path to the workspace database.
func WorkspacePath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "workspace.db"), nil
}

// VaultPath returns the path to the credential vault file.
func VaultPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "vault.json"), nil
}

// VaultKeyPath returns the path to the vault key file.
func VaultKeyPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "vault.key"), nil
}

// LineageCacheDir returns the directory for the lineage version cache.
func LineageCacheDir() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, "lineage")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create lineage cache dir: %w", err)
	}
	return dir, nil
}

// LogPath returns the path to the composer log file.
func LogPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "lmc.log"), nil
}
