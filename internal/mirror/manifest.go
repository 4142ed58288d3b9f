package mirror

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"lmc/internal/identity"
)

// ManifestName is the per-module manifest file written next to the
// mirrored scripts.
const ManifestName = "module.toml"

// Manifest describes one mirrored module.
type Manifest struct {
	PortalID   string              `toml:"portal_id"`
	PortalHost string              `toml:"portal_host,omitempty"`
	ModuleID   int                 `toml:"module_id"`
	ModuleType identity.ModuleType `toml:"module_type"`
	ModuleName string              `toml:"module_name"`
	Version    int                 `toml:"version"`
	ClonedAt   time.Time           `toml:"cloned_at"`
	// Facets maps a script facet to its file name inside the module dir.
	Facets map[string]string `toml:"facets"`
}

// LoadManifest reads the manifest in dir.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read module manifest: %w", err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse module manifest: %w", err)
	}
	return &m, nil
}

// Save writes the manifest into dir.
func (m *Manifest) Save(dir string) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode module manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0644); err != nil {
		return fmt.Errorf("failed to write module manifest: %w", err)
	}
	return nil
}
