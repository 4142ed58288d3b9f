package portal

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"lmc/internal/paths"
)

// Registry is the set of known portals stored in portals.toml.
type Registry struct {
	// Active is the currently selected portal id. Engine operations
	// against a tab whose owning portal differs are refused.
	Active string `toml:"active,omitempty"`

	// UpdatedAt is when the registry was last modified
	UpdatedAt time.Time `toml:"updated_at"`

	// Portals is the list of registered portals
	Portals []Entry `toml:"portals"`
}

// Entry represents one portal in the registry.
type Entry struct {
	// ID is the short identifier used in tab bindings
	ID string `toml:"id"`

	// Host is the portal's hostname, e.g. acme.example.com
	Host string `toml:"host"`

	// Description is an optional human-readable description
	Description string `toml:"description,omitempty"`

	// AddedAt is when the portal was registered
	AddedAt time.Time `toml:"added_at"`
}

// LoadRegistry loads the portal registry from disk. A missing file yields an
// empty registry.
func LoadRegistry() (*Registry, error) {
	path, err := paths.PortalsPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Registry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read portal registry: %w", err)
	}
	var reg Registry
	if err := toml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse portal registry: %w", err)
	}
	return &reg, nil
}

// Save persists the registry to disk.
func (r *Registry) Save() error {
	path, err := paths.PortalsPath()
	if err != nil {
		return err
	}
	r.UpdatedAt = time.Now().UTC()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to write portal registry: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(r); err != nil {
		return fmt.Errorf("failed to encode portal registry: %w", err)
	}
	return nil
}

// Add registers a portal. Duplicate ids are rejected.
func (r *Registry) Add(id, host, description string) (*Entry, error) {
	for _, p := range r.Portals {
		if p.ID == id {
			return nil, fmt.Errorf("portal %q already registered", id)
		}
	}
	entry := Entry{
		ID:          id,
		Host:        host,
		Description: description,
		AddedAt:     time.Now().UTC(),
	}
	r.Portals = append(r.Portals, entry)
	if r.Active == "" {
		r.Active = id
	}
	return &entry, nil
}

// Remove deletes a portal by id.
func (r *Registry) Remove(id string) error {
	for i, p := range r.Portals {
		if p.ID == id {
			r.Portals = append(r.Portals[:i], r.Portals[i+1:]...)
			if r.Active == id {
				r.Active = ""
			}
			return nil
		}
	}
	return fmt.Errorf("portal %q not found", id)
}

// Get returns the entry for a portal id.
func (r *Registry) Get(id string) (*Entry, bool) {
	for i := range r.Portals {
		if r.Portals[i].ID == id {
			return &r.Portals[i], true
		}
	}
	return nil, false
}

// Use marks a portal as the active one.
func (r *Registry) Use(id string) error {
	if _, ok := r.Get(id); !ok {
		return fmt.Errorf("portal %q not found", id)
	}
	r.Active = id
	return nil
}
