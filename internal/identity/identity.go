// Package identity defines the composite key that names one logical module
// on a portal, and the facets of a module a tab can be bound to.
package identity

import (
	"fmt"
	"strings"
)

// ModuleType is the kind of module a tab is bound to.
type ModuleType string

const (
	DataSource     ModuleType = "datasource"
	PropertySource ModuleType = "propertysource"
	ConfigSource   ModuleType = "configsource"
	EventSource    ModuleType = "eventsource"
	TopologySource ModuleType = "topologysource"
	LogSource      ModuleType = "logsource"
)

// ModuleTypes lists all supported module types in display order.
var ModuleTypes = []ModuleType{
	DataSource,
	PropertySource,
	ConfigSource,
	EventSource,
	TopologySource,
	LogSource,
}

// ParseModuleType converts a string to a ModuleType.
func ParseModuleType(s string) (ModuleType, error) {
	mt := ModuleType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ModuleTypes {
		if mt == known {
			return mt, nil
		}
	}
	return "", fmt.Errorf("unknown module type %q", s)
}

// Facet is one editable aspect of a module. A module may have its discovery
// script, collection script, and metadata open in separate tabs at once.
type Facet string

const (
	FacetDiscovery  Facet = "discovery"
	FacetCollection Facet = "collection"
	FacetMetadata   Facet = "metadata"
)

// ParseFacet converts a string to a Facet.
func ParseFacet(s string) (Facet, error) {
	switch Facet(strings.ToLower(strings.TrimSpace(s))) {
	case FacetDiscovery:
		return FacetDiscovery, nil
	case FacetCollection:
		return FacetCollection, nil
	case FacetMetadata:
		return FacetMetadata, nil
	}
	return "", fmt.Errorf("unknown facet %q", s)
}

// IsScript reports whether the facet carries a script body.
func (f Facet) IsScript() bool {
	return f == FacetDiscovery || f == FacetCollection
}

// ModuleIdentity is the immutable tuple naming one remote module. Two tabs
// with equal tuples refer to the same remote entity.
type ModuleIdentity struct {
	ModuleID   int        `json:"moduleId"`
	ModuleType ModuleType `json:"moduleType"`
	PortalID   string     `json:"portalId"`
}

// Valid reports whether all three components are present.
func (id ModuleIdentity) Valid() bool {
	return id.ModuleID > 0 && id.ModuleType != "" && id.PortalID != ""
}

// Key returns a stable string form usable as a map key.
func (id ModuleIdentity) Key() string {
	return fmt.Sprintf("%s/%s/%d", id.PortalID, id.ModuleType, id.ModuleID)
}

func (id ModuleIdentity) String() string {
	return id.Key()
}
