package portal

import (
	"lmc/internal/identity"
)

// Module is a module snapshot as returned by the portal. Raw carries the
// full field map; the typed fields are the handful the engine reads often.
type Module struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Version     int    `json:"version"`
	LineageID   int    `json:"lineageId"`

	Raw map[string]interface{} `json:"-"`
}

// Details is a full editable field snapshot plus the remote version counter
// observed at fetch time.
type Details struct {
	Raw     map[string]interface{}
	Version int
}

// CommitRequest is the partial-commit payload. Script and Metadata are both
// optional; at least one must be present.
type CommitRequest struct {
	ScriptFacet identity.Facet         `json:"scriptFacet,omitempty"`
	Script      *string                `json:"script,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Reason      string                 `json:"reason,omitempty"`
}

// CommitResult reports the remote version after a successful commit.
type CommitResult struct {
	Version     int    `json:"version"`
	CommittedAt string `json:"committedAt,omitempty"`
}

// AccessGroup is one portal access group.
type AccessGroup struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// LineageVersion is one entry of a module's version lineage, newest first.
type LineageVersion struct {
	Version   int    `json:"version"`
	Committer string `json:"committer,omitempty"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// moduleFromRaw builds a Module from a raw snapshot map.
func moduleFromRaw(raw map[string]interface{}) *Module {
	m := &Module{Raw: raw}
	if v, ok := raw["id"].(float64); ok {
		m.ID = int(v)
	}
	if v, ok := raw["name"].(string); ok {
		m.Name = v
	}
	if v, ok := raw["displayName"].(string); ok {
		m.DisplayName = v
	}
	if v, ok := raw["description"].(string); ok {
		m.Description = v
	}
	if v, ok := raw["version"].(float64); ok {
		m.Version = int(v)
	}
	if v, ok := raw["lineageId"].(float64); ok {
		m.LineageID = int(v)
	}
	return m
}
