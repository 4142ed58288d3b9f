// Package draft maintains the shared, versioned draft of editable module
// fields. One canonical draft record exists per module identity; tabs hold
// only the identity key through an index, so a field write is visible to
// every sibling tab in the same atomic transition (arena + index pattern).
package draft

import (
	"time"

	"lmc/internal/identity"
	"lmc/internal/schema"
)

// Draft is the per-identity shared record of editable fields.
type Draft struct {
	// Original is the last-fetched field snapshot. Nil until first load.
	Original schema.Fields `json:"original"`
	// Current holds the editable field values.
	Current schema.Fields `json:"current"`
	// Dirty is the set of field names whose current value differs from
	// the original. Recomputed from scratch on every mutation.
	Dirty map[string]struct{} `json:"dirty"`

	LoadedAt   time.Time           `json:"loadedAt"`
	ModuleID   int                 `json:"moduleId"`
	ModuleType identity.ModuleType `json:"moduleType"`
	PortalID   string              `json:"portalId"`
	// Version is the remote version counter observed at load time.
	Version int `json:"version"`
}

// Identity returns the module identity the draft belongs to.
func (d *Draft) Identity() identity.ModuleIdentity {
	return identity.ModuleIdentity{
		ModuleID:   d.ModuleID,
		ModuleType: d.ModuleType,
		PortalID:   d.PortalID,
	}
}

// DirtyFields returns the dirty field names as a slice.
func (d *Draft) DirtyFields() []string {
	out := make([]string, 0, len(d.Dirty))
	for name := range d.Dirty {
		out = append(out, name)
	}
	return out
}

// IsDirty reports whether any field differs from the original snapshot.
func (d *Draft) IsDirty() bool {
	return len(d.Dirty) > 0
}

// Clone returns a deep copy of the draft.
func (d *Draft) Clone() *Draft {
	out := *d
	out.Original = cloneFields(d.Original)
	out.Current = cloneFields(d.Current)
	out.Dirty = make(map[string]struct{}, len(d.Dirty))
	for name := range d.Dirty {
		out.Dirty[name] = struct{}{}
	}
	return &out
}

func cloneFields(f schema.Fields) schema.Fields {
	if f == nil {
		return nil
	}
	out := make(schema.Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []int:
		out := make([]int, len(t))
		copy(out, t)
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// recomputeDirty rebuilds the dirty set from scratch by deep-comparing every
// current field against the original snapshot.
func (d *Draft) recomputeDirty() {
	d.Dirty = make(map[string]struct{})
	for name, cur := range d.Current {
		if !schema.DeepEqual(cur, d.Original[name]) {
			d.Dirty[name] = struct{}{}
		}
	}
	for name := range d.Original {
		if _, present := d.Current[name]; !present {
			d.Dirty[name] = struct{}{}
		}
	}
}
