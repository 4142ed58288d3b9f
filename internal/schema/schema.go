// Package schema maps logical module field names to their per-module-type
// storage paths and wire shapes. Several module types disagree on where a
// field lives (nested vs flat) and how it is represented (object vs scalar,
// array vs comma-separated text), so both the details loader and the commit
// payload builder consult this table instead of scattering per-type
// conditionals through the engine.
package schema

import (
	"fmt"

	"lmc/internal/identity"
)

// Fields is a logical field snapshot: logical field name -> normalized value.
type Fields map[string]interface{}

// Shape describes how a field is represented on the wire.
type Shape int

const (
	// ShapeScalar is passed through unchanged.
	ShapeScalar Shape = iota
	// ShapeInterval is a plain seconds count locally, reshaped into a
	// {units, offset} object on the wire.
	ShapeInterval
	// ShapeTags is an array of strings locally, a comma-separated string
	// on the wire.
	ShapeTags
	// ShapeAccessGroups is a canonical sorted []int locally, sent as an
	// integer array on the wire.
	ShapeAccessGroups
	// ShapeAutoDiscovery is a nested config object, merged with per-type
	// defaults before commit.
	ShapeAutoDiscovery
)

// FieldSpec describes one logical field for one module type.
type FieldSpec struct {
	// Wire is the remote schema's field name.
	Wire string
	// Path is the location of the field inside the remote snapshot.
	// The last element is the field itself; preceding elements are
	// nested objects.
	Path []string
	// Shape selects the wire transform applied on commit.
	Shape Shape
}

// Logical field names used throughout the engine.
const (
	FieldName            = "name"
	FieldDisplayName     = "displayName"
	FieldDescription     = "description"
	FieldAppliesTo       = "appliesTo"
	FieldGroup           = "group"
	FieldCollectInterval = "collectInterval"
	FieldTags            = "tags"
	FieldAccessGroupIDs  = "accessGroupIds"
	FieldAutoDiscovery   = "autoDiscovery"
)

// common holds the fields whose location and shape are identical across all
// module types.
var common = map[string]FieldSpec{
	FieldName:           {Wire: "name", Path: []string{"name"}},
	FieldDisplayName:    {Wire: "displayName", Path: []string{"displayName"}},
	FieldDescription:    {Wire: "description", Path: []string{"description"}},
	FieldAppliesTo:      {Wire: "appliesTo", Path: []string{"appliesTo"}},
	FieldGroup:          {Wire: "group", Path: []string{"group"}},
	FieldAccessGroupIDs: {Wire: "accessGroupIds", Path: []string{"accessGroupIds"}, Shape: ShapeAccessGroups},
}

// perType holds the divergent fields. Datasources and configsources carry
// their collect interval as a nested schedule object; the script-backed
// types store it as a flat seconds count. Eventsources are the one type
// whose tags travel as comma-separated text.
var perType = map[identity.ModuleType]map[string]FieldSpec{
	identity.DataSource: {
		FieldCollectInterval: {Wire: "collectInterval", Path: []string{"schedule", "collectInterval"}, Shape: ShapeInterval},
		FieldAutoDiscovery:   {Wire: "autoDiscoveryConfig", Path: []string{"autoDiscoveryConfig"}, Shape: ShapeAutoDiscovery},
		FieldTags:            {Wire: "tags", Path: []string{"tags"}},
	},
	identity.ConfigSource: {
		FieldCollectInterval: {Wire: "collectInterval", Path: []string{"schedule", "collectInterval"}, Shape: ShapeInterval},
		FieldTags:            {Wire: "tags", Path: []string{"tags"}},
	},
	identity.PropertySource: {
		FieldCollectInterval: {Wire: "scheduleInterval", Path: []string{"scheduleInterval"}},
		FieldTags:            {Wire: "tags", Path: []string{"tags"}},
	},
	identity.EventSource: {
		FieldCollectInterval: {Wire: "scheduleInterval", Path: []string{"scheduleInterval"}},
		FieldTags:            {Wire: "tags", Path: []string{"tags"}, Shape: ShapeTags},
	},
	identity.TopologySource: {
		FieldCollectInterval: {Wire: "scheduleInterval", Path: []string{"scheduleInterval"}},
		FieldTags:            {Wire: "tags", Path: []string{"tags"}},
	},
	identity.LogSource: {
		FieldCollectInterval: {Wire: "scheduleInterval", Path: []string{"scheduleInterval"}},
		FieldTags:            {Wire: "tags", Path: []string{"tags"}},
	},
}

// scriptPaths maps (module type, facet) to the location of the script body
// inside the module snapshot. Datasource collection scripts live under the
// collector attribute object; discovery scripts under the auto-discovery
// method config. The simpler types keep a flat script field.
var scriptPaths = map[identity.ModuleType]map[identity.Facet][]string{
	identity.DataSource: {
		identity.FacetCollection: {"collectorAttribute", "groovyScript"},
		identity.FacetDiscovery:  {"autoDiscoveryConfig", "method", "groovyScript"},
	},
	identity.ConfigSource: {
		identity.FacetCollection: {"collectorAttribute", "groovyScript"},
	},
	identity.PropertySource: {
		identity.FacetCollection: {"groovyScript"},
	},
	identity.EventSource: {
		identity.FacetCollection: {"groovyScript"},
	},
	identity.TopologySource: {
		identity.FacetCollection: {"groovyScript"},
	},
	identity.LogSource: {
		identity.FacetCollection: {"groovyScript"},
	},
}

// FieldTable returns the complete logical-field table for a module type.
func FieldTable(mt identity.ModuleType) map[string]FieldSpec {
	table := make(map[string]FieldSpec, len(common)+4)
	for name, spec := range common {
		table[name] = spec
	}
	for name, spec := range perType[mt] {
		table[name] = spec
	}
	return table
}

// ScriptPath returns the storage path of a script facet inside a module
// snapshot for the given type, or an error when the type has no such facet.
func ScriptPath(mt identity.ModuleType, facet identity.Facet) ([]string, error) {
	if !facet.IsScript() {
		return nil, fmt.Errorf("facet %q carries no script body", facet)
	}
	path, ok := scriptPaths[mt][facet]
	if !ok {
		return nil, fmt.Errorf("module type %q has no %s script", mt, facet)
	}
	return path, nil
}

// Lookup walks a nested snapshot along path. The second return is false when
// any intermediate object is absent.
func Lookup(raw map[string]interface{}, path []string) (interface{}, bool) {
	var cur interface{} = raw
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Snapshot extracts the logical field snapshot from a raw remote module
// snapshot, normalizing every value on the way in.
func Snapshot(mt identity.ModuleType, raw map[string]interface{}) Fields {
	table := FieldTable(mt)
	fields := make(Fields, len(table))
	for name, spec := range table {
		v, ok := Lookup(raw, spec.Path)
		if !ok {
			continue
		}
		fields[name] = Normalize(name, v)
	}
	return fields
}

// ScriptBody extracts a script facet's body from a raw module snapshot.
// Absent paths yield the empty string, not an error: a freshly created
// module legitimately has no script yet.
func ScriptBody(mt identity.ModuleType, facet identity.Facet, raw map[string]interface{}) (string, error) {
	path, err := ScriptPath(mt, facet)
	if err != nil {
		return "", err
	}
	v, ok := Lookup(raw, path)
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("script body at %v is %T, not a string", path, v)
	}
	return s, nil
}
