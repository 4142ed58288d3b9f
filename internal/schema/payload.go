package schema

import (
	"fmt"
	"sort"
	"strings"

	"lmc/internal/identity"
)

// autoDiscoveryDefaults holds the per-type base auto-discovery config merged
// under a user's edits before commit. The portal rejects partial
// auto-discovery objects, so every commit carries the full shape.
var autoDiscoveryDefaults = map[identity.ModuleType]map[string]interface{}{
	identity.DataSource: {
		"persistentInstance":       false,
		"deleteInactiveInstance":   true,
		"disableInstance":          true,
		"scheduleInterval":         0,
		"instanceAutoGroupEnabled": false,
	},
}

// BuildPayload builds the minimal wire payload for a partial commit: only
// the dirty fields, translated to the remote schema's names and shapes for
// the module type. A generic key-rename is insufficient here; the shapes
// below disagree between module types.
func BuildPayload(mt identity.ModuleType, dirty []string, values Fields) (map[string]interface{}, error) {
	if len(dirty) == 0 {
		return nil, nil
	}
	table := FieldTable(mt)
	payload := make(map[string]interface{}, len(dirty))

	names := append([]string(nil), dirty...)
	sort.Strings(names)

	for _, name := range names {
		spec, ok := table[name]
		if !ok {
			return nil, fmt.Errorf("field %q is not commitable for module type %q", name, mt)
		}
		v, ok := values[name]
		if !ok {
			continue
		}
		wire, err := wireValue(mt, spec, v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		payload[spec.Wire] = wire
	}
	return payload, nil
}

// wireValue applies the shape transform for one field.
func wireValue(mt identity.ModuleType, spec FieldSpec, v interface{}) (interface{}, error) {
	switch spec.Shape {
	case ShapeInterval:
		n, ok := toInt(v)
		if !ok {
			return nil, fmt.Errorf("interval value %v is not a number", v)
		}
		return map[string]interface{}{"units": "seconds", "offset": n}, nil

	case ShapeTags:
		// Eventsource tags travel as comma-separated text locally but the
		// portal wants an array.
		return normalizeTags(v), nil

	case ShapeAccessGroups:
		return NormalizeAccessGroups(v), nil

	case ShapeAutoDiscovery:
		cfg, ok := v.(map[string]interface{})
		if !ok && v != nil {
			return nil, fmt.Errorf("auto-discovery config is %T, not an object", v)
		}
		merged := make(map[string]interface{})
		for k, d := range autoDiscoveryDefaults[mt] {
			merged[k] = d
		}
		for k, item := range cfg {
			merged[k] = normalizeValue(item)
		}
		return merged, nil

	default:
		return normalizeValue(v), nil
	}
}

// DisplayTags renders a normalized tag list back to the comma-separated form
// the editing surfaces show.
func DisplayTags(v interface{}) string {
	return strings.Join(normalizeTags(v), ",")
}
