package schema

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Normalize canonicalizes an external field value to the engine's internal
// shape. Vendor data is loose: access-group ids arrive as "1,2,3", as
// []interface{} of floats, or as a single number; intervals arrive as
// json float64 or as strings. Everything is pinned down here, immediately
// on read, so deep-equality dirty checks compare like with like.
func Normalize(field string, v interface{}) interface{} {
	switch field {
	case FieldAccessGroupIDs:
		return NormalizeAccessGroups(v)
	case FieldCollectInterval:
		if n, ok := toInt(v); ok {
			return n
		}
		return v
	case FieldTags:
		return normalizeTags(v)
	default:
		return normalizeValue(v)
	}
}

// NormalizeAccessGroups canonicalizes any external representation of
// access-group ids to a sorted, de-duplicated []int.
func NormalizeAccessGroups(v interface{}) []int {
	var ids []int
	switch t := v.(type) {
	case nil:
		return []int{}
	case string:
		for _, part := range strings.Split(t, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if n, err := strconv.Atoi(part); err == nil {
				ids = append(ids, n)
			}
		}
	case []int:
		ids = append(ids, t...)
	case []interface{}:
		for _, item := range t {
			if n, ok := toInt(item); ok {
				ids = append(ids, n)
			}
		}
	default:
		if n, ok := toInt(v); ok {
			ids = append(ids, n)
		}
	}
	sort.Ints(ids)
	out := ids[:0]
	var last int
	for i, n := range ids {
		if i > 0 && n == last {
			continue
		}
		out = append(out, n)
		last = n
	}
	if out == nil {
		out = []int{}
	}
	return out
}

// normalizeTags canonicalizes tags to a []string, splitting comma-separated
// text and trimming whitespace.
func normalizeTags(v interface{}) []string {
	var tags []string
	switch t := v.(type) {
	case nil:
		return []string{}
	case string:
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				tags = append(tags, part)
			}
		}
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				tags = append(tags, s)
			}
		}
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					tags = append(tags, s)
				}
			}
		}
	}
	if tags == nil {
		tags = []string{}
	}
	return tags
}

// normalizeValue canonicalizes generic json-decoded values: whole float64s
// become ints, nested maps and slices are normalized recursively. This keeps
// a value that round-tripped through the wire deep-equal to the same value
// set locally.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case float64:
		if n, ok := toInt(t); ok {
			return n
		}
		return t
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = normalizeValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

func toInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t == float64(int(t)) {
			return int(t), true
		}
		return 0, false
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// DeepEqual compares two field values after reducing both to a canonical
// form, so json-decoded and locally-constructed values compare equal.
func DeepEqual(a, b interface{}) bool {
	return reflect.DeepEqual(canonical(a), canonical(b))
}

// canonical reduces a value to generic maps, slices, and ints regardless of
// the concrete types it arrived with.
func canonical(v interface{}) interface{} {
	switch t := v.(type) {
	case []int:
		out := make([]interface{}, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = canonical(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = canonical(item)
		}
		return out
	default:
		return normalizeValue(v)
	}
}
