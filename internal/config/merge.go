package config

import (
	"fmt"
	"strings"
)

// deepMerge merges src over dst and returns dst. Mappings merge
// recursively; any other kind of value (scalar or sequence) from src
// replaces the dst value wholesale.
func deepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for key, sv := range src {
		sm, srcIsMap := normalize(sv).(map[string]any)
		dm, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = deepMerge(dm, sm)
			continue
		}
		dst[key] = normalize(sv)
	}
	return dst
}

// normalize converts yaml.v3's map[any]any mappings (produced for
// non-string keys) into map[string]any so lookups behave uniformly.
func normalize(v any) any {
	switch m := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(m))
		for k, mv := range m {
			out[k] = normalize(mv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, mv := range m {
			out[fmt.Sprintf("%v", k)] = normalize(mv)
		}
		return out
	case []any:
		out := make([]any, len(m))
		for i, e := range m {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}

// expandDotted turns {"extraction.time_bin": 0.001} into the nested
// mapping {"extraction": {"time_bin": 0.001}} so dotted call-time
// overrides merge like any other source. An empty path segment is a
// malformed override.
func expandDotted(flat map[string]any) (map[string]any, error) {
	out := map[string]any{}
	for path, v := range flat {
		keys := strings.Split(path, ".")
		cur := out
		for i, key := range keys {
			if key == "" {
				return nil, fmt.Errorf("empty segment in override path %q", path)
			}
			if i == len(keys)-1 {
				cur[key] = normalize(v)
				break
			}
			next, ok := cur[key].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[key] = next
			}
			cur = next
		}
	}
	return out, nil
}
