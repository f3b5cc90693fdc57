package chatctx

// cloneJSON deep-copies a value produced by encoding/json's generic
// decoding (map[string]any, []any, and scalars). It is used to take a
// fresh working copy of the schema's request template / message-format
// skeletons before placeholder substitution, so published schema.Doc
// values are never mutated (spec §3 invariant 6).
func cloneJSON(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = cloneJSON(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = cloneJSON(child)
		}
		return out
	default:
		return val
	}
}

// substitutePlaceholders walks node and replaces any string leaf that is
// an exact match for a key in subs with the corresponding value. Matching
// is whole-string, not substring interpolation, per spec §4.2's
// "substituting <TEXT_CONTENT>, <MEDIA_TYPE>, and <MEDIA_DATA> placeholders".
func substitutePlaceholders(node any, subs map[string]string) any {
	switch val := node.(type) {
	case string:
		if replacement, ok := subs[val]; ok {
			return replacement
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = substitutePlaceholders(child, subs)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = substitutePlaceholders(child, subs)
		}
		return out
	default:
		return val
	}
}

// stripNulls recursively removes map entries whose value is nil and, for
// slices, leaves nil elements in place (the schema's content arrays never
// legitimately contain a bare null, so only object leaves are pruned),
// per spec §4.2 step 7: "Recursively strip null leaves before emission."
func stripNulls(node any) {
	switch val := node.(type) {
	case map[string]any:
		for k, child := range val {
			if child == nil {
				delete(val, k)
				continue
			}
			stripNulls(child)
		}
	case []any:
		for _, child := range val {
			stripNulls(child)
		}
	}
}
