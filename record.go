package reflexion

// Accessors for the untyped argument records handed over by the transport.
// JSON decoding yields float64 for every number, but handlers may also be
// called directly from Go code, so integer types are accepted as well.

func stringField(rec map[string]any, key string) (string, bool) {
	v, ok := rec[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func boolField(rec map[string]any, key string) (bool, bool) {
	v, ok := rec[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func numberField(rec map[string]any, key string) (float64, bool) {
	v, ok := rec[key]
	if !ok {
		return 0, false
	}
	return asNumber(v)
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// stringSliceField extracts a sequence field, keeping only its string
// elements. The second return is false when the field is absent or not a
// sequence at all.
func stringSliceField(rec map[string]any, key string) ([]string, bool) {
	v, ok := rec[key]
	if !ok {
		return nil, false
	}

	switch seq := v.(type) {
	case []string:
		out := make([]string, len(seq))
		copy(out, seq)
		return out, true
	case []any:
		out := make([]string, 0, len(seq))
		for _, elem := range seq {
			if s, ok := elem.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}
