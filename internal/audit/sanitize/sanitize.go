// Package sanitize redacts sensitive values from audit event details before
// anything is persisted or queued.
package sanitize

import "strings"

// Marker replaces every sensitive value.
const Marker = "[REDACTED]"

// sensitiveFragments are matched case-insensitively against key names.
var sensitiveFragments = []string{
	"password",
	"token",
	"secret",
	"key",
	"authorization",
	"cookie",
	"credential",
}

// Sanitize returns a deep copy of details with every value under a sensitive
// key replaced by Marker. The input is never mutated and the function is
// idempotent: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	return sanitizeMap(details)
}

func sanitizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			out[k] = Marker
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return sanitizeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, fragment := range sensitiveFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
