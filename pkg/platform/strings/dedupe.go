// Package strings normalizes user- and config-supplied identifiers such as
// functional area names and role keys.
package strings

import (
	"strings"
)

// Key folds an identifier to its stored form: trimmed and lower-cased.
//
// Example:
//
//	Key("  Finance ") // "finance"
func Key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// KeyList applies Key to every element, dropping blanks and duplicates.
// Order of first occurrence is preserved.
//
// Example:
//
//	KeyList([]string{" Finance", "controlling", "FINANCE", ""})
//	// Returns: []string{"finance", "controlling"}
func KeyList(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		k := Key(v)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			result = append(result, k)
		}
	}

	return result
}
