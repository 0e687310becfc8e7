// Package strings holds list helpers shared by form parsing, configuration
// and record normalisation.
package strings

import "strings"

// SplitList splits each value on commas and newlines, trims the parts and
// drops empty ones. The result is never nil.
func SplitList(values ...string) []string {
	out := []string{}
	for _, v := range values {
		for _, part := range strings.FieldsFunc(v, isSeparator) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func isSeparator(r rune) bool {
	return r == ',' || r == '\n' || r == '\r'
}

// DedupeFold trims values, drops empty ones and removes case-insensitive
// duplicates. The first spelling of each value wins and order is preserved.
func DedupeFold(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
