package utils

import "strings"

func StringJoin(items []string, delim string) string {
	return strings.Join(items, delim)
}

// FirstNonEmpty returns the first value that is not blank, trimmed.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
