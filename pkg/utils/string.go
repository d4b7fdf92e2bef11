package utils

import (
	"strings"
	"unicode/utf8"
)

// Ellipsis is appended by TruncateRunes when text is cut.
const Ellipsis = "..."

// NormalizeWhitespace replaces runs of whitespace with a single space.
func NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// TruncateRunes keeps the first maxRunes characters of str and appends
// Ellipsis when anything was removed. A string of exactly maxRunes
// characters is returned unchanged.
func TruncateRunes(str string, maxRunes int) string {
	if maxRunes < 0 || utf8.RuneCountInString(str) <= maxRunes {
		return str
	}

	n := 0
	for i := range str {
		if n == maxRunes {
			return str[:i] + Ellipsis
		}
		n++
	}

	return str
}

// FirstNonEmpty returns the first non-empty value, or "".
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
