package textutil

import (
	"strings"
	"unicode"
)

// NormalizeTitle prepares a title for comparison: case-folded, stripped of
// every character that is not a letter, digit, space, apostrophe, or hyphen,
// with whitespace collapsed to single spaces.
func NormalizeTitle(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	lastSpace := false
	for _, r := range strings.ToLower(input) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens splits a normalized title into its whitespace-separated tokens.
// The input is normalized first, so callers may pass raw titles.
func Tokens(input string) []string {
	normalized := NormalizeTitle(input)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}
