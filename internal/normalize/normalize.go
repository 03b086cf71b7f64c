package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// controlStripper drops control characters that carry no layout meaning.
// Newlines and tabs survive here; the whitespace rules below decide their fate.
var controlStripper = runes.Remove(runes.Predicate(func(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t'
}))

// Normalize cleans extracted or fetched text into a stable plain-text form:
// all line endings become \n, control characters are removed, runs of
// horizontal whitespace collapse to a single space, and three or more
// consecutive newlines collapse to exactly two so paragraph breaks survive
// while excess vertical space does not. The result is trimmed.
//
// Normalize is total and idempotent: it never fails, and applying it to its
// own output returns the same string.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// Line endings first, so a bare \r counts as a line break instead of a
	// control character to strip.
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s, _, _ = transform.String(controlStripper, s)
	s = collapseHorizontal(s)
	s = collapseNewlines(s)
	return strings.TrimSpace(s)
}

// collapseHorizontal rewrites every run of non-newline whitespace as a single
// ASCII space.
func collapseHorizontal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		if r != '\n' && unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}

// collapseNewlines caps runs of consecutive newlines at two.
func collapseNewlines(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	run := 0
	for _, r := range s {
		if r == '\n' {
			run++
			if run <= 2 {
				b.WriteByte('\n')
			}
			continue
		}
		run = 0
		b.WriteRune(r)
	}
	return b.String()
}
