package util

import (
	"strings"
	"unicode"
)

// CleanText collapses whitespace runs, NBSP and zero-width spaces included,
// to one space.
func CleanText(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\u200b'
	}), " ")
}

// TrimRunes cuts s to at most n runes.
func TrimRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

var locationLabels = []string{"job location", "place of posting", "location", "posting"}

// NormalizeLocation drops a leading label and repeated parts from a location
// cell, so "Location: Patna | Bihar, patna" becomes "Patna, Bihar".
func NormalizeLocation(loc string) string {
	loc = CleanText(loc)
	lower := strings.ToLower(loc)
	for _, label := range locationLabels {
		if strings.HasPrefix(lower, label) {
			rest := strings.TrimSpace(loc[len(label):])
			if strings.HasPrefix(rest, ":") {
				loc = strings.TrimSpace(rest[1:])
				break
			}
		}
	}

	parts := strings.FieldsFunc(loc, func(r rune) bool { return r == ',' || r == '|' || r == ';' })
	seen := make(map[string]bool, len(parts))
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		k := strings.ToLower(p)
		if p == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return strings.Join(out, ", ")
}
