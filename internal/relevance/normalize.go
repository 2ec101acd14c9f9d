package relevance

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases and trims s, folds diacritics, turns whitespace runs
// into single hyphens and strips everything outside [a-z0-9-]. Hyphen runs
// left behind by the stripping collapse to one and edge hyphens are dropped.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	// chain transformers hold state, so one per call
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || r == '-':
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastHyphen = false
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// words splits a normalized string on hyphens and keeps words longer than min
func words(normalized string, min int) []string {
	var out []string
	for _, w := range strings.Split(normalized, "-") {
		if len(w) > min {
			out = append(out, w)
		}
	}
	return out
}

// sharesWord reports whether a and b have a common word longer than min
func sharesWord(a, b string, min int) bool {
	bw := words(b, min)
	if len(bw) == 0 {
		return false
	}
	for _, x := range words(a, min) {
		for _, y := range bw {
			if x == y {
				return true
			}
		}
	}
	return false
}
