package relevance

import "strings"

// minTermLen is the shortest normalized term that takes part in matching
const minTermLen = 3

// wordMin is the length a word must exceed to count in word matching
const wordMin = 3

// matchRule is one predicate over a normalized location and term
type matchRule struct {
	name string
	fn   func(loc, term string) bool
}

// matchRules are evaluated in order; the first hit wins
var matchRules = []matchRule{
	{"exact", func(loc, term string) bool { return loc == term }},
	{"substring", func(loc, term string) bool {
		return strings.Contains(loc, term) || strings.Contains(term, loc)
	}},
	{"shared_word", func(loc, term string) bool { return sharesWord(loc, term, wordMin) }},
}

// Matches reports whether the free-text location fuzzy-matches any term
func Matches(location string, terms []string) bool {
	_, ok := MatchRule(location, terms)
	return ok
}

// MatchRule is Matches that also names the rule that fired
func MatchRule(location string, terms []string) (string, bool) {
	return matchNormalized(Normalize(location), terms)
}

func matchNormalized(loc string, terms []string) (string, bool) {
	if loc == "" {
		return "", false
	}
	for _, raw := range terms {
		term := Normalize(raw)
		if len(term) < minTermLen {
			continue
		}
		for _, rule := range matchRules {
			if rule.fn(loc, term) {
				return rule.name, true
			}
		}
	}
	return "", false
}
