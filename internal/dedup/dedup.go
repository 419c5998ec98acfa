// Package dedup suppresses near-duplicate article titles within one run. Two
// titles are the same story when their normalized word sets share at least
// threshold tokens. The test is symmetric but not transitive; the filter only
// checks against already-accepted titles in insertion order, first match wins.
package dedup

import (
	"regexp"

	"github.com/raphael-attias/clubcyber/internal/score"
)

// DefaultThreshold is the shared-token count at which two titles are
// considered the same story.
const DefaultThreshold = 3

var wordRe = regexp.MustCompile(`\w+`)

// Tokenize splits a title into its set of lower-cased, diacritics-folded
// word tokens.
func Tokenize(title string) map[string]struct{} {
	words := wordRe.FindAllString(score.Fold(title), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

// SeenTitles accumulates the token sets of titles accepted in the current run.
type SeenTitles struct {
	sets []map[string]struct{}
}

// IsDuplicate reports whether title shares at least threshold tokens with any
// already-registered title.
func (s *SeenTitles) IsDuplicate(title string, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	tokens := Tokenize(title)
	for _, seen := range s.sets {
		if overlap(tokens, seen) >= threshold {
			return true
		}
	}
	return false
}

// Add registers an accepted title.
func (s *SeenTitles) Add(title string) {
	s.sets = append(s.sets, Tokenize(title))
}

// Len returns the number of registered titles.
func (s *SeenTitles) Len() int {
	return len(s.sets)
}
