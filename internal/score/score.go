// Package score assigns a relevance score to article text based on two
// keyword tiers. Matching is presence-only: a keyword counts once no matter
// how often it appears.
package score

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Keywords are the ordinary cybersecurity terms, weight 1 each.
var Keywords = []string{
	"cyber", "sécurité", "faille", "vulnérabilité", "attaque",
	"hacker", "ransomware", "malware", "intrusion", "phishing",
	"IA", "intelligence artificielle", "LLM", "machine learning",
	"OT", "IT", "IoT", "SOC", "SIEM", "botnet", "DDoS",
}

// SuperKeywords flag high-severity content, weight 3 each.
var SuperKeywords = []string{
	"CVE", "zero day", "cyberattaque", "exploit", "RCE",
	"vol de données", "data leak", "breach", "APT", "Zero Trust",
	"sandboxing", "threat intelligence",
}

const superWeight = 3

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lower-cases s and strips diacritics, so "sécurité" matches "securite".
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// Scorer tests keyword containment against folded text.
type Scorer struct {
	keywords []string
	super    []string
}

// New returns a Scorer over the default keyword tiers.
func New() *Scorer {
	return NewWithKeywords(Keywords, SuperKeywords)
}

// NewWithKeywords builds a Scorer from custom tiers, folding every keyword
// once up front.
func NewWithKeywords(keywords, super []string) *Scorer {
	s := &Scorer{
		keywords: make([]string, 0, len(keywords)),
		super:    make([]string, 0, len(super)),
	}
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			s.keywords = append(s.keywords, Fold(k))
		}
	}
	for _, k := range super {
		if k = strings.TrimSpace(k); k != "" {
			s.super = append(s.super, Fold(k))
		}
	}
	return s
}

// Score sums matched keyword weights over the folded text. Zero means the
// article is not relevant.
func (s *Scorer) Score(text string) int {
	folded := Fold(text)
	total := 0
	for _, k := range s.keywords {
		if strings.Contains(folded, k) {
			total++
		}
	}
	for _, k := range s.super {
		if strings.Contains(folded, k) {
			total += superWeight
		}
	}
	return total
}
