// Package matcher assigns relevance scores to items against the live
// pattern and keeps the ranked list current as items keep arriving from the
// finder. Scoring is time-sliced so large item sets never starve the host.
package matcher

import (
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"
)

// CaseMode controls pattern case sensitivity.
type CaseMode int

const (
	// CaseSmart is case-insensitive until the pattern contains an upper
	// case rune.
	CaseSmart CaseMode = iota
	// CaseIgnore is always case-insensitive.
	CaseIgnore
	// CaseRespect is always case-sensitive.
	CaseRespect
)

// Scorer is the pluggable relevance strategy. Score returns the relevance
// of text under pattern (higher is better) and whether the text matches at
// all; non-matching items never enter the ranked list. Implementations must
// be deterministic for a given (pattern, text) pair.
type Scorer interface {
	Score(pattern, text string) (float64, bool)
}

// FuzzyScorer scores with sahilm/fuzzy subsequence matching.
type FuzzyScorer struct {
	Case CaseMode
}

func (s FuzzyScorer) Score(pattern, text string) (float64, bool) {
	matches := fuzzy.Find(pattern, []string{text})
	if len(matches) == 0 {
		return 0, false
	}
	// The library matches case-insensitively (with a case-match bonus), so
	// sensitivity is enforced as a post-filter.
	if s.sensitive(pattern) && !subsequence(pattern, text) {
		return 0, false
	}
	return float64(matches[0].Score), true
}

func (s FuzzyScorer) sensitive(pattern string) bool {
	switch s.Case {
	case CaseRespect:
		return true
	case CaseSmart:
		return hasUpper(pattern)
	default:
		return false
	}
}

// ExactScorer scores by substring containment: denser matches in shorter
// texts rank first, earlier positions break the density tie.
type ExactScorer struct {
	Case CaseMode
}

func (s ExactScorer) Score(pattern, text string) (float64, bool) {
	p, tx := pattern, text
	switch s.Case {
	case CaseIgnore:
		p, tx = strings.ToLower(p), strings.ToLower(tx)
	case CaseSmart:
		if !hasUpper(pattern) {
			p, tx = strings.ToLower(p), strings.ToLower(tx)
		}
	}
	idx := strings.Index(tx, p)
	if idx < 0 {
		return 0, false
	}
	return 100*float64(len(p))/float64(len(tx)) - float64(idx), true
}

func hasUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// subsequence reports whether pattern appears in text in order,
// case-sensitively.
func subsequence(pattern, text string) bool {
	pr := []rune(pattern)
	if len(pr) == 0 {
		return true
	}
	i := 0
	for _, r := range text {
		if r == pr[i] {
			i++
			if i == len(pr) {
				return true
			}
		}
	}
	return false
}
