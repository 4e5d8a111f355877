package fantamarket

import (
	"fmt"
	"slices"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Scorer rates how similar two texts are, from 0 (unrelated) to 1 (identical).
type Scorer interface {
	Score(a, b string) float64
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(a, b string) float64

func (f ScorerFunc) Score(a, b string) float64 { return f(a, b) }

// metricScorer scores folded texts with a strutil metric.
type metricScorer struct {
	metric strutil.StringMetric
}

func (s metricScorer) Score(a, b string) float64 {
	a, b = FoldKey(a), FoldKey(b)
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return strutil.Similarity(a, b, s.metric)
}

// LevenshteinScorer is the normalized edit distance between folded texts.
func LevenshteinScorer() Scorer { return metricScorer{metric: metrics.NewLevenshtein()} }

// JaroWinklerScorer favors texts sharing a common prefix.
func JaroWinklerScorer() Scorer { return metricScorer{metric: metrics.NewJaroWinkler()} }

// SorensenDiceScorer compares bigram sets, ignoring word order.
func SorensenDiceScorer() Scorer { return metricScorer{metric: metrics.NewSorensenDice()} }

// TokenScorer is the default scorer. It takes the best of the edit distance between the
// folded texts, between the texts without spaces ("FCBioparco" vs "FC Bioparco") and between
// their sorted words ("Bioparco FC" vs "FC Bioparco").
func TokenScorer() Scorer {
	lev := LevenshteinScorer()
	return ScorerFunc(func(a, b string) float64 {
		best := lev.Score(a, b)
		if best == 1 {
			return best
		}
		best = max(best, lev.Score(compact(a), compact(b)))
		best = max(best, lev.Score(sortedWords(a), sortedWords(b)))
		return best
	})
}

func compact(s string) string { return strings.Join(strings.Fields(s), "") }

func sortedWords(s string) string {
	words := strings.Fields(FoldKey(s))
	slices.Sort(words)
	return strings.Join(words, " ")
}

// ParseScorer returns the scorer named name: token, levenshtein, jaro-winkler, sorensen-dice.
func ParseScorer(name string) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "token":
		return TokenScorer(), nil
	case "levenshtein":
		return LevenshteinScorer(), nil
	case "jaro-winkler", "jarowinkler":
		return JaroWinklerScorer(), nil
	case "sorensen-dice", "dice":
		return SorensenDiceScorer(), nil
	default:
		return nil, fmt.Errorf("unknown scorer %q", name)
	}
}

// bestMatch returns the index of the candidate scoring best against text, and its score.
// Ties keep the first candidate. It returns -1 when there is no candidate.
func bestMatch(scorer Scorer, text string, candidates []string) (int, float64) {
	best, bestScore := -1, -1.0
	for i, c := range candidates {
		if s := scorer.Score(text, c); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, bestScore
}
