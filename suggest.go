package fantamarket

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/etnz/fantamarket/logger"
)

// words that show up in spreadsheet cells but never name a team.
var notTeamWords = []string{
	"ruolo", "crediti", "rose", "calciatori", "giocatori", "portieri", "difensori",
	"centrocampisti", "attaccanti", "totale", "http", "www", "fantacalcio", "lega",
}

var headerLabels = map[string]bool{
	"nome":             true,
	"ruolo":            true,
	"squadra":          true,
	"crediti residui":  true,
	"par":              true,
	"sq.":              true,
	"costo":            true,
	"crediti spesi":    true,
	"crediti iniziali": true,
}

var numericCell = regexp.MustCompile(`^[\d\s.,+-]+$`)

// IsProbableTeamName tells whether a free-text cell could be a team name rather than a
// header, a number, a link or a section title.
func IsProbableTeamName(s string) bool {
	s = NormalizeText(s)
	if len([]rune(s)) < 4 {
		return false
	}
	key := FoldKey(s)
	if headerLabels[key] || numericCell.MatchString(s) {
		return false
	}
	if strings.Contains(key, "://") {
		return false
	}
	for _, w := range notTeamWords {
		if strings.Contains(key, w) {
			return false
		}
	}
	return true
}

// Suggestion proposes a canonical team for a name variant.
type Suggestion struct {
	Variant   string  `json:"variant"`
	BestMatch string  `json:"bestMatch"`
	Score     float64 `json:"score"`
	// HighConfidence is set when the score reaches the threshold.
	HighConfidence bool `json:"highConfidence"`
}

// SuggestMappings scores every probable team name in variants against the canonical team
// names. Variants equal to a canonical name (ignoring case) or already seen are skipped.
func SuggestMappings(variants []string, teams []Team, scorer Scorer, threshold float64) []Suggestion {
	if scorer == nil {
		scorer = TokenScorer()
	}
	names := make([]string, len(teams))
	canonical := make(map[string]bool, len(teams))
	for i, t := range teams {
		names[i] = t.Name
		canonical[FoldKey(t.Name)] = true
	}

	seen := make(map[string]bool)
	var out []Suggestion
	for _, v := range variants {
		v = NormalizeText(v)
		key := FoldKey(v)
		if seen[key] || canonical[key] || !IsProbableTeamName(v) {
			continue
		}
		seen[key] = true
		i, score := bestMatch(scorer, v, names)
		if i < 0 {
			continue
		}
		out = append(out, Suggestion{
			Variant:        v,
			BestMatch:      names[i],
			Score:          score,
			HighConfidence: score >= threshold,
		})
	}
	return out
}

// ApplyMappings stores the high-confidence suggestions as canonical mappings. Variants that
// are already mapped are left alone. With dryRun nothing is written and the returned list
// tells what would be.
func ApplyMappings(ctx context.Context, store AliasStore, suggestions []Suggestion, dryRun bool) ([]CanonicalMapping, error) {
	existing, err := store.CanonicalMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list canonical mappings: %w", err)
	}
	mapped := make(map[string]bool, len(existing))
	for _, m := range existing {
		mapped[FoldKey(m.Variant)] = true
	}

	var applied []CanonicalMapping
	for _, s := range suggestions {
		if !s.HighConfidence || mapped[FoldKey(s.Variant)] {
			continue
		}
		m := CanonicalMapping{Variant: s.Variant, Canonical: s.BestMatch}
		mapped[FoldKey(s.Variant)] = true
		if dryRun {
			applied = append(applied, m)
			continue
		}
		ok, err := store.PutCanonicalMapping(ctx, m)
		if err != nil {
			return applied, fmt.Errorf("could not store mapping %q: %w", m.Variant, err)
		}
		if ok {
			applied = append(applied, m)
		}
	}
	logger.FromContext(ctx).Info().Int("mappings", len(applied)).Bool("dryRun", dryRun).Msg("canonical mappings applied")
	return applied, nil
}
