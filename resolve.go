package fantamarket

import (
	"context"
	"fmt"

	"github.com/etnz/fantamarket/logger"
)

// MatchMethod tells how a free-text name was resolved.
type MatchMethod int

const (
	Unresolved MatchMethod = iota
	// ByOverride used an operator canonical mapping.
	ByOverride
	// ByName matched a team name exactly.
	ByName
	// ByAlias matched a known alias exactly.
	ByAlias
	// ByFoldedName matched a team name or alias ignoring case and spacing.
	ByFoldedName
	// ByCash picked the team whose cash equals the hint.
	ByCash
	// ByFuzzy picked the most similar team name above the threshold.
	ByFuzzy
)

func (m MatchMethod) String() string {
	switch m {
	case ByOverride:
		return "override"
	case ByName:
		return "name"
	case ByAlias:
		return "alias"
	case ByFoldedName:
		return "folded"
	case ByCash:
		return "cash"
	case ByFuzzy:
		return "fuzzy"
	default:
		return "unresolved"
	}
}

// Candidate is a canonical team as seen by the resolver.
type Candidate struct {
	Team Team
	Cash Credits
}

// Directory is the set of known names the resolver matches against.
type Directory struct {
	Candidates []Candidate
	Aliases    []TeamAlias
	// Overrides maps FoldKey(variant) to a canonical team name.
	Overrides map[string]string
}

// NewDirectory indexes canonical mappings by folded variant.
func NewDirectory(candidates []Candidate, aliases []TeamAlias, mappings []CanonicalMapping) Directory {
	overrides := make(map[string]string, len(mappings))
	for _, m := range mappings {
		key := FoldKey(m.Variant)
		if _, exists := overrides[key]; !exists {
			overrides[key] = m.Canonical
		}
	}
	return Directory{Candidates: candidates, Aliases: aliases, Overrides: overrides}
}

// LoadDirectory reads teams, their current cash, aliases and mappings from the store.
func LoadDirectory(ctx context.Context, store Store, ledger *Ledger) (Directory, error) {
	teams, err := store.Teams(ctx)
	if err != nil {
		return Directory{}, fmt.Errorf("could not list teams: %w", err)
	}
	candidates := make([]Candidate, 0, len(teams))
	for _, t := range teams {
		b, err := ledger.Balance(ctx, t.ID)
		if err != nil {
			return Directory{}, err
		}
		candidates = append(candidates, Candidate{Team: t, Cash: b.Current})
	}
	aliases, err := store.Aliases(ctx)
	if err != nil {
		return Directory{}, fmt.Errorf("could not list aliases: %w", err)
	}
	mappings, err := store.CanonicalMappings(ctx)
	if err != nil {
		return Directory{}, fmt.Errorf("could not list canonical mappings: %w", err)
	}
	return NewDirectory(candidates, aliases, mappings), nil
}

func (d Directory) teamByID(id TeamID) (Team, bool) {
	for _, c := range d.Candidates {
		if c.Team.ID == id {
			return c.Team, true
		}
	}
	return Team{}, false
}

// Resolution is the outcome of resolving a free-text name.
type Resolution struct {
	Text   string
	Team   Team
	Method MatchMethod
	// Score is the similarity for fuzzy matches, 1 for exact ones.
	Score float64
}

// Resolved reports whether a team was found.
func (r Resolution) Resolved() bool { return r.Method != Unresolved }

// Resolver matches free-text team names against canonical teams.
type Resolver struct {
	Scorer    Scorer
	Threshold float64
	// League, when set, is searched first for exact name matches.
	League string
}

// NewResolver returns a resolver using the configured scorer, threshold and league.
func NewResolver(cfg Config) (*Resolver, error) {
	scorer, err := ParseScorer(cfg.Scorer)
	if err != nil {
		return nil, err
	}
	return &Resolver{Scorer: scorer, Threshold: cfg.FuzzyThreshold, League: cfg.League}, nil
}

func (r *Resolver) scorer() Scorer {
	if r.Scorer == nil {
		return TokenScorer()
	}
	return r.Scorer
}

// Resolve finds the canonical team meant by text. Priority:
//  1. operator override on the folded text,
//  2. exact team name (league first),
//  3. exact alias,
//  4. team name or alias ignoring case and spacing,
//  5. the only team whose cash equals cashHint, or the best fuzzy match among several,
//  6. the best fuzzy match among all team names, if it reaches the threshold.
func (r *Resolver) Resolve(text string, dir Directory, cashHint *Credits) Resolution {
	text = NormalizeText(text)
	res := Resolution{Text: text}
	if text == "" {
		return res
	}
	found := func(t Team, m MatchMethod, score float64) Resolution {
		res.Team, res.Method, res.Score = t, m, score
		return res
	}
	key := FoldKey(text)

	if canon, ok := dir.Overrides[key]; ok {
		for _, c := range dir.Candidates {
			if c.Team.Name == canon {
				return found(c.Team, ByOverride, 1)
			}
		}
		// a mapping to an unknown team falls through to automatic resolution.
	}

	if r.League != "" {
		for _, c := range dir.Candidates {
			if c.Team.League == r.League && c.Team.Name == text {
				return found(c.Team, ByName, 1)
			}
		}
	}
	for _, c := range dir.Candidates {
		if c.Team.Name == text {
			return found(c.Team, ByName, 1)
		}
	}

	for _, a := range dir.Aliases {
		if a.Alias == text {
			if t, ok := dir.teamByID(a.TeamID); ok {
				return found(t, ByAlias, 1)
			}
		}
	}

	for _, c := range dir.Candidates {
		if FoldKey(c.Team.Name) == key {
			return found(c.Team, ByFoldedName, 1)
		}
	}
	for _, a := range dir.Aliases {
		if FoldKey(a.Alias) == key {
			if t, ok := dir.teamByID(a.TeamID); ok {
				return found(t, ByFoldedName, 1)
			}
		}
	}

	if cashHint != nil {
		var bucket []Team
		for _, c := range dir.Candidates {
			if c.Cash.Equal(*cashHint) {
				bucket = append(bucket, c.Team)
			}
		}
		switch len(bucket) {
		case 0:
		case 1:
			return found(bucket[0], ByCash, 1)
		default:
			if t, score, ok := r.fuzzy(text, bucket); ok {
				return found(t, ByCash, score)
			}
		}
	}

	teams := make([]Team, len(dir.Candidates))
	for i, c := range dir.Candidates {
		teams[i] = c.Team
	}
	if t, score, ok := r.fuzzy(text, teams); ok {
		return found(t, ByFuzzy, score)
	}
	return res
}

// fuzzy returns the team whose name best matches text, if it reaches the threshold.
func (r *Resolver) fuzzy(text string, teams []Team) (Team, float64, bool) {
	names := make([]string, len(teams))
	for i, t := range teams {
		names[i] = t.Name
	}
	i, score := bestMatch(r.scorer(), text, names)
	if i < 0 || score < r.Threshold {
		return Team{}, score, false
	}
	return teams[i], score, true
}

// AliasRow is a team name found in a legacy source, with the cash it reported there.
type AliasRow struct {
	Text string   `json:"team"`
	Cash *Credits `json:"cash,omitempty"`
}

// AliasReport summarizes a PopulateAliases run.
type AliasReport struct {
	Created    []TeamAlias
	Resolved   []Resolution
	Unresolved []UnresolvedTeamNameError
	// Removed counts alias rows deleted by the final deduplication.
	Removed int
}

// PopulateAliases resolves every row and records its text as an alias of the resolved team,
// unless that team already has the same alias ignoring case. Rows that cannot be resolved
// are reported, not failed. A final pass removes aliases duplicated across teams.
func PopulateAliases(ctx context.Context, store Store, ledger *Ledger, r *Resolver, rows []AliasRow) (AliasReport, error) {
	var report AliasReport
	dir, err := LoadDirectory(ctx, store, ledger)
	if err != nil {
		return report, err
	}
	for _, row := range rows {
		text := NormalizeText(row.Text)
		if text == "" {
			continue
		}
		res := r.Resolve(text, dir, row.Cash)
		if !res.Resolved() {
			report.Unresolved = append(report.Unresolved, UnresolvedTeamNameError{Text: text})
			continue
		}
		report.Resolved = append(report.Resolved, res)
		created, ok, err := addAlias(ctx, store, &dir, res.Team.ID, text)
		if err != nil {
			return report, err
		}
		if ok {
			report.Created = append(report.Created, created)
		}
	}
	removed, err := DedupAliases(ctx, store)
	if err != nil {
		return report, err
	}
	report.Removed = removed
	logger.FromContext(ctx).Info().
		Int("created", len(report.Created)).
		Int("unresolved", len(report.Unresolved)).
		Int("removed", removed).
		Msg("aliases populated")
	return report, nil
}

// addAlias stores text as an alias of team unless it already has it (ignoring case), and
// keeps dir in sync.
func addAlias(ctx context.Context, store AliasStore, dir *Directory, team TeamID, text string) (TeamAlias, bool, error) {
	text = NormalizeText(text)
	key := FoldKey(text)
	for _, a := range dir.Aliases {
		if a.TeamID == team && FoldKey(a.Alias) == key {
			return TeamAlias{}, false, nil
		}
	}
	a, err := store.AddAlias(ctx, TeamAlias{TeamID: team, Alias: text})
	if err != nil {
		return TeamAlias{}, false, fmt.Errorf("could not add alias %q: %w", text, err)
	}
	dir.Aliases = append(dir.Aliases, a)
	return a, true, nil
}

// DedupAliases deletes every alias whose folded text was already seen in an earlier row,
// whatever its team. Afterwards each alias text designates at most one team.
func DedupAliases(ctx context.Context, store AliasStore) (int, error) {
	aliases, err := store.Aliases(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not list aliases: %w", err)
	}
	seen := make(map[string]bool, len(aliases))
	removed := 0
	for _, a := range aliases {
		key := FoldKey(a.Alias)
		if !seen[key] {
			seen[key] = true
			continue
		}
		if err := store.DeleteAlias(ctx, a.ID); err != nil {
			return removed, fmt.Errorf("could not delete duplicate alias %q: %w", a.Alias, err)
		}
		removed++
	}
	return removed, nil
}
