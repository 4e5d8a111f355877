package fantamarket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/fantamarket/logger"
	"github.com/google/uuid"
)

// ImportInfo describes where a snapshot comes from, for the audit trail.
type ImportInfo struct {
	Filename string
	User     string
}

// RowProblem is a snapshot line that was not applied.
type RowProblem struct {
	Team   string
	Player string
	Err    error
}

func (p RowProblem) Error() string {
	if p.Player == "" {
		return fmt.Sprintf("%s: %v", p.Team, p.Err)
	}
	return fmt.Sprintf("%s/%s: %v", p.Team, p.Player, p.Err)
}

func (p RowProblem) Unwrap() error { return p.Err }

// ImportSummary is the audit of a bulk import.
type ImportSummary struct {
	Inserted       int
	Updated        int
	AliasesCreated int
	Skipped        int
	// TeamsCreated lists teams that could not be resolved and were created.
	TeamsCreated []Team
	// Resolutions tells how each snapshot team was matched.
	Resolutions []Resolution
	Balances    map[TeamID]Balance
	Problems    []RowProblem
	Message     string
}

// Err joins every row problem, or returns nil.
func (s ImportSummary) Err() error {
	errs := make([]error, len(s.Problems))
	for i, p := range s.Problems {
		errs[i] = p
	}
	return errors.Join(errs...)
}

// Importer applies roster snapshots.
type Importer struct {
	store    Store
	ledger   *Ledger
	resolver *Resolver
}

// NewImporter creates an importer over store, resolving team names with resolver.
func NewImporter(store Store, ledger *Ledger, resolver *Resolver) *Importer {
	return &Importer{store: store, ledger: ledger, resolver: resolver}
}

// Apply makes the store match the snapshot.
//
// Each snapshot team is resolved to a canonical team, or created when nothing matches.
// Each player is upserted by name and given to that team; invalid lines are skipped. Team
// cash is then recomputed from scratch as starting cash minus the cost of the players
// occupying a slot, since the snapshot is authoritative. An audit row is recorded.
func (im *Importer) Apply(ctx context.Context, snap Snapshot, info ImportInfo) (ImportSummary, error) {
	sum := ImportSummary{Balances: make(map[TeamID]Balance)}
	log := logger.FromContext(ctx)

	dir, err := LoadDirectory(ctx, im.store, im.ledger)
	if err != nil {
		return sum, err
	}

	// Players are all upserted before any cash is recomputed: a player moved by the snapshot
	// must no longer weigh on its previous team.
	var recompute []TeamID
	touched := make(map[TeamID]bool)
	touch := func(team TeamID) {
		if team != "" && !touched[team] {
			touched[team] = true
			recompute = append(recompute, team)
		}
	}
	for _, st := range snap.Teams {
		team, created, err := im.resolveTeam(ctx, &dir, st.Name, &sum)
		if err != nil {
			return sum, im.fail(ctx, info, sum, err)
		}
		if created {
			sum.TeamsCreated = append(sum.TeamsCreated, team)
		}
		touch(team.ID)

		for _, sp := range st.Players {
			previous, inserted, err := im.upsertPlayer(ctx, team.ID, sp)
			var verr *ValidationError
			switch {
			case errors.As(err, &verr):
				sum.Skipped++
				sum.Problems = append(sum.Problems, RowProblem{Team: st.Name, Player: sp.Name, Err: err})
				continue
			case err != nil:
				return sum, im.fail(ctx, info, sum, err)
			case inserted:
				sum.Inserted++
			default:
				sum.Updated++
			}
			touch(previous)
		}
	}

	for _, team := range recompute {
		b, err := im.recompute(ctx, team)
		if err != nil {
			return sum, im.fail(ctx, info, sum, err)
		}
		sum.Balances[team] = b
	}

	sum.Message = fmt.Sprintf("%d teams, %d players inserted, %d updated, %d skipped, %d aliases created",
		len(snap.Teams), sum.Inserted, sum.Updated, sum.Skipped, sum.AliasesCreated)
	if _, err := im.store.RecordImport(ctx, im.audit(info, sum, true)); err != nil {
		return sum, classify("import", fmt.Errorf("could not record import audit: %w", err))
	}
	log.Info().
		Int("inserted", sum.Inserted).
		Int("updated", sum.Updated).
		Int("skipped", sum.Skipped).
		Int("aliases", sum.AliasesCreated).
		Msg("snapshot imported")
	return sum, nil
}

// resolveTeam finds the canonical team for a snapshot name, recording the name as an alias
// when it differs from the canonical one, or creates the team.
func (im *Importer) resolveTeam(ctx context.Context, dir *Directory, name string, sum *ImportSummary) (Team, bool, error) {
	res := im.resolver.Resolve(name, *dir, nil)
	if res.Resolved() {
		sum.Resolutions = append(sum.Resolutions, res)
		if res.Team.Name != res.Text {
			_, ok, err := addAlias(ctx, im.store, dir, res.Team.ID, res.Text)
			if err != nil {
				return Team{}, false, err
			}
			if ok {
				sum.AliasesCreated++
			}
		}
		return res.Team, false, nil
	}

	t := Team{ID: TeamID(uuid.NewString()), Name: NormalizeText(name), League: im.resolver.League}
	if err := im.store.CreateTeam(ctx, t); err != nil {
		return Team{}, false, fmt.Errorf("could not create team %q: %w", t.Name, err)
	}
	cash := im.ledger.DefaultCash()
	if err := im.ledger.Correct(ctx, t.ID, cash, cash); err != nil {
		return Team{}, false, err
	}
	dir.Candidates = append(dir.Candidates, Candidate{Team: t, Cash: cash})
	sum.Resolutions = append(sum.Resolutions, Resolution{Text: t.Name, Team: t, Method: Unresolved})
	logger.FromContext(ctx).Info().Str("team", t.Name).Msg("unresolved team created")
	return t, true, nil
}

// upsertPlayer gives the snapshot player to team. It returns the previous owner of an
// existing player and reports whether a row was inserted.
func (im *Importer) upsertPlayer(ctx context.Context, team TeamID, sp SnapshotPlayer) (TeamID, bool, error) {
	role, err := ParseRole(sp.Role)
	if err != nil {
		return "", false, err
	}
	if err := checkCredits("cost", sp.Cost); err != nil {
		return "", false, err
	}

	p, err := im.store.PlayerByName(ctx, sp.Name)
	inserted := errors.Is(err, ErrNotFound)
	if err != nil && !inserted {
		return "", false, fmt.Errorf("could not look up player %q: %w", sp.Name, err)
	}
	if inserted {
		p = Player{Name: NormalizeText(sp.Name)}
	}
	previous := p.Owner
	p.Role = role
	p.RealClub = sp.RealClub
	p.Cost = sp.Cost
	p.Owner = team
	p.ContractYears = 1
	p.Option = false
	if _, err := im.store.SavePlayer(ctx, p); err != nil {
		return "", false, fmt.Errorf("could not save player %q: %w", sp.Name, err)
	}
	return previous, inserted, nil
}

// recompute sets the team cash from the players it owns.
func (im *Importer) recompute(ctx context.Context, team TeamID) (Balance, error) {
	players, err := im.store.TeamPlayers(ctx, team)
	if err != nil {
		return Balance{}, fmt.Errorf("could not load players of %s: %w", team, err)
	}
	var spent Credits
	for _, p := range players {
		if !p.PendingOption() {
			spent = spent.Add(p.Cost)
		}
	}
	return im.ledger.Recompute(ctx, team, spent)
}

func (im *Importer) audit(info ImportInfo, sum ImportSummary, success bool) ImportAudit {
	return ImportAudit{
		At:             time.Now().UTC(),
		Filename:       info.Filename,
		User:           info.User,
		Inserted:       sum.Inserted,
		Updated:        sum.Updated,
		AliasesCreated: sum.AliasesCreated,
		Skipped:        sum.Skipped,
		Success:        success,
		Message:        sum.Message,
	}
}

// fail records a failed import audit on a fresh context and returns err.
func (im *Importer) fail(ctx context.Context, info ImportInfo, sum ImportSummary, err error) error {
	sum.Message = err.Error()
	actx := context.WithoutCancel(ctx)
	if _, aerr := im.store.RecordImport(actx, im.audit(info, sum, false)); aerr != nil {
		logger.FromContext(ctx).Error().Err(aerr).Msg("could not record failed import audit")
	}
	return classify("import", err)
}
