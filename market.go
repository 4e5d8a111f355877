package fantamarket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/fantamarket/logger"
	"github.com/google/uuid"
)

// Market assigns, releases and moves players, keeping team cash and rosters consistent.
//
// Budget safety is guaranteed under concurrency by the ledger. Roster limits are checked
// without locking: two concurrent assignments to the last slot of a role may both pass.
type Market struct {
	store   Store
	ledger  *Ledger
	limits  RosterLimits
	timeout time.Duration
}

// NewMarket creates a market over store with the given configuration.
func NewMarket(store Store, cfg Config) *Market {
	return &Market{
		store:   store,
		ledger:  NewLedger(store, cfg.DefaultCredits()),
		limits:  cfg.Limits(),
		timeout: cfg.OpTimeout,
	}
}

// Ledger returns the ledger the market charges.
func (m *Market) Ledger() *Ledger { return m.ledger }

// Limits returns the roster limits the market enforces.
func (m *Market) Limits() RosterLimits { return m.limits }

func (m *Market) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

// AddTeam provisions a team with a fresh ledger record holding cash.
func (m *Market) AddTeam(ctx context.Context, name, league string, cash Credits) (Team, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	name = NormalizeText(name)
	if name == "" {
		return Team{}, &ValidationError{Field: "name", Reason: "team name is required"}
	}
	if err := checkCredits("cash", cash); err != nil {
		return Team{}, err
	}
	t := Team{ID: TeamID(uuid.NewString()), Name: name, League: strings.TrimSpace(league)}
	if err := m.store.CreateTeam(ctx, t); err != nil {
		return Team{}, classify("add team", fmt.Errorf("could not create team %q: %w", name, err))
	}
	if err := m.ledger.Correct(ctx, t.ID, cash, cash); err != nil {
		return Team{}, err
	}
	return t, nil
}

// AddPlayer registers a free agent.
func (m *Market) AddPlayer(ctx context.Context, name string, role Role, realClub string) (Player, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	name = NormalizeText(name)
	if name == "" {
		return Player{}, &ValidationError{Field: "name", Reason: "player name is required"}
	}
	role, err := ParseRole(string(role))
	if err != nil {
		return Player{}, err
	}
	p, err := m.store.SavePlayer(ctx, Player{Name: name, Role: role, RealClub: strings.TrimSpace(realClub)})
	if err != nil {
		return Player{}, classify("add player", fmt.Errorf("could not save player %q: %w", name, err))
	}
	return p, nil
}

// Roster returns the summary of a team's squad.
func (m *Market) Roster(ctx context.Context, team TeamID) (RosterSummary, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	t, err := m.store.Team(ctx, team)
	if err != nil {
		return RosterSummary{}, classify("roster", fmt.Errorf("could not load team %s: %w", team, err))
	}
	b, err := m.ledger.Balance(ctx, team)
	if err != nil {
		return RosterSummary{}, err
	}
	players, err := m.store.TeamPlayers(ctx, team)
	if err != nil {
		return RosterSummary{}, classify("roster", fmt.Errorf("could not load players of %s: %w", team, err))
	}
	return m.limits.Summarize(t, b, players), nil
}

// checkRoster fails with a RosterFullError when team has no slot left for role.
func (m *Market) checkRoster(ctx context.Context, team TeamID, role Role, ignore PlayerID) error {
	roster, err := m.store.TeamPlayers(ctx, team)
	if err != nil {
		return classify("roster check", fmt.Errorf("could not load players of %s: %w", team, err))
	}
	others := roster[:0:0]
	for _, p := range roster {
		if p.ID != ignore {
			others = append(others, p)
		}
	}
	if !m.limits.CanAdd(others, role) {
		return &RosterFullError{Team: team, Role: canonicalRole(role), Limit: m.limits[canonicalRole(role)]}
	}
	return nil
}

func (m *Market) loadPlayer(ctx context.Context, op string, id PlayerID) (Player, error) {
	p, err := m.store.Player(ctx, id)
	if err != nil {
		return Player{}, classify(op, fmt.Errorf("could not load player %d: %w", id, err))
	}
	return p, nil
}

func (m *Market) loadTeam(ctx context.Context, op string, id TeamID) error {
	if id == "" {
		return &ValidationError{Field: "team", Reason: "team is required"}
	}
	if _, err := m.store.Team(ctx, id); err != nil {
		return classify(op, fmt.Errorf("could not load team %s: %w", id, err))
	}
	return nil
}

// Assign buys a free agent for team at cost with a contract of years (1 to 3).
// option is only kept for contracts shorter than three years.
//
// A failed Assign leaves the ledger and the player unchanged.
func (m *Market) Assign(ctx context.Context, id PlayerID, team TeamID, cost Credits, years int, option bool) (Player, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := validateContract(cost, years); err != nil {
		return Player{}, err
	}
	if err := m.loadTeam(ctx, "assign", team); err != nil {
		return Player{}, err
	}
	p, err := m.loadPlayer(ctx, "assign", id)
	if err != nil {
		return Player{}, err
	}
	if !p.IsFreeAgent() {
		return Player{}, &AlreadyAssignedError{Player: id, Owner: p.Owner}
	}
	if err := m.checkRoster(ctx, team, p.Role, id); err != nil {
		return Player{}, err
	}
	res, err := m.ledger.Charge(ctx, team, cost)
	if err != nil {
		return Player{}, err
	}
	if !res.OK {
		return Player{}, &InsufficientFundsError{Team: team, Needed: cost, Available: res.Available}
	}

	p.Owner = team
	p.Cost = cost
	p.ContractYears = years
	p.Option = option && years < MaxContractYears
	saved, err := m.store.SavePlayer(ctx, p)
	if err != nil {
		m.compensate(ctx, team, cost, true)
		return Player{}, classify("assign", fmt.Errorf("could not save player %d: %w", id, err))
	}
	logger.FromContext(ctx).Info().Int64("player", int64(id)).Str("team", string(team)).Str("cost", cost.Plain()).Msg("player assigned")
	return saved, nil
}

// Release frees a player and refunds its owner for the cost paid.
func (m *Market) Release(ctx context.Context, id PlayerID) (Player, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	p, err := m.loadPlayer(ctx, "release", id)
	if err != nil {
		return Player{}, err
	}
	if p.IsFreeAgent() {
		return Player{}, &NotAssignedError{Player: id}
	}
	owner, cost := p.Owner, p.Cost
	if err := m.ledger.Refund(ctx, owner, cost); err != nil {
		return Player{}, err
	}
	p.Owner = ""
	p.Cost = Credits{}
	p.ContractYears = 0
	p.Option = false
	saved, err := m.store.SavePlayer(ctx, p)
	if err != nil {
		m.compensate(ctx, owner, cost, false)
		return Player{}, classify("release", fmt.Errorf("could not save player %d: %w", id, err))
	}
	logger.FromContext(ctx).Info().Int64("player", int64(id)).Str("team", string(owner)).Str("refund", cost.Plain()).Msg("player released")
	return saved, nil
}

// Move reassigns an owned player to team at newCost, as when a player row is edited.
//
// Within the same team only the difference between the costs is charged or refunded.
// Between teams the current owner is refunded first, then the new owner is charged. If that
// charge is refused Move fails with an InsufficientFundsError and the refund is NOT
// reversed: the player keeps its previous owner and cost while the previous owner already got
// its money back, until an operator retries with a lower cost or corrects the ledger.
func (m *Market) Move(ctx context.Context, id PlayerID, team TeamID, newCost Credits) (Player, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := checkCredits("cost", newCost); err != nil {
		return Player{}, err
	}
	if err := m.loadTeam(ctx, "move", team); err != nil {
		return Player{}, err
	}
	p, err := m.loadPlayer(ctx, "move", id)
	if err != nil {
		return Player{}, err
	}
	if p.IsFreeAgent() {
		return Player{}, &NotAssignedError{Player: id}
	}
	from, oldCost := p.Owner, p.Cost
	log := logger.FromContext(ctx)

	if from == team {
		delta := newCost.Sub(oldCost)
		switch {
		case delta.IsPositive():
			res, err := m.ledger.Charge(ctx, team, delta)
			if err != nil {
				return Player{}, err
			}
			if !res.OK {
				return Player{}, &InsufficientFundsError{Team: team, Needed: delta, Available: res.Available}
			}
		case delta.IsNegative():
			if err := m.ledger.Refund(ctx, team, delta.Neg()); err != nil {
				return Player{}, err
			}
		}
		p.Cost = newCost
		saved, err := m.store.SavePlayer(ctx, p)
		if err != nil {
			if delta.IsPositive() {
				m.compensate(ctx, team, delta, true)
			} else if delta.IsNegative() {
				m.compensate(ctx, team, delta.Neg(), false)
			}
			return Player{}, classify("move", fmt.Errorf("could not save player %d: %w", id, err))
		}
		log.Info().Int64("player", int64(id)).Str("team", string(team)).Str("cost", newCost.Plain()).Msg("player cost changed")
		return saved, nil
	}

	if err := m.checkRoster(ctx, team, p.Role, id); err != nil {
		return Player{}, err
	}
	if oldCost.IsPositive() {
		if err := m.ledger.Refund(ctx, from, oldCost); err != nil {
			return Player{}, err
		}
	}
	res, err := m.ledger.Charge(ctx, team, newCost)
	if err != nil {
		return Player{}, err
	}
	if !res.OK {
		log.Warn().Int64("player", int64(id)).Str("from", string(from)).Str("to", string(team)).
			Str("refunded", oldCost.Plain()).Msg("move refused after refunding the previous owner")
		return Player{}, &InsufficientFundsError{Team: team, Needed: newCost, Available: res.Available}
	}
	p.Owner = team
	p.Cost = newCost
	saved, err := m.store.SavePlayer(ctx, p)
	if err != nil {
		m.compensate(ctx, team, newCost, true)
		return Player{}, classify("move", fmt.Errorf("could not save player %d: %w", id, err))
	}
	log.Info().Int64("player", int64(id)).Str("from", string(from)).Str("to", string(team)).Str("cost", newCost.Plain()).Msg("player moved")
	return saved, nil
}

// compensate reverses a ledger movement whose player update could not be saved.
// charged tells whether the movement was a charge (reversed by a refund) or a refund
// (reversed by a charge). It runs on a fresh context: the operation's own may have expired.
func (m *Market) compensate(ctx context.Context, team TeamID, amount Credits, charged bool) {
	log := logger.FromContext(ctx)
	cctx, cancel := m.withTimeout(context.WithoutCancel(ctx))
	defer cancel()

	var err error
	if charged {
		err = m.ledger.Refund(cctx, team, amount)
	} else {
		var res ChargeResult
		res, err = m.ledger.Charge(cctx, team, amount)
		if err == nil && !res.OK {
			err = errors.New("balance no longer covers the reversal")
		}
	}
	if err != nil {
		log.Error().Err(err).Str("team", string(team)).Str("amount", amount.Plain()).Msg("could not compensate ledger movement, manual correction needed")
		return
	}
	log.Warn().Str("team", string(team)).Str("amount", amount.Plain()).Msg("ledger movement compensated")
}
