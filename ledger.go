package fantamarket

import (
	"context"
	"errors"
	"fmt"

	"github.com/etnz/fantamarket/logger"
)

// ChargeResult is the outcome of a charge.
//
// When OK is false nothing was debited and Available holds the balance observed right
// after the refused charge.
type ChargeResult struct {
	OK        bool
	Available Credits
}

// Ledger moves team cash.
//
// Every mutation goes through the store's atomic primitives: a charge is a single
// conditional decrement, a refund a single increment. The ledger never reads a balance to
// write it back.
type Ledger struct {
	store       LedgerStore
	defaultCash Credits
}

// NewLedger creates a ledger over store. Teams without a record start with defaultCash.
func NewLedger(store LedgerStore, defaultCash Credits) *Ledger {
	return &Ledger{store: store, defaultCash: defaultCash}
}

// DefaultCash returns the cash of a team without a ledger record.
func (l *Ledger) DefaultCash() Credits { return l.defaultCash }

func checkAmount(amount Credits) error { return checkCredits("amount", amount) }

// checkCredits rejects negative values and values finer than a hundredth of a credit.
func checkCredits(field string, c Credits) error {
	if c.IsNegative() {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("negative %s %s", field, c.Plain())}
	}
	return checkPrecision(field, c)
}

func checkPrecision(field string, c Credits) error {
	if !c.Exact() {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%s %s has more than %d decimals", field, c.Plain(), creditFraction)}
	}
	return nil
}

func checkTeam(team TeamID) error {
	if team == "" {
		return &ValidationError{Field: "team", Reason: "team is required"}
	}
	return nil
}

// Charge debits amount from team only if the team can afford it.
func (l *Ledger) Charge(ctx context.Context, team TeamID, amount Credits) (ChargeResult, error) {
	if err := checkTeam(team); err != nil {
		return ChargeResult{}, err
	}
	if err := checkAmount(amount); err != nil {
		return ChargeResult{}, err
	}
	if amount.IsZero() {
		return ChargeResult{OK: true}, nil
	}
	if _, err := l.store.Materialize(ctx, team, l.defaultCash); err != nil {
		return ChargeResult{}, classify("charge", fmt.Errorf("materialize ledger for %s: %w", team, err))
	}
	ok, err := l.store.ConditionalDecrement(ctx, team, amount)
	if err != nil {
		return ChargeResult{}, classify("charge", fmt.Errorf("charge %s: %w", team, err))
	}
	log := logger.FromContext(ctx)
	if ok {
		log.Debug().Str("team", string(team)).Str("amount", amount.Plain()).Msg("charged")
		return ChargeResult{OK: true}, nil
	}
	b, err := l.store.Read(ctx, team)
	if err != nil {
		return ChargeResult{}, classify("charge", fmt.Errorf("read ledger for %s: %w", team, err))
	}
	log.Debug().Str("team", string(team)).Str("amount", amount.Plain()).Str("available", b.Current.Plain()).Msg("charge refused")
	return ChargeResult{OK: false, Available: b.Current}, nil
}

// Refund credits amount to team. It never fails for business reasons.
func (l *Ledger) Refund(ctx context.Context, team TeamID, amount Credits) error {
	if err := checkTeam(team); err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}
	if _, err := l.store.Materialize(ctx, team, l.defaultCash); err != nil {
		return classify("refund", fmt.Errorf("materialize ledger for %s: %w", team, err))
	}
	if err := l.store.Increment(ctx, team, amount); err != nil {
		return classify("refund", fmt.Errorf("refund %s: %w", team, err))
	}
	logger.FromContext(ctx).Debug().Str("team", string(team)).Str("amount", amount.Plain()).Msg("refunded")
	return nil
}

// Transfer refunds from (when known) then charges to.
//
// A refused charge does not reverse the refund: compensating is the caller's decision.
func (l *Ledger) Transfer(ctx context.Context, from, to TeamID, amount Credits) (ChargeResult, error) {
	if err := checkAmount(amount); err != nil {
		return ChargeResult{}, err
	}
	if from != "" {
		if err := l.Refund(ctx, from, amount); err != nil {
			return ChargeResult{}, err
		}
	}
	return l.Charge(ctx, to, amount)
}

// Balance returns the team cash. A team without record reports the default cash; nothing
// is persisted.
func (l *Ledger) Balance(ctx context.Context, team TeamID) (Balance, error) {
	if err := checkTeam(team); err != nil {
		return Balance{}, err
	}
	b, err := l.store.Read(ctx, team)
	if errors.Is(err, ErrNotFound) {
		return Balance{Starting: l.defaultCash, Current: l.defaultCash}, nil
	}
	if err != nil {
		return Balance{}, classify("balance", fmt.Errorf("read ledger for %s: %w", team, err))
	}
	return b, nil
}

// Recompute sets the team cash from an authoritative total of what it spent:
// current = starting - spent. Used by bulk imports, which describe a snapshot rather than
// a movement.
func (l *Ledger) Recompute(ctx context.Context, team TeamID, spent Credits) (Balance, error) {
	b, err := l.Balance(ctx, team)
	if err != nil {
		return Balance{}, err
	}
	b.Current = b.Starting.Sub(spent)
	if err := l.store.Upsert(ctx, team, b.Starting, b.Current); err != nil {
		return Balance{}, classify("recompute", fmt.Errorf("write ledger for %s: %w", team, err))
	}
	return b, nil
}

// Correct overwrites the team cash. It is the manual correction path and the only way a
// balance can become negative.
func (l *Ledger) Correct(ctx context.Context, team TeamID, starting, current Credits) error {
	if err := checkTeam(team); err != nil {
		return err
	}
	if err := checkPrecision("starting", starting); err != nil {
		return err
	}
	if err := checkPrecision("current", current); err != nil {
		return err
	}
	if err := l.store.Upsert(ctx, team, starting, current); err != nil {
		return classify("correct", fmt.Errorf("write ledger for %s: %w", team, err))
	}
	logger.FromContext(ctx).Info().Str("team", string(team)).Str("starting", starting.Plain()).Str("current", current.Plain()).Msg("ledger corrected")
	return nil
}
