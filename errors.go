package fantamarket

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// ErrTransient marks store failures that did not apply and may succeed on retry.
var ErrTransient = errors.New("transient store failure")

// InsufficientFundsError reports a charge larger than the available balance.
type InsufficientFundsError struct {
	Team      TeamID
	Needed    Credits
	Available Credits
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for team %s: need %s, have %s", e.Team, e.Needed, e.Available)
}

// AlreadyAssignedError reports an assignment of a player owned by a team.
type AlreadyAssignedError struct {
	Player PlayerID
	Owner  TeamID
}

func (e *AlreadyAssignedError) Error() string {
	return fmt.Sprintf("player %d is already assigned to team %s", e.Player, e.Owner)
}

// NotAssignedError reports a release or move of a free agent.
type NotAssignedError struct {
	Player PlayerID
}

func (e *NotAssignedError) Error() string {
	return fmt.Sprintf("player %d is not assigned to any team", e.Player)
}

// RosterFullError reports a role already at its limit.
type RosterFullError struct {
	Team  TeamID
	Role  Role
	Limit int
}

func (e *RosterFullError) Error() string {
	return fmt.Sprintf("team %s already has the maximum of %d %s players", e.Team, e.Limit, e.Role)
}

// UnresolvedTeamNameError reports a free-text name matching no canonical team.
type UnresolvedTeamNameError struct {
	Text string
}

func (e *UnresolvedTeamNameError) Error() string {
	return fmt.Sprintf("unresolved team name %q", e.Text)
}

// ValidationError reports bad input, rejected before the ledger is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransientError reports a store failure (timeout, cancellation, lock contention).
// The operation did not partially apply.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Is(target error) bool { return target == ErrTransient }

// IsTransient reports whether err should be surfaced as a transient failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// classify wraps store failures as transient errors, leaving other errors untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransientError
	if errors.As(err, &te) {
		return err
	}
	if IsTransient(err) {
		return &TransientError{Op: op, Err: err}
	}
	return err
}
