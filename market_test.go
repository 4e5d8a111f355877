package fantamarket_test

import (
	"context"
	"errors"
	"testing"

	"github.com/etnz/fantamarket"
	"github.com/etnz/fantamarket/memstore"
)

type marketFixture struct {
	market *fantamarket.Market
	store  *memstore.Store
}

func newMarket(t *testing.T) *marketFixture {
	t.Helper()
	s := memstore.New()
	return &marketFixture{market: fantamarket.NewMarket(s, fantamarket.DefaultConfig()), store: s}
}

func (f *marketFixture) team(t *testing.T, name string, cash float64) fantamarket.TeamID {
	t.Helper()
	team, err := f.market.AddTeam(context.Background(), name, "", fantamarket.C(cash))
	if err != nil {
		t.Fatalf("AddTeam(%q) error = %v", name, err)
	}
	return team.ID
}

func (f *marketFixture) player(t *testing.T, name string, role fantamarket.Role) fantamarket.PlayerID {
	t.Helper()
	p, err := f.store.SavePlayer(context.Background(), fantamarket.Player{Name: name, Role: role})
	if err != nil {
		t.Fatalf("SavePlayer(%q) error = %v", name, err)
	}
	return p.ID
}

func (f *marketFixture) current(t *testing.T, team fantamarket.TeamID) fantamarket.Credits {
	t.Helper()
	b, err := f.market.Ledger().Balance(context.Background(), team)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	return b.Current
}

func TestMarket_AssignRelease(t *testing.T) {
	ctx := context.Background()
	f := newMarket(t)
	alpha := f.team(t, "Alpha", 300)
	x := f.player(t, "Player X", fantamarket.Forward)

	p, err := f.market.Assign(ctx, x, alpha, fantamarket.C(50), 1, true)
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if p.Owner != alpha || !p.Cost.Equal(fantamarket.C(50)) || p.ContractYears != 1 || !p.Option {
		t.Errorf("Assign() = %+v", p)
	}
	if got, want := f.current(t, alpha), fantamarket.C(250); !got.Equal(want) {
		t.Errorf("after assign current = %v, want %v", got, want)
	}

	p, err = f.market.Release(ctx, x)
	if err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if !p.IsFreeAgent() || !p.Cost.IsZero() || p.Option {
		t.Errorf("Release() = %+v, want a free agent", p)
	}
	if got, want := f.current(t, alpha), fantamarket.C(300); !got.Equal(want) {
		t.Errorf("after release current = %v, want %v", got, want)
	}
}

func TestMarket_AssignInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	f := newMarket(t)
	beta := f.team(t, "Beta", 10)
	y := f.player(t, "Player Y", fantamarket.Defender)

	_, err := f.market.Assign(ctx, y, beta, fantamarket.C(50), 1, false)
	var ierr *fantamarket.InsufficientFundsError
	if !errors.As(err, &ierr) {
		t.Fatalf("Assign() error = %v, want InsufficientFundsError", err)
	}
	if !ierr.Needed.Equal(fantamarket.C(50)) || !ierr.Available.Equal(fantamarket.C(10)) {
		t.Errorf("InsufficientFundsError = %+v, want needed 50, available 10", ierr)
	}
	if got, want := f.current(t, beta), fantamarket.C(10); !got.Equal(want) {
		t.Errorf("current = %v, want %v", got, want)
	}
	p, _ := f.store.Player(ctx, y)
	if !p.IsFreeAgent() {
		t.Errorf("player was assigned to %s", p.Owner)
	}
}

func TestMarket_AssignErrors(t *testing.T) {
	ctx := context.Background()
	f := newMarket(t)
	alpha := f.team(t, "Alpha", 300)
	beta := f.team(t, "Beta", 300)
	x := f.player(t, "Player X", fantamarket.Forward)
	if _, err := f.market.Assign(ctx, x, alpha, fantamarket.C(10), 2, false); err != nil {
		t.Fatal(err)
	}

	var aerr *fantamarket.AlreadyAssignedError
	if _, err := f.market.Assign(ctx, x, beta, fantamarket.C(10), 1, false); !errors.As(err, &aerr) || aerr.Owner != alpha {
		t.Errorf("Assign(owned) error = %v, want AlreadyAssignedError", err)
	}

	var verr *fantamarket.ValidationError
	free := f.player(t, "Free", fantamarket.Midfielder)
	for _, years := range []int{0, 4} {
		if _, err := f.market.Assign(ctx, free, beta, fantamarket.C(1), years, false); !errors.As(err, &verr) {
			t.Errorf("Assign(years=%d) error = %v, want ValidationError", years, err)
		}
	}
	if _, err := f.market.Assign(ctx, free, beta, fantamarket.C(-1), 1, false); !errors.As(err, &verr) {
		t.Errorf("Assign(negative cost) error = %v, want ValidationError", err)
	}
	if got, want := f.current(t, beta), fantamarket.C(300); !got.Equal(want) {
		t.Errorf("rejected assignments touched the ledger: %v, want %v", got, want)
	}

	var nerr *fantamarket.NotAssignedError
	if _, err := f.market.Release(ctx, free); !errors.As(err, &nerr) {
		t.Errorf("Release(free agent) error = %v, want NotAssignedError", err)
	}
	if _, err := f.market.Move(ctx, free, alpha, fantamarket.C(1)); !errors.As(err, &nerr) {
		t.Errorf("Move(free agent) error = %v, want NotAssignedError", err)
	}
}

func TestMarket_OptionNeedsShortContract(t *testing.T) {
	f := newMarket(t)
	alpha := f.team(t, "Alpha", 300)
	x := f.player(t, "Player X", fantamarket.Forward)
	p, err := f.market.Assign(context.Background(), x, alpha, fantamarket.C(1), 3, true)
	if err != nil {
		t.Fatal(err)
	}
	if p.Option {
		t.Error("option kept on a three years contract")
	}
}

func TestMarket_RosterFull(t *testing.T) {
	ctx := context.Background()
	f := newMarket(t)
	alpha := f.team(t, "Alpha", 300)
	for _, name := range []string{"GK1", "GK2", "GK3"} {
		if _, err := f.market.Assign(ctx, f.player(t, name, fantamarket.Goalkeeper), alpha, fantamarket.C(1), 1, false); err != nil {
			t.Fatalf("Assign(%s) error = %v", name, err)
		}
	}

	_, err := f.market.Assign(ctx, f.player(t, "GK4", fantamarket.Goalkeeper), alpha, fantamarket.C(1), 1, false)
	var rerr *fantamarket.RosterFullError
	if !errors.As(err, &rerr) {
		t.Fatalf("Assign() error = %v, want RosterFullError", err)
	}
	if rerr.Role != fantamarket.Goalkeeper || rerr.Limit != 3 {
		t.Errorf("RosterFullError = %+v, want role P, limit 3", rerr)
	}
	if got, want := f.current(t, alpha), fantamarket.C(297); !got.Equal(want) {
		t.Errorf("current = %v, want %v", got, want)
	}

	summary, err := f.market.Roster(ctx, alpha)
	if err != nil {
		t.Fatalf("Roster() error = %v", err)
	}
	if got := summary.Free(fantamarket.Goalkeeper); got != 0 {
		t.Errorf("Free(P) = %d, want 0", got)
	}
}

func TestMarket_Move(t *testing.T) {
	ctx := context.Background()
	f := newMarket(t)
	a := f.team(t, "Old Team", 300)
	b := f.team(t, "New Team", 300)
	x := f.player(t, "Player X", fantamarket.Midfielder)
	if _, err := f.market.Assign(ctx, x, a, fantamarket.C(20), 1, false); err != nil {
		t.Fatal(err)
	}
	f.market.Ledger().Correct(ctx, a, fantamarket.C(300), fantamarket.C(100))

	p, err := f.market.Move(ctx, x, b, fantamarket.C(30))
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if p.Owner != b || !p.Cost.Equal(fantamarket.C(30)) {
		t.Errorf("Move() = %+v, want owned by the new team at 30", p)
	}
	if got, want := f.current(t, a), fantamarket.C(120); !got.Equal(want) {
		t.Errorf("old team current = %v, want %v", got, want)
	}
	if got, want := f.current(t, b), fantamarket.C(270); !got.Equal(want) {
		t.Errorf("new team current = %v, want %v", got, want)
	}
}

func TestMarket_MoveRefusedKeepsRefund(t *testing.T) {
	ctx := context.Background()
	f := newMarket(t)
	a := f.team(t, "Old Team", 100)
	b := f.team(t, "Poor Team", 10)
	x := f.player(t, "Player X", fantamarket.Midfielder)
	if _, err := f.market.Assign(ctx, x, a, fantamarket.C(20), 1, false); err != nil {
		t.Fatal(err)
	}

	_, err := f.market.Move(ctx, x, b, fantamarket.C(30))
	var ierr *fantamarket.InsufficientFundsError
	if !errors.As(err, &ierr) {
		t.Fatalf("Move() error = %v, want InsufficientFundsError", err)
	}
	if !ierr.Available.Equal(fantamarket.C(10)) {
		t.Errorf("Available = %v, want 10", ierr.Available)
	}
	// the old owner got its money back and keeps it.
	if got, want := f.current(t, a), fantamarket.C(100); !got.Equal(want) {
		t.Errorf("old team current = %v, want %v", got, want)
	}
	if got, want := f.current(t, b), fantamarket.C(10); !got.Equal(want) {
		t.Errorf("new team current = %v, want %v", got, want)
	}
	p, _ := f.store.Player(ctx, x)
	if p.Owner != a || !p.Cost.Equal(fantamarket.C(20)) {
		t.Errorf("player = %+v, want unchanged", p)
	}
}

func TestMarket_MoveWithinTeam(t *testing.T) {
	ctx := context.Background()
	f := newMarket(t)
	a := f.team(t, "Alpha", 300)
	x := f.player(t, "Player X", fantamarket.Forward)
	if _, err := f.market.Assign(ctx, x, a, fantamarket.C(20), 1, false); err != nil {
		t.Fatal(err)
	}

	if _, err := f.market.Move(ctx, x, a, fantamarket.C(50)); err != nil {
		t.Fatalf("Move(raise) error = %v", err)
	}
	if got, want := f.current(t, a), fantamarket.C(250); !got.Equal(want) {
		t.Errorf("after raise current = %v, want %v", got, want)
	}
	if _, err := f.market.Move(ctx, x, a, fantamarket.C(5)); err != nil {
		t.Fatalf("Move(cut) error = %v", err)
	}
	if got, want := f.current(t, a), fantamarket.C(295); !got.Equal(want) {
		t.Errorf("after cut current = %v, want %v", got, want)
	}
}

func TestMarket_SaveFailureIsCompensated(t *testing.T) {
	ctx := context.Background()
	f := newMarket(t)
	alpha := f.team(t, "Alpha", 300)
	x := f.player(t, "Player X", fantamarket.Forward)

	f.store.FailNext("SavePlayer", context.DeadlineExceeded)
	_, err := f.market.Assign(ctx, x, alpha, fantamarket.C(50), 1, false)
	if !errors.Is(err, fantamarket.ErrTransient) {
		t.Fatalf("Assign() error = %v, want a transient error", err)
	}
	if got, want := f.current(t, alpha), fantamarket.C(300); !got.Equal(want) {
		t.Errorf("current = %v, want %v", got, want)
	}
	p, _ := f.store.Player(ctx, x)
	if !p.IsFreeAgent() {
		t.Error("player assigned despite the failure")
	}
}

func TestMarket_AddPlayer(t *testing.T) {
	ctx := context.Background()
	f := newMarket(t)

	p, err := f.market.AddPlayer(ctx, "  Rafael   Leão ", "Attaccante", "Milan")
	if err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}
	if p.ID == 0 || p.Name != "Rafael Leão" || p.Role != fantamarket.Forward || !p.IsFreeAgent() {
		t.Errorf("AddPlayer() = %+v, want a free forward named Rafael Leão", p)
	}

	var verr *fantamarket.ValidationError
	if _, err := f.market.AddPlayer(ctx, "Nobody", "X", ""); !errors.As(err, &verr) {
		t.Errorf("AddPlayer(role X) error = %v, want ValidationError", err)
	}
	if _, err := f.market.AddPlayer(ctx, " ", "P", ""); !errors.As(err, &verr) {
		t.Errorf("AddPlayer(empty name) error = %v, want ValidationError", err)
	}
}
