package fantamarket_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/etnz/fantamarket"
	"github.com/etnz/fantamarket/memstore"
)

const snapshotDoc = `{
	"fc bioparco": [
		{"name": "Kone'", "role": "Difensore", "cost": 10},
		{"name": "Lookman", "role": "A", "cost": 40},
		{"name": "Nobody", "role": "X", "cost": 5}
	],
	"Nuova Squadra": [
		{"Nome": "Maignan", "Ruolo": "G", "Costo": "12"}
	]
}`

func TestImporter_Apply(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	m := fantamarket.NewMarket(s, fantamarket.DefaultConfig())
	bio, err := m.AddTeam(ctx, "FC Bioparco", "", fantamarket.C(300))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddTeam(ctx, "Real Colizzati", "", fantamarket.C(300)); err != nil {
		t.Fatal(err)
	}
	kone, _ := s.SavePlayer(ctx, fantamarket.Player{Name: "Koné", Role: fantamarket.Defender})
	s.SavePlayer(ctx, fantamarket.Player{Name: "Option Guy", Role: fantamarket.Forward, Owner: bio.ID, Cost: fantamarket.C(100), Option: true})

	resolver, err := fantamarket.NewResolver(fantamarket.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	im := fantamarket.NewImporter(s, m.Ledger(), resolver)

	snap, err := fantamarket.DecodeSnapshot(strings.NewReader(snapshotDoc), "")
	if err != nil {
		t.Fatal(err)
	}
	sum, err := im.Apply(ctx, snap, fantamarket.ImportInfo{Filename: "rose.json", User: "admin"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if sum.Inserted != 2 || sum.Updated != 1 || sum.Skipped != 1 || sum.AliasesCreated != 1 {
		t.Errorf("Apply() = inserted %d, updated %d, skipped %d, aliases %d, want 2, 1, 1, 1",
			sum.Inserted, sum.Updated, sum.Skipped, sum.AliasesCreated)
	}
	var verr *fantamarket.ValidationError
	if !errors.As(sum.Err(), &verr) || verr.Field != "role" {
		t.Errorf("Err() = %v, want the invalid role", sum.Err())
	}
	if len(sum.TeamsCreated) != 1 || sum.TeamsCreated[0].Name != "Nuova Squadra" {
		t.Fatalf("TeamsCreated = %+v, want Nuova Squadra", sum.TeamsCreated)
	}

	// pending option players do not weigh on the cash.
	if got, want := sum.Balances[bio.ID].Current, fantamarket.C(250); !got.Equal(want) {
		t.Errorf("FC Bioparco current = %v, want %v", got, want)
	}
	if got, want := sum.Balances[sum.TeamsCreated[0].ID].Current, fantamarket.C(288); !got.Equal(want) {
		t.Errorf("Nuova Squadra current = %v, want %v", got, want)
	}

	p, _ := s.Player(ctx, kone.ID)
	if p.Owner != bio.ID || !p.Cost.Equal(fantamarket.C(10)) || p.ContractYears != 1 || p.Option {
		t.Errorf("existing player not updated: %+v", p)
	}

	aliases, _ := s.Aliases(ctx)
	if len(aliases) != 1 || aliases[0].Alias != "fc bioparco" || aliases[0].TeamID != bio.ID {
		t.Errorf("Aliases() = %+v, want the snapshot spelling of FC Bioparco", aliases)
	}
	audits, _ := s.ImportAudits(ctx)
	if len(audits) != 1 || !audits[0].Success || audits[0].Filename != "rose.json" || audits[0].Inserted != 2 {
		t.Errorf("ImportAudits() = %+v", audits)
	}

	// applying the same snapshot again changes nothing but the counters.
	sum, err = im.Apply(ctx, snap, fantamarket.ImportInfo{})
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	if sum.Inserted != 0 || sum.Updated != 3 || sum.AliasesCreated != 0 || len(sum.TeamsCreated) != 0 {
		t.Errorf("second Apply() = %+v, want only updates", sum)
	}
	if got, want := sum.Balances[bio.ID].Current, fantamarket.C(250); !got.Equal(want) {
		t.Errorf("FC Bioparco current = %v, want %v", got, want)
	}
}

func TestImporter_FailureIsAudited(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	ledger := fantamarket.NewLedger(s, fantamarket.C(300))
	im := fantamarket.NewImporter(s, ledger, &fantamarket.Resolver{Threshold: 0.6})

	s.FailNext("CreateTeam", context.DeadlineExceeded)
	snap := fantamarket.Snapshot{Teams: []fantamarket.SnapshotTeam{{Name: "Alpha"}}}
	if _, err := im.Apply(ctx, snap, fantamarket.ImportInfo{Filename: "x.json"}); !errors.Is(err, fantamarket.ErrTransient) {
		t.Fatalf("Apply() error = %v, want a transient error", err)
	}
	audits, _ := s.ImportAudits(ctx)
	if len(audits) != 1 || audits[0].Success {
		t.Errorf("ImportAudits() = %+v, want one failed audit", audits)
	}
}

func TestImporter_MovedPlayerLeavesPreviousTeamCash(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	m := fantamarket.NewMarket(s, fantamarket.DefaultConfig())
	alpha, err := m.AddTeam(ctx, "Alpha", "", fantamarket.C(300))
	if err != nil {
		t.Fatal(err)
	}
	beta, err := m.AddTeam(ctx, "Beta", "", fantamarket.C(300))
	if err != nil {
		t.Fatal(err)
	}
	xavi, err := m.AddPlayer(ctx, "Xavi", fantamarket.Midfielder, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Assign(ctx, xavi.ID, alpha.ID, fantamarket.C(50), 1, false); err != nil {
		t.Fatal(err)
	}

	resolver, err := fantamarket.NewResolver(fantamarket.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	im := fantamarket.NewImporter(s, m.Ledger(), resolver)
	// Alpha is applied first, before Xavi is given to Beta.
	snap := fantamarket.Snapshot{Teams: []fantamarket.SnapshotTeam{
		{Name: "Alpha", Players: []fantamarket.SnapshotPlayer{{Name: "Yuri", Role: "D", Cost: fantamarket.C(10)}}},
		{Name: "Beta", Players: []fantamarket.SnapshotPlayer{{Name: "Xavi", Role: "C", Cost: fantamarket.C(50)}}},
	}}
	sum, err := im.Apply(ctx, snap, fantamarket.ImportInfo{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	tests := []struct {
		team fantamarket.Team
		want fantamarket.Credits
	}{
		{alpha, fantamarket.C(290)},
		{beta, fantamarket.C(250)},
	}
	for _, tt := range tests {
		if got := sum.Balances[tt.team.ID].Current; !got.Equal(tt.want) {
			t.Errorf("Balances[%s].Current = %v, want %v", tt.team.Name, got, tt.want)
		}
		b, err := m.Ledger().Balance(ctx, tt.team.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got := b.Current; !got.Equal(tt.want) {
			t.Errorf("Balance(%s).Current = %v, want %v", tt.team.Name, got, tt.want)
		}
	}
}

func TestImporter_MovedPlayerFromTeamOutsideSnapshot(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	m := fantamarket.NewMarket(s, fantamarket.DefaultConfig())
	alpha, _ := m.AddTeam(ctx, "Alpha", "", fantamarket.C(300))
	if _, err := m.AddTeam(ctx, "Beta", "", fantamarket.C(300)); err != nil {
		t.Fatal(err)
	}
	xavi, _ := m.AddPlayer(ctx, "Xavi", fantamarket.Midfielder, "")
	if _, err := m.Assign(ctx, xavi.ID, alpha.ID, fantamarket.C(50), 1, false); err != nil {
		t.Fatal(err)
	}

	resolver, _ := fantamarket.NewResolver(fantamarket.DefaultConfig())
	im := fantamarket.NewImporter(s, m.Ledger(), resolver)
	snap := fantamarket.Snapshot{Teams: []fantamarket.SnapshotTeam{
		{Name: "Beta", Players: []fantamarket.SnapshotPlayer{{Name: "Xavi", Role: "C", Cost: fantamarket.C(50)}}},
	}}
	if _, err := im.Apply(ctx, snap, fantamarket.ImportInfo{}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	b, err := m.Ledger().Balance(ctx, alpha.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := b.Current, fantamarket.C(300); !got.Equal(want) {
		t.Errorf("Alpha current = %v, want %v", got, want)
	}
}
