package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/etnz/fantamarket"
)

func openTempStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store, path
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	store, path := openTempStore(t)
	ctx := context.Background()
	if err := store.CreateTeam(ctx, fantamarket.Team{ID: "alpha", Name: "Alpha"}); err != nil {
		t.Fatalf("create team: %v", err)
	}

	again, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer again.Close()
	teams, err := again.Teams(ctx)
	if err != nil {
		t.Fatalf("list teams: %v", err)
	}
	if len(teams) != 1 || teams[0].Name != "Alpha" {
		t.Fatalf("teams = %+v, want Alpha", teams)
	}
}

func TestLedgerPrimitives(t *testing.T) {
	store, _ := openTempStore(t)
	ctx := context.Background()

	if _, err := store.Read(ctx, "alpha"); !errors.Is(err, fantamarket.ErrNotFound) {
		t.Fatalf("read missing = %v, want ErrNotFound", err)
	}
	if created, err := store.Materialize(ctx, "alpha", fantamarket.C(300)); err != nil || !created {
		t.Fatalf("materialize = %v, %v, want true", created, err)
	}
	if created, err := store.Materialize(ctx, "alpha", fantamarket.C(1)); err != nil || created {
		t.Fatalf("second materialize = %v, %v, want false", created, err)
	}
	if ok, err := store.ConditionalDecrement(ctx, "alpha", fantamarket.C(50.25)); err != nil || !ok {
		t.Fatalf("decrement = %v, %v, want true", ok, err)
	}
	if ok, err := store.ConditionalDecrement(ctx, "alpha", fantamarket.C(1000)); err != nil || ok {
		t.Fatalf("decrement beyond balance = %v, %v, want false", ok, err)
	}
	if err := store.Increment(ctx, "alpha", fantamarket.C(0.25)); err != nil {
		t.Fatalf("increment: %v", err)
	}
	b, err := store.Read(ctx, "alpha")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !b.Starting.Equal(fantamarket.C(300)) || !b.Current.Equal(fantamarket.C(250)) {
		t.Fatalf("balance = %+v, want 300/250", b)
	}
	if err := store.Increment(ctx, "ghost", fantamarket.C(1)); !errors.Is(err, fantamarket.ErrNotFound) {
		t.Fatalf("increment missing = %v, want ErrNotFound", err)
	}
	if err := store.Upsert(ctx, "alpha", fantamarket.C(500), fantamarket.C(-5)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	b, _ = store.Read(ctx, "alpha")
	if !b.Starting.Equal(fantamarket.C(500)) || !b.Current.Equal(fantamarket.C(-5)) {
		t.Fatalf("balance = %+v, want 500/-5", b)
	}
}

func TestConcurrentCharges(t *testing.T) {
	store, _ := openTempStore(t)
	ctx := context.Background()
	ledger := fantamarket.NewLedger(store, fantamarket.C(100))

	const workers = 40
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ledger.Charge(ctx, "alpha", fantamarket.C(3))
			if err != nil {
				t.Errorf("charge: %v", err)
				return
			}
			if res.OK {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != 33 {
		t.Fatalf("accepted = %d, want 33", accepted)
	}
	b, err := ledger.Balance(ctx, "alpha")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !b.Current.Equal(fantamarket.C(1)) {
		t.Fatalf("current = %v, want 1", b.Current)
	}
}

func TestSubCentChargeIsRejected(t *testing.T) {
	store, _ := openTempStore(t)
	ctx := context.Background()
	ledger := fantamarket.NewLedger(store, fantamarket.C(300))

	for range 3 {
		var verr *fantamarket.ValidationError
		if _, err := ledger.Charge(ctx, "alpha", fantamarket.C(0.004)); !errors.As(err, &verr) {
			t.Fatalf("Charge(0.004) error = %v, want ValidationError", err)
		}
	}
	res, err := ledger.Charge(ctx, "alpha", fantamarket.C(0.01))
	if err != nil || !res.OK {
		t.Fatalf("Charge(0.01) = %+v, %v, want OK", res, err)
	}
	b, err := ledger.Balance(ctx, "alpha")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !b.Current.Equal(fantamarket.C(299.99)) {
		t.Fatalf("current = %v, want 299.99", b.Current)
	}
}

func TestPlayers(t *testing.T) {
	store, _ := openTempStore(t)
	ctx := context.Background()
	if err := store.CreateTeam(ctx, fantamarket.Team{ID: "alpha", Name: "Alpha", League: "serie-a"}); err != nil {
		t.Fatalf("create team: %v", err)
	}
	if err := store.CreateTeam(ctx, fantamarket.Team{ID: "alpha", Name: "Again"}); err == nil {
		t.Fatal("expected duplicate team error")
	}

	p, err := store.SavePlayer(ctx, fantamarket.Player{Name: "Koné", Role: fantamarket.Midfielder, RealClub: "Roma"})
	if err != nil {
		t.Fatalf("insert player: %v", err)
	}
	found, err := store.PlayerByName(ctx, "Kone'")
	if err != nil {
		t.Fatalf("find player: %v", err)
	}
	if found.ID != p.ID || !found.IsFreeAgent() || found.ContractYears != 0 {
		t.Fatalf("found = %+v, want free agent %d", found, p.ID)
	}

	p.Owner = "alpha"
	p.Cost = fantamarket.C(12.5)
	p.ContractYears = 2
	p.Option = true
	if _, err := store.SavePlayer(ctx, p); err != nil {
		t.Fatalf("update player: %v", err)
	}
	players, err := store.TeamPlayers(ctx, "alpha")
	if err != nil {
		t.Fatalf("team players: %v", err)
	}
	if len(players) != 1 {
		t.Fatalf("players = %+v, want one", players)
	}
	got := players[0]
	if got.Owner != "alpha" || !got.Cost.Equal(fantamarket.C(12.5)) || got.ContractYears != 2 || !got.Option || got.RealClub != "Roma" {
		t.Fatalf("player = %+v", got)
	}

	if _, err := store.SavePlayer(ctx, fantamarket.Player{ID: 999, Name: "ghost", Role: fantamarket.Forward}); !errors.Is(err, fantamarket.ErrNotFound) {
		t.Fatalf("update missing = %v, want ErrNotFound", err)
	}
	if _, err := store.Player(ctx, 999); !errors.Is(err, fantamarket.ErrNotFound) {
		t.Fatalf("get missing = %v, want ErrNotFound", err)
	}
}

func TestAliasesAndMappings(t *testing.T) {
	store, _ := openTempStore(t)
	ctx := context.Background()
	store.CreateTeam(ctx, fantamarket.Team{ID: "alpha", Name: "Alpha"})

	first, err := store.AddAlias(ctx, fantamarket.TeamAlias{TeamID: "alpha", Alias: "Alfa"})
	if err != nil {
		t.Fatalf("add alias: %v", err)
	}
	second, _ := store.AddAlias(ctx, fantamarket.TeamAlias{TeamID: "alpha", Alias: "ALFA"})
	removed, err := fantamarket.DedupAliases(ctx, store)
	if err != nil {
		t.Fatalf("dedup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	aliases, _ := store.Aliases(ctx)
	if len(aliases) != 1 || aliases[0] != first {
		t.Fatalf("aliases = %+v, want only %+v", aliases, first)
	}
	if err := store.DeleteAlias(ctx, second.ID); !errors.Is(err, fantamarket.ErrNotFound) {
		t.Fatalf("delete removed alias = %v, want ErrNotFound", err)
	}

	if ok, err := store.PutCanonicalMapping(ctx, fantamarket.CanonicalMapping{Variant: "Alfa Team", Canonical: "Alpha"}); err != nil || !ok {
		t.Fatalf("put mapping = %v, %v", ok, err)
	}
	if ok, _ := store.PutCanonicalMapping(ctx, fantamarket.CanonicalMapping{Variant: "alfa  team", Canonical: "Beta"}); ok {
		t.Fatal("mapping of a known variant was stored")
	}
	mappings, _ := store.CanonicalMappings(ctx)
	if len(mappings) != 1 || mappings[0].Canonical != "Alpha" {
		t.Fatalf("mappings = %+v", mappings)
	}
}

func TestImportAudits(t *testing.T) {
	store, _ := openTempStore(t)
	ctx := context.Background()
	at := time.Date(2025, 8, 30, 21, 0, 0, 0, time.UTC)
	recorded, err := store.RecordImport(ctx, fantamarket.ImportAudit{At: at, Filename: "rose.json", User: "admin", Inserted: 3, Success: true, Message: "ok"})
	if err != nil {
		t.Fatalf("record import: %v", err)
	}
	audits, err := store.ImportAudits(ctx)
	if err != nil {
		t.Fatalf("list imports: %v", err)
	}
	if len(audits) != 1 || audits[0] != recorded {
		t.Fatalf("audits = %+v, want %+v", audits, recorded)
	}
}

func TestMarketOnSQLite(t *testing.T) {
	store, _ := openTempStore(t)
	ctx := context.Background()
	m := fantamarket.NewMarket(store, fantamarket.DefaultConfig())
	alpha, err := m.AddTeam(ctx, "Alpha", "", fantamarket.C(300))
	if err != nil {
		t.Fatalf("add team: %v", err)
	}
	x, _ := store.SavePlayer(ctx, fantamarket.Player{Name: "Player X", Role: fantamarket.Forward})

	if _, err := m.Assign(ctx, x.ID, alpha.ID, fantamarket.C(50), 1, true); err != nil {
		t.Fatalf("assign: %v", err)
	}
	b, _ := m.Ledger().Balance(ctx, alpha.ID)
	if !b.Current.Equal(fantamarket.C(250)) {
		t.Fatalf("current = %v, want 250", b.Current)
	}
	if _, err := m.Release(ctx, x.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	b, _ = m.Ledger().Balance(ctx, alpha.ID)
	if !b.Current.Equal(fantamarket.C(300)) {
		t.Fatalf("current = %v, want 300", b.Current)
	}
}
