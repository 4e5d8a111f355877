// Package memstore is an in-memory implementation of fantamarket.Store.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/etnz/fantamarket"
)

var _ fantamarket.Store = (*Store)(nil)

// Store keeps everything in memory and is safe for concurrent use.
// Data is lost when the process exits; use the sqlite package for persistence.
type Store struct {
	mu       sync.RWMutex
	teams    map[fantamarket.TeamID]fantamarket.Team
	ledger   map[fantamarket.TeamID]fantamarket.Balance
	players  map[fantamarket.PlayerID]fantamarket.Player
	aliases  []fantamarket.TeamAlias
	mappings []fantamarket.CanonicalMapping
	audits   []fantamarket.ImportAudit
	lastID   int64
	faults   map[string]error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		teams:   make(map[fantamarket.TeamID]fantamarket.Team),
		ledger:  make(map[fantamarket.TeamID]fantamarket.Balance),
		players: make(map[fantamarket.PlayerID]fantamarket.Player),
		faults:  make(map[string]error),
	}
}

// FailNext makes the next call to the method named op return err without applying.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// fault must be called with the write lock held.
func (s *Store) fault(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := s.faults[op]; ok {
		delete(s.faults, op)
		return err
	}
	return nil
}

func (s *Store) nextID() int64 {
	s.lastID++
	return s.lastID
}

// ConditionalDecrement implements fantamarket.LedgerStore.
func (s *Store) ConditionalDecrement(ctx context.Context, team fantamarket.TeamID, amount fantamarket.Credits) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(ctx, "ConditionalDecrement"); err != nil {
		return false, err
	}
	b, ok := s.ledger[team]
	if !ok || b.Current.LessThan(amount) {
		return false, nil
	}
	b.Current = b.Current.Sub(amount)
	s.ledger[team] = b
	return true, nil
}

// Increment implements fantamarket.LedgerStore.
func (s *Store) Increment(ctx context.Context, team fantamarket.TeamID, amount fantamarket.Credits) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(ctx, "Increment"); err != nil {
		return err
	}
	b, ok := s.ledger[team]
	if !ok {
		return fmt.Errorf("ledger of team %s: %w", team, fantamarket.ErrNotFound)
	}
	b.Current = b.Current.Add(amount)
	s.ledger[team] = b
	return nil
}

// Read implements fantamarket.LedgerStore.
func (s *Store) Read(ctx context.Context, team fantamarket.TeamID) (fantamarket.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return fantamarket.Balance{}, err
	}
	b, ok := s.ledger[team]
	if !ok {
		return fantamarket.Balance{}, fmt.Errorf("ledger of team %s: %w", team, fantamarket.ErrNotFound)
	}
	return b, nil
}

// Upsert implements fantamarket.LedgerStore.
func (s *Store) Upsert(ctx context.Context, team fantamarket.TeamID, starting, current fantamarket.Credits) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(ctx, "Upsert"); err != nil {
		return err
	}
	s.ledger[team] = fantamarket.Balance{Starting: starting, Current: current}
	return nil
}

// Materialize implements fantamarket.LedgerStore.
func (s *Store) Materialize(ctx context.Context, team fantamarket.TeamID, cash fantamarket.Credits) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(ctx, "Materialize"); err != nil {
		return false, err
	}
	if _, ok := s.ledger[team]; ok {
		return false, nil
	}
	s.ledger[team] = fantamarket.Balance{Starting: cash, Current: cash}
	return true, nil
}

// Teams implements fantamarket.TeamStore. Teams are sorted by name.
func (s *Store) Teams(ctx context.Context) ([]fantamarket.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	teams := make([]fantamarket.Team, 0, len(s.teams))
	for _, t := range s.teams {
		teams = append(teams, t)
	}
	slices.SortFunc(teams, func(a, b fantamarket.Team) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return teams, nil
}

// Team implements fantamarket.TeamStore.
func (s *Store) Team(ctx context.Context, id fantamarket.TeamID) (fantamarket.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return fantamarket.Team{}, fmt.Errorf("team %s: %w", id, fantamarket.ErrNotFound)
	}
	return t, nil
}

// CreateTeam implements fantamarket.TeamStore.
func (s *Store) CreateTeam(ctx context.Context, t fantamarket.Team) error {
	if t.ID == "" {
		return fmt.Errorf("team ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(ctx, "CreateTeam"); err != nil {
		return err
	}
	if _, exists := s.teams[t.ID]; exists {
		return fmt.Errorf("team %s already exists", t.ID)
	}
	s.teams[t.ID] = t
	return nil
}

// Player implements fantamarket.PlayerStore.
func (s *Store) Player(ctx context.Context, id fantamarket.PlayerID) (fantamarket.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return fantamarket.Player{}, fmt.Errorf("player %d: %w", id, fantamarket.ErrNotFound)
	}
	return p, nil
}

// PlayerByName implements fantamarket.PlayerStore. When several players share the
// normalized name the oldest one is returned.
func (s *Store) PlayerByName(ctx context.Context, name string) (fantamarket.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := fantamarket.NameKey(name)
	var found *fantamarket.Player
	for _, p := range s.players {
		if fantamarket.NameKey(p.Name) == key && (found == nil || p.ID < found.ID) {
			found = &p
		}
	}
	if found == nil {
		return fantamarket.Player{}, fmt.Errorf("player %q: %w", name, fantamarket.ErrNotFound)
	}
	return *found, nil
}

// TeamPlayers implements fantamarket.PlayerStore. Players are sorted by ID.
func (s *Store) TeamPlayers(ctx context.Context, team fantamarket.TeamID) ([]fantamarket.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var players []fantamarket.Player
	for _, p := range s.players {
		if p.Owner == team {
			players = append(players, p)
		}
	}
	slices.SortFunc(players, func(a, b fantamarket.Player) int { return cmp.Compare(a.ID, b.ID) })
	return players, nil
}

// SavePlayer implements fantamarket.PlayerStore.
func (s *Store) SavePlayer(ctx context.Context, p fantamarket.Player) (fantamarket.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(ctx, "SavePlayer"); err != nil {
		return fantamarket.Player{}, err
	}
	if p.ID == 0 {
		p.ID = fantamarket.PlayerID(s.nextID())
	} else if _, ok := s.players[p.ID]; !ok {
		return fantamarket.Player{}, fmt.Errorf("player %d: %w", p.ID, fantamarket.ErrNotFound)
	}
	s.players[p.ID] = p
	return p, nil
}

// Aliases implements fantamarket.AliasStore.
func (s *Store) Aliases(ctx context.Context) ([]fantamarket.TeamAlias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.aliases), nil
}

// AddAlias implements fantamarket.AliasStore.
func (s *Store) AddAlias(ctx context.Context, a fantamarket.TeamAlias) (fantamarket.TeamAlias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(ctx, "AddAlias"); err != nil {
		return fantamarket.TeamAlias{}, err
	}
	if _, ok := s.teams[a.TeamID]; !ok {
		return fantamarket.TeamAlias{}, fmt.Errorf("team %s: %w", a.TeamID, fantamarket.ErrNotFound)
	}
	a.ID = s.nextID()
	s.aliases = append(s.aliases, a)
	return a, nil
}

// DeleteAlias implements fantamarket.AliasStore.
func (s *Store) DeleteAlias(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.aliases, func(a fantamarket.TeamAlias) bool { return a.ID == id })
	if i < 0 {
		return fmt.Errorf("alias %d: %w", id, fantamarket.ErrNotFound)
	}
	s.aliases = slices.Delete(s.aliases, i, i+1)
	return nil
}

// CanonicalMappings implements fantamarket.AliasStore.
func (s *Store) CanonicalMappings(ctx context.Context) ([]fantamarket.CanonicalMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.mappings), nil
}

// PutCanonicalMapping implements fantamarket.AliasStore.
func (s *Store) PutCanonicalMapping(ctx context.Context, m fantamarket.CanonicalMapping) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fantamarket.FoldKey(m.Variant)
	for _, existing := range s.mappings {
		if fantamarket.FoldKey(existing.Variant) == key {
			return false, nil
		}
	}
	s.mappings = append(s.mappings, m)
	return true, nil
}

// RecordImport implements fantamarket.AuditStore.
func (s *Store) RecordImport(ctx context.Context, a fantamarket.ImportAudit) (fantamarket.ImportAudit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = int64(len(s.audits) + 1)
	s.audits = append(s.audits, a)
	return a, nil
}

// ImportAudits implements fantamarket.AuditStore.
func (s *Store) ImportAudits(ctx context.Context) ([]fantamarket.ImportAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.audits), nil
}
