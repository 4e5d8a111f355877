// Package sqlite provides a SQLite-backed implementation of fantamarket.Store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/etnz/fantamarket"
	"github.com/etnz/fantamarket/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var _ fantamarket.Store = (*Store)(nil)

// maxTries bounds the attempts of a statement refused because the database is locked.
const maxTries = 8

// Store persists the market in a SQLite database.
//
// Credits are stored as integer hundredths. A charge is a single conditional UPDATE, so it
// is atomic across processes sharing the database file.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the SQLite database at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// isBusy reports whether SQLite refused the statement because of a concurrent writer.
func isBusy(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

// retry runs fn again while the database is busy. A statement still refused after maxTries
// is reported as fantamarket.ErrTransient: it did not apply.
func retry[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	v, err := backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !isBusy(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxTries))
	if err != nil && isBusy(err) {
		return v, fmt.Errorf("%s: %w: %w", op, fantamarket.ErrTransient, err)
	}
	if err != nil {
		return v, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	return retry(ctx, op, func() (int64, error) {
		res, err := s.sqlDB.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}

// ConditionalDecrement implements fantamarket.LedgerStore.
func (s *Store) ConditionalDecrement(ctx context.Context, team fantamarket.TeamID, amount fantamarket.Credits) (bool, error) {
	n, err := s.exec(ctx, "conditional decrement",
		`UPDATE ledger SET current = current - ? WHERE team_id = ? AND current >= ?`,
		amount.Minor(), string(team), amount.Minor())
	return n == 1, err
}

// Increment implements fantamarket.LedgerStore.
func (s *Store) Increment(ctx context.Context, team fantamarket.TeamID, amount fantamarket.Credits) error {
	n, err := s.exec(ctx, "increment",
		`UPDATE ledger SET current = current + ? WHERE team_id = ?`,
		amount.Minor(), string(team))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("ledger of team %s: %w", team, fantamarket.ErrNotFound)
	}
	return nil
}

// Read implements fantamarket.LedgerStore.
func (s *Store) Read(ctx context.Context, team fantamarket.TeamID) (fantamarket.Balance, error) {
	return retry(ctx, "read ledger", func() (fantamarket.Balance, error) {
		var starting, current int64
		err := s.sqlDB.QueryRowContext(ctx,
			`SELECT starting, current FROM ledger WHERE team_id = ?`, string(team),
		).Scan(&starting, &current)
		if errors.Is(err, sql.ErrNoRows) {
			return fantamarket.Balance{}, fmt.Errorf("ledger of team %s: %w", team, fantamarket.ErrNotFound)
		}
		if err != nil {
			return fantamarket.Balance{}, err
		}
		return fantamarket.Balance{
			Starting: fantamarket.CreditsFromMinor(starting),
			Current:  fantamarket.CreditsFromMinor(current),
		}, nil
	})
}

// Upsert implements fantamarket.LedgerStore.
func (s *Store) Upsert(ctx context.Context, team fantamarket.TeamID, starting, current fantamarket.Credits) error {
	_, err := s.exec(ctx, "upsert ledger",
		`INSERT INTO ledger (team_id, starting, current) VALUES (?, ?, ?)
		 ON CONFLICT (team_id) DO UPDATE SET starting = excluded.starting, current = excluded.current`,
		string(team), starting.Minor(), current.Minor())
	return err
}

// Materialize implements fantamarket.LedgerStore.
func (s *Store) Materialize(ctx context.Context, team fantamarket.TeamID, cash fantamarket.Credits) (bool, error) {
	n, err := s.exec(ctx, "materialize ledger",
		`INSERT INTO ledger (team_id, starting, current) VALUES (?, ?, ?)
		 ON CONFLICT (team_id) DO NOTHING`,
		string(team), cash.Minor(), cash.Minor())
	return n == 1, err
}

// Teams implements fantamarket.TeamStore. Teams are sorted by name.
func (s *Store) Teams(ctx context.Context) ([]fantamarket.Team, error) {
	return retry(ctx, "list teams", func() ([]fantamarket.Team, error) {
		rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, name, league FROM teams ORDER BY name, id`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var teams []fantamarket.Team
		for rows.Next() {
			var t fantamarket.Team
			if err := rows.Scan(&t.ID, &t.Name, &t.League); err != nil {
				return nil, err
			}
			teams = append(teams, t)
		}
		return teams, rows.Err()
	})
}

// Team implements fantamarket.TeamStore.
func (s *Store) Team(ctx context.Context, id fantamarket.TeamID) (fantamarket.Team, error) {
	return retry(ctx, "get team", func() (fantamarket.Team, error) {
		var t fantamarket.Team
		err := s.sqlDB.QueryRowContext(ctx, `SELECT id, name, league FROM teams WHERE id = ?`, string(id)).
			Scan(&t.ID, &t.Name, &t.League)
		if errors.Is(err, sql.ErrNoRows) {
			return fantamarket.Team{}, fmt.Errorf("team %s: %w", id, fantamarket.ErrNotFound)
		}
		return t, err
	})
}

// CreateTeam implements fantamarket.TeamStore.
func (s *Store) CreateTeam(ctx context.Context, t fantamarket.Team) error {
	if t.ID == "" {
		return fmt.Errorf("team ID is required")
	}
	_, err := s.exec(ctx, "create team",
		`INSERT INTO teams (id, name, league) VALUES (?, ?, ?)`,
		string(t.ID), t.Name, t.League)
	if isUniqueViolation(err) {
		return fmt.Errorf("team %s already exists", t.ID)
	}
	return err
}

const playerColumns = `id, name, role, real_club, cost, owner, contract_years, has_option`

type scanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row scanner) (fantamarket.Player, error) {
	var (
		p     fantamarket.Player
		cost  int64
		owner sql.NullString
		years sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Role, &p.RealClub, &cost, &owner, &years, &p.Option); err != nil {
		return fantamarket.Player{}, err
	}
	p.Cost = fantamarket.CreditsFromMinor(cost)
	p.Owner = fantamarket.TeamID(owner.String)
	p.ContractYears = int(years.Int64)
	return p, nil
}

// Player implements fantamarket.PlayerStore.
func (s *Store) Player(ctx context.Context, id fantamarket.PlayerID) (fantamarket.Player, error) {
	return retry(ctx, "get player", func() (fantamarket.Player, error) {
		p, err := scanPlayer(s.sqlDB.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, int64(id)))
		if errors.Is(err, sql.ErrNoRows) {
			return p, fmt.Errorf("player %d: %w", id, fantamarket.ErrNotFound)
		}
		return p, err
	})
}

// PlayerByName implements fantamarket.PlayerStore. When several players share the
// normalized name the oldest one is returned.
func (s *Store) PlayerByName(ctx context.Context, name string) (fantamarket.Player, error) {
	return retry(ctx, "find player", func() (fantamarket.Player, error) {
		p, err := scanPlayer(s.sqlDB.QueryRowContext(ctx,
			`SELECT `+playerColumns+` FROM players WHERE name_key = ? ORDER BY id LIMIT 1`,
			fantamarket.NameKey(name)))
		if errors.Is(err, sql.ErrNoRows) {
			return p, fmt.Errorf("player %q: %w", name, fantamarket.ErrNotFound)
		}
		return p, err
	})
}

// TeamPlayers implements fantamarket.PlayerStore. Players are sorted by ID.
func (s *Store) TeamPlayers(ctx context.Context, team fantamarket.TeamID) ([]fantamarket.Player, error) {
	return retry(ctx, "list players", func() ([]fantamarket.Player, error) {
		rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+playerColumns+` FROM players WHERE owner = ? ORDER BY id`, string(team))
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var players []fantamarket.Player
		for rows.Next() {
			p, err := scanPlayer(rows)
			if err != nil {
				return nil, err
			}
			players = append(players, p)
		}
		return players, rows.Err()
	})
}

// SavePlayer implements fantamarket.PlayerStore.
func (s *Store) SavePlayer(ctx context.Context, p fantamarket.Player) (fantamarket.Player, error) {
	owner := sql.NullString{String: string(p.Owner), Valid: p.Owner != ""}
	years := sql.NullInt64{Int64: int64(p.ContractYears), Valid: p.ContractYears > 0}
	if p.ID == 0 {
		id, err := retry(ctx, "insert player", func() (int64, error) {
			res, err := s.sqlDB.ExecContext(ctx,
				`INSERT INTO players (name, name_key, role, real_club, cost, owner, contract_years, has_option)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				p.Name, fantamarket.NameKey(p.Name), string(p.Role), p.RealClub, p.Cost.Minor(), owner, years, p.Option)
			if err != nil {
				return 0, err
			}
			return res.LastInsertId()
		})
		if err != nil {
			return fantamarket.Player{}, err
		}
		p.ID = fantamarket.PlayerID(id)
		return p, nil
	}
	n, err := s.exec(ctx, "update player",
		`UPDATE players SET name = ?, name_key = ?, role = ?, real_club = ?, cost = ?, owner = ?,
		 contract_years = ?, has_option = ? WHERE id = ?`,
		p.Name, fantamarket.NameKey(p.Name), string(p.Role), p.RealClub, p.Cost.Minor(), owner, years, p.Option, int64(p.ID))
	if err != nil {
		return fantamarket.Player{}, err
	}
	if n == 0 {
		return fantamarket.Player{}, fmt.Errorf("player %d: %w", p.ID, fantamarket.ErrNotFound)
	}
	return p, nil
}

// Aliases implements fantamarket.AliasStore.
func (s *Store) Aliases(ctx context.Context) ([]fantamarket.TeamAlias, error) {
	return retry(ctx, "list aliases", func() ([]fantamarket.TeamAlias, error) {
		rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, team_id, alias FROM team_aliases ORDER BY id`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var aliases []fantamarket.TeamAlias
		for rows.Next() {
			var a fantamarket.TeamAlias
			if err := rows.Scan(&a.ID, &a.TeamID, &a.Alias); err != nil {
				return nil, err
			}
			aliases = append(aliases, a)
		}
		return aliases, rows.Err()
	})
}

// AddAlias implements fantamarket.AliasStore.
func (s *Store) AddAlias(ctx context.Context, a fantamarket.TeamAlias) (fantamarket.TeamAlias, error) {
	id, err := retry(ctx, "add alias", func() (int64, error) {
		res, err := s.sqlDB.ExecContext(ctx, `INSERT INTO team_aliases (team_id, alias) VALUES (?, ?)`, string(a.TeamID), a.Alias)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	})
	if err != nil {
		return fantamarket.TeamAlias{}, err
	}
	a.ID = id
	return a, nil
}

// DeleteAlias implements fantamarket.AliasStore.
func (s *Store) DeleteAlias(ctx context.Context, id int64) error {
	n, err := s.exec(ctx, "delete alias", `DELETE FROM team_aliases WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("alias %d: %w", id, fantamarket.ErrNotFound)
	}
	return nil
}

// CanonicalMappings implements fantamarket.AliasStore.
func (s *Store) CanonicalMappings(ctx context.Context) ([]fantamarket.CanonicalMapping, error) {
	return retry(ctx, "list mappings", func() ([]fantamarket.CanonicalMapping, error) {
		rows, err := s.sqlDB.QueryContext(ctx, `SELECT variant, canonical FROM canonical_mappings ORDER BY rowid`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var mappings []fantamarket.CanonicalMapping
		for rows.Next() {
			var m fantamarket.CanonicalMapping
			if err := rows.Scan(&m.Variant, &m.Canonical); err != nil {
				return nil, err
			}
			mappings = append(mappings, m)
		}
		return mappings, rows.Err()
	})
}

// PutCanonicalMapping implements fantamarket.AliasStore.
func (s *Store) PutCanonicalMapping(ctx context.Context, m fantamarket.CanonicalMapping) (bool, error) {
	n, err := s.exec(ctx, "put mapping",
		`INSERT INTO canonical_mappings (variant_key, variant, canonical) VALUES (?, ?, ?)
		 ON CONFLICT (variant_key) DO NOTHING`,
		fantamarket.FoldKey(m.Variant), m.Variant, m.Canonical)
	return n == 1, err
}

// RecordImport implements fantamarket.AuditStore.
func (s *Store) RecordImport(ctx context.Context, a fantamarket.ImportAudit) (fantamarket.ImportAudit, error) {
	if a.At.IsZero() {
		a.At = time.Now()
	}
	id, err := retry(ctx, "record import", func() (int64, error) {
		res, err := s.sqlDB.ExecContext(ctx,
			`INSERT INTO import_audits (at, filename, user_name, inserted, updated, aliases_created, skipped, success, message)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			toMillis(a.At), a.Filename, a.User, a.Inserted, a.Updated, a.AliasesCreated, a.Skipped, a.Success, a.Message)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	})
	if err != nil {
		return fantamarket.ImportAudit{}, err
	}
	a.ID = id
	a.At = fromMillis(toMillis(a.At))
	return a, nil
}

// ImportAudits implements fantamarket.AuditStore. Audits are sorted oldest first.
func (s *Store) ImportAudits(ctx context.Context) ([]fantamarket.ImportAudit, error) {
	return retry(ctx, "list imports", func() ([]fantamarket.ImportAudit, error) {
		rows, err := s.sqlDB.QueryContext(ctx,
			`SELECT id, at, filename, user_name, inserted, updated, aliases_created, skipped, success, message
			 FROM import_audits ORDER BY id`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var audits []fantamarket.ImportAudit
		for rows.Next() {
			var (
				a  fantamarket.ImportAudit
				at int64
			)
			if err := rows.Scan(&a.ID, &at, &a.Filename, &a.User, &a.Inserted, &a.Updated, &a.AliasesCreated, &a.Skipped, &a.Success, &a.Message); err != nil {
				return nil, err
			}
			a.At = fromMillis(at)
			audits = append(audits, a)
		}
		return audits, rows.Err()
	})
}
