package fantamarket

import "context"

// LedgerStore persists one cash record per team.
//
// ConditionalDecrement must be evaluated by the store as a single atomic operation:
// it decrements current by amount only when current >= amount, and reports whether it did.
// Increment must be atomic as well. Implementations return ErrNotFound from Read when the
// team has no record.
type LedgerStore interface {
	ConditionalDecrement(ctx context.Context, team TeamID, amount Credits) (bool, error)
	Increment(ctx context.Context, team TeamID, amount Credits) error
	Read(ctx context.Context, team TeamID) (Balance, error)
	Upsert(ctx context.Context, team TeamID, starting, current Credits) error
	// Materialize creates the record with starting = current = cash, unless it already
	// exists. It reports whether a record was created.
	Materialize(ctx context.Context, team TeamID, cash Credits) (bool, error)
}

// TeamStore persists canonical teams.
type TeamStore interface {
	Teams(ctx context.Context) ([]Team, error)
	Team(ctx context.Context, id TeamID) (Team, error)
	CreateTeam(ctx context.Context, t Team) error
}

// PlayerStore persists players.
type PlayerStore interface {
	Player(ctx context.Context, id PlayerID) (Player, error)
	// PlayerByName finds a player by its normalized name (see NameKey).
	PlayerByName(ctx context.Context, name string) (Player, error)
	TeamPlayers(ctx context.Context, team TeamID) ([]Player, error)
	// SavePlayer inserts the player when its ID is zero, updates it otherwise.
	SavePlayer(ctx context.Context, p Player) (Player, error)
}

// AliasStore persists team aliases and canonical overrides.
type AliasStore interface {
	// Aliases returns all aliases in insertion order.
	Aliases(ctx context.Context) ([]TeamAlias, error)
	AddAlias(ctx context.Context, a TeamAlias) (TeamAlias, error)
	DeleteAlias(ctx context.Context, id int64) error
	CanonicalMappings(ctx context.Context) ([]CanonicalMapping, error)
	// PutCanonicalMapping stores m unless its variant is already mapped, and reports
	// whether it was stored.
	PutCanonicalMapping(ctx context.Context, m CanonicalMapping) (bool, error)
}

// AuditStore persists import audits.
type AuditStore interface {
	RecordImport(ctx context.Context, a ImportAudit) (ImportAudit, error)
	ImportAudits(ctx context.Context) ([]ImportAudit, error)
}

// Store is everything the engine persists.
type Store interface {
	LedgerStore
	TeamStore
	PlayerStore
	AliasStore
	AuditStore
}
