package migrations

import "embed"

// FS contains the embedded SQLite migrations of the market store.
//
//go:embed *.sql
var FS embed.FS
