// Package migrations embeds usage ledger schema migrations.
package migrations

import "embed"

// FS exposes embedded migration files.
//
//go:embed *.sql
var FS embed.FS
