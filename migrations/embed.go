// Package migrations embeds the PostgreSQL schema migrations so the binaries
// can apply them without the SQL files on disk.
package migrations

import "embed"

// FS holds the NNNNNN_name.{up,down}.sql files
//
//go:embed *.sql
var FS embed.FS
