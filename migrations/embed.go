// Package migrations embeds the SQL migration files into the binary.
//
// The command journal runs these on startup without needing the files on
// the board's filesystem.
package migrations

import "embed"

// FS holds every migration at its root.
//
//go:embed *.sql
var FS embed.FS
