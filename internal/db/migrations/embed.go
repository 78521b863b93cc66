// Package migrations embeds the goose-annotated SQL migration files.
package migrations

import "embed"

// FS holds the embedded migration files.
//
//go:embed *.sql
var FS embed.FS
