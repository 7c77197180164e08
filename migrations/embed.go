// Package migrations embeds all SQL migration files, so a binary that
// imports it carries them regardless of working directory at deploy time.
// The server binary does not import it.
package migrations

import "embed"

// FS contains all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
