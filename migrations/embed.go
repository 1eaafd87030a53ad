// Package migrations embeds the development schema so goose can apply it
// from cmd/migrate and from integration tests without a filesystem path.
// Production tables are owned by the deployment; these files mirror them.
package migrations

import "embed"

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
