// Package migrations embeds the PostgreSQL schema so the api binary can migrate
// without a migrations directory next to it.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
