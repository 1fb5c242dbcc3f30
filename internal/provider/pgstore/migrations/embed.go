// Package migrations embeds the relational provider's schema migrations,
// applied with goose at adapter construction.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
