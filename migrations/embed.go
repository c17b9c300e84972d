// Package migrations embeds the SQL schema files so every binary ships
// with the schema it was built against.
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
