package migrations

import "embed"

// FS holds the schema migrations, one directory per database dialect.
//
//go:embed postgres mysql sqllite3
var FS embed.FS
