// Package migrations carries the SQL schema migrations compiled into the binaries.
package migrations

import "embed"

// FS holds every *.up.sql / *.down.sql pair in this directory
//
//go:embed *.sql
var FS embed.FS
