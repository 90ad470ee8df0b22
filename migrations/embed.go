// Package migrations carries the schema files so binaries can apply them
// without the source tree.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
