// Package risklake holds the embedded SQL migrations for the risk lake schema.
package risklake

import "embed"

//go:embed migrations/*.sql
var MigrationsFS embed.FS
