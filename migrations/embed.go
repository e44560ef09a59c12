// Package migrations compiles the gardend schema SQL into the binary, so a
// controller deploy is one executable plus config.yaml — no SQL files to
// ship alongside.
package migrations

import (
	"embed"

	"github.com/codezcracker/smart-garden-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // files sit at the root of this FS
}
