package db

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// getMigrationsFS returns the filesystem holding the migration files.
// The embedded copy is the default; setting STATION_MIGRATIONS_DIR points
// at a local directory instead, for iterating on a migration without
// rebuilding the binary.
func getMigrationsFS() (fs.FS, error) {
	if dir := os.Getenv("STATION_MIGRATIONS_DIR"); dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("migrations path %q is not a directory", dir)
		}
		return os.DirFS(dir), nil
	}

	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return sub, nil
}
