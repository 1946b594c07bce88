package warehouse

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/macrolabs/risklake"
)

// RunMigrations executes all SQL migration files from the embedded filesystem.
// Migrations are executed in filename order (0001_*.sql, 0002_*.sql, etc.) and
// are written to be re-runnable (CREATE TABLE IF NOT EXISTS).
func RunMigrations(ctx context.Context, log *slog.Logger, conn Connection) error {
	entries, err := risklake.MigrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrationFiles []fs.DirEntry
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrationFiles = append(migrationFiles, entry)
		}
	}

	sort.Slice(migrationFiles, func(i, j int) bool {
		return migrationFiles[i].Name() < migrationFiles[j].Name()
	})

	if len(migrationFiles) == 0 {
		log.Warn("no migration files found")
		return nil
	}

	for _, entry := range migrationFiles {
		log.Debug("executing migration", "file", entry.Name())

		content, err := risklake.MigrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		for i, stmt := range splitSQLStatements(string(content)) {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return &StorageUnavailableError{
					Op:  fmt.Sprintf("migration %s (statement %d)", entry.Name(), i+1),
					Err: err,
				}
			}
		}
	}

	log.Info("migrations completed", "count", len(migrationFiles))
	return nil
}

// splitSQLStatements splits SQL content by semicolon, dropping comment-only
// lines and empty statements.
func splitSQLStatements(content string) []string {
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}

	var statements []string
	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
