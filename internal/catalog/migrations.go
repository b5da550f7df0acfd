package catalog

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/yomiyougu/core/internal/yomerr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// runMigrations applies all pending schema migrations via goose's
// Provider API, the same no-global-state, context-aware pattern used
// throughout this module's catalog layer.
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseMigration, err, "preparing migration filesystem")
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseMigration, err, "creating migration provider")
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseMigration, err, "applying migrations")
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}
