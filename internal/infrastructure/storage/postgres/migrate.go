package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"pheezes/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies pending migrations in file name order.
// Applied versions are tracked in schema_migrations; each file runs in its
// own transaction.
func Migrate(ctx context.Context, txm *TxManager) error {
	_, err := txm.GetQuerier(ctx).Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return MapError("create schema_migrations", err)
	}

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	slices.Sort(names)

	for _, name := range names {
		version := strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".sql")
		body, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		applied := false
		err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
			q := txm.GetQuerier(ctx)

			// Serializes concurrent starts of several replicas.
			if _, err := q.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext('schema_migrations'))"); err != nil {
				return MapError("lock migrations", err)
			}

			var exists bool
			if err := q.QueryRow(ctx,
				"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", version,
			).Scan(&exists); err != nil {
				return MapError("check migration", err)
			}
			if exists {
				return nil
			}

			if _, err := q.Exec(ctx, string(body)); err != nil {
				return fmt.Errorf("apply migration %s: %w", version, err)
			}
			if _, err := q.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
				return MapError("record migration", err)
			}
			applied = true
			return nil
		})
		if err != nil {
			return err
		}
		if applied {
			logger.Info(ctx, "migration applied", "version", version)
		}
	}
	return nil
}
