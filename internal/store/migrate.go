package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"pos-service/internal/util"

	"go.uber.org/zap"
)

//go:embed migrations
var migrationFS embed.FS

// Migrate applies every embedded .up.sql file for the store's driver that
// has not yet been recorded in schema_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	logger := util.GetLogger()

	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	dir := path.Join("migrations", s.driver)
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return fmt.Errorf("no migrations for driver %s: %w", s.driver, err)
	}

	var versions []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			versions = append(versions, e.Name())
		}
	}
	sort.Strings(versions)

	for _, version := range versions {
		var applied bool
		if err := s.get(ctx, &applied,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", version, err)
		}
		if applied {
			continue
		}

		body, err := migrationFS.ReadFile(path.Join(dir, version))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", version, err)
		}

		err = s.WithTx(ctx, func(q *Queries) error {
			for _, stmt := range splitStatements(string(body)) {
				if _, err := q.ext.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to apply migration %s: %w", version, err)
				}
			}
			_, err := q.exec(ctx,
				"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", version, now())
			return err
		})
		if err != nil {
			return err
		}

		logger.Info("Applied migration", zap.String("version", version))
	}

	return nil
}

// splitStatements splits a migration file on semicolons. Migration files
// must not contain semicolons inside string literals or trigger bodies.
func splitStatements(body string) []string {
	var stmts []string
	for _, part := range strings.Split(body, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
