package db

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ApplyMigrations runs every embedded migration that has not been applied
// yet, in filename order, and records each one in schema_migrations.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	var migrationFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrationFiles = append(migrationFiles, entry.Name())
		}
	}
	sort.Strings(migrationFiles)

	for _, fileName := range migrationFiles {
		var alreadyApplied bool
		err := pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)", fileName).Scan(&alreadyApplied)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", fileName, err)
		}
		if alreadyApplied {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + fileName)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", fileName, err)
		}

		logger.Info("applying migration", "file", fileName)
		if _, err = pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", fileName, err)
		}

		if _, err = pool.Exec(ctx, "INSERT INTO schema_migrations (filename) VALUES ($1)", fileName); err != nil {
			return fmt.Errorf("failed to mark migration %s as applied: %w", fileName, err)
		}
	}

	return nil
}

// SeedDefaultCodes populates classification_codes from the built-in default
// tables when the table is empty. Idempotent across restarts.
func SeedDefaultCodes(ctx context.Context, pool *pgxpool.Pool, primary, secondary []string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM classification_codes").Scan(&count); err != nil {
		return fmt.Errorf("failed to count classification codes: %w", err)
	}
	if count > 0 {
		return nil
	}

	seed := func(codes []string, codeType string) error {
		for _, code := range codes {
			if _, err := pool.Exec(ctx,
				"INSERT INTO classification_codes (code, code_type) VALUES ($1, $2) ON CONFLICT DO NOTHING",
				code, codeType); err != nil {
				return fmt.Errorf("failed to seed %s code %s: %w", codeType, code, err)
			}
		}
		return nil
	}

	if err := seed(primary, "primary"); err != nil {
		return err
	}
	if err := seed(secondary, "secondary"); err != nil {
		return err
	}

	logger.Info("seeded default classification codes",
		"primary", len(primary), "secondary", len(secondary))
	return nil
}
