package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

// Migration represents a database migration
type Migration struct {
	Version  string
	Title    string // Human-readable title derived from filename
	UpSQL    string
	DownSQL  string
	Checksum string // SHA256 checksum of UpSQL content
}

// MigrationExecutor applies NNN_name.up.sql files in version order and records
// them in schema_migrations together with a checksum.
type MigrationExecutor struct {
	db *sql.DB
}

// NewMigrationExecutor creates a new migration executor
func NewMigrationExecutor(db *sql.DB) *MigrationExecutor {
	return &MigrationExecutor{db: db}
}

// RunMigrations executes all pending migrations found in source
func (m *MigrationExecutor) RunMigrations(ctx context.Context, source fs.FS) error {
	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := ReadMigrations(source)
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	applied, err := m.appliedChecksums(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	if err := validateChecksums(migrations, applied); err != nil {
		return fmt.Errorf("migration validation failed: %w", err)
	}

	for _, migration := range migrations {
		if _, done := applied[migration.Version]; done {
			continue
		}
		if err := m.executeMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
		slog.Info("Applied migration", "version", migration.Version, "title", migration.Title)
	}

	return nil
}

func (m *MigrationExecutor) createMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			title VARCHAR(500),
			checksum VARCHAR(64),
			applied_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// ReadMigrations reads all migration files from source, sorted by version.
// Files that do not follow the NNN_name.(up|down).sql convention are ignored.
func ReadMigrations(source fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return nil, err
	}

	byVersion := make(map[string]*Migration)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()
		isUp := strings.HasSuffix(filename, ".up.sql")
		isDown := strings.HasSuffix(filename, ".down.sql")
		if !isUp && !isDown {
			continue
		}

		version, rest, found := strings.Cut(filename, "_")
		if !found || version == "" {
			continue
		}

		content, err := fs.ReadFile(source, filename)
		if err != nil {
			return nil, err
		}

		migration := byVersion[version]
		if migration == nil {
			title := strings.TrimSuffix(strings.TrimSuffix(rest, ".up.sql"), ".down.sql")
			migration = &Migration{
				Version: version,
				Title:   strings.ReplaceAll(title, "_", " "),
			}
			byVersion[version] = migration
		}

		if isUp {
			migration.UpSQL = string(content)
			migration.Checksum = calculateChecksum(migration.UpSQL)
		} else {
			migration.DownSQL = string(content)
		}
	}

	var migrations []Migration
	for _, migration := range byVersion {
		if migration.UpSQL != "" {
			migrations = append(migrations, *migration)
		}
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// appliedChecksums returns the checksum of every applied migration keyed by version
func (m *MigrationExecutor) appliedChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version, COALESCE(checksum, '') FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, err
		}
		applied[version] = checksum
	}

	return applied, rows.Err()
}

func (m *MigrationExecutor) executeMigration(ctx context.Context, migration Migration) error {
	return WithTx(ctx, m.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, migration.UpSQL); err != nil {
			return fmt.Errorf("migration SQL failed: %w", err)
		}

		query := `INSERT INTO schema_migrations (version, title, checksum) VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, query, migration.Version, migration.Title, migration.Checksum); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
}

// validateChecksums verifies that applied migrations haven't been modified
func validateChecksums(migrations []Migration, applied map[string]string) error {
	var mismatches []string
	for _, migration := range migrations {
		checksum, exists := applied[migration.Version]
		if !exists || checksum == "" {
			continue
		}
		if checksum != migration.Checksum {
			mismatches = append(mismatches, fmt.Sprintf(
				"\n  Migration %s (%s):\n    Expected checksum: %s\n    Current checksum:  %s",
				migration.Version, migration.Title, checksum, migration.Checksum,
			))
		}
	}

	if len(mismatches) > 0 {
		return fmt.Errorf(
			"applied migrations have been modified:%s\n\n"+
				"Restore the original migration files or add a new migration instead.",
			strings.Join(mismatches, ""),
		)
	}

	return nil
}

// calculateChecksum generates a SHA256 checksum for migration content
func calculateChecksum(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
