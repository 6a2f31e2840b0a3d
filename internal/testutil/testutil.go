package testutil

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/vault"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/lib/pq"

	"thesis-portal/internal/database"
	"thesis-portal/migrations"
)

// TestDatabase is a migrated PostgreSQL instance running in a container
type TestDatabase struct {
	Container *postgres.PostgresContainer
	DB        *sql.DB
	ConnStr   string
}

// TestVault is a dev-mode Vault server running in a container
type TestVault struct {
	Container *vault.VaultContainer
	Address   string
	Token     string
}

// SetupPostgres starts PostgreSQL, applies the embedded migrations and
// registers cleanup with t. Integration tests are skipped with -short.
func SetupPostgres(t *testing.T) *TestDatabase {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18",
		postgres.WithDatabase("thesis_test"),
		postgres.WithUsername("thesis_test"),
		postgres.WithPassword("thesis_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := database.NewMigrationExecutor(db).RunMigrations(ctx, migrations.FS); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return &TestDatabase{Container: container, DB: db, ConnStr: connStr}
}

// Reset empties every workflow table so tests sharing a container start clean
func (d *TestDatabase) Reset(t *testing.T) {
	t.Helper()
	_, err := d.DB.Exec(`TRUNCATE users, sessions, theses, committee_invitations, thesis_events,
		grades, announcements, canceled_theses RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("Failed to reset database: %v", err)
	}
}

// SetupVault starts a dev-mode Vault server
func SetupVault(t *testing.T) *TestVault {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := vault.Run(ctx,
		"hashicorp/vault:1.15",
		vault.WithToken("test-token"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Vault server started!").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start Vault container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("Failed to terminate Vault container: %v", err)
		}
	})

	addr, err := container.HttpHostAddress(ctx)
	if err != nil {
		t.Fatalf("Failed to get Vault address: %v", err)
	}

	if !strings.HasPrefix(addr, "http") {
		addr = "http://" + addr
	}

	return &TestVault{
		Container: container,
		Address:   addr,
		Token:     "test-token",
	}
}
