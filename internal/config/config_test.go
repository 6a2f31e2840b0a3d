package config

import (
	"testing"
	"time"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error when JWT_SECRET is missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("Expected 25 max open conns, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Vault.Enabled {
		t.Error("Vault should be disabled by default")
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.SessionCleanupCron != "*/30 * * * *" {
		t.Errorf("Unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_EXPIRATION", "90m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.JWT.Expiration != 90*time.Minute {
		t.Errorf("Expected 90m expiration, got %v", cfg.JWT.Expiration)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins: %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.RateLimit.Enabled {
		t.Error("Rate limit should be disabled")
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("Invalid int should fall back to default, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestValidateVaultToken(t *testing.T) {
	cfg := &Config{
		JWT:   JWTConfig{Secret: "s"},
		Vault: VaultConfig{Enabled: true},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error when vault is enabled without token")
	}

	cfg.Vault.Token = "root"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=n sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
