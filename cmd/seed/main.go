// Command seed creates portal accounts from a JSON file.
//
// The file holds an array of users:
//
//	[{"email": "...", "password": "...", "first_name": "...", "last_name": "...", "role": "professor"}]
//
// Accounts that already exist are skipped.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"thesis-portal/internal/auth"
	"thesis-portal/internal/config"
	"thesis-portal/internal/database"
	"thesis-portal/internal/logger"
	"thesis-portal/internal/repository"
	"thesis-portal/internal/service"
	"thesis-portal/migrations"
)

func main() {
	file := flag.String("file", "users.json", "path to the JSON user list")
	flag.Parse()

	if err := run(*file); err != nil {
		slog.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
}

func run(path string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Setup(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	users, err := readUsers(path)
	if err != nil {
		return err
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.NewMigrationExecutor(db.DB).RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	svc := service.NewAuthService(
		repository.NewUserRepository(db.DB),
		repository.NewSessionRepository(db.DB),
		auth.NewService(&cfg.JWT),
	)

	created, skipped := 0, 0
	for _, u := range users {
		user, err := svc.CreateUser(ctx, u)
		if service.CodeOf(err) == service.CodeUserExists {
			slog.Info("User already exists", "email", u.Email)
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("create %s: %w", u.Email, err)
		}
		slog.Info("User created", "id", user.ID, "email", user.Email, "role", user.Role)
		created++
	}

	slog.Info("Seeding completed", "created", created, "skipped", skipped)
	return nil
}

func readUsers(path string) ([]service.NewUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var users []service.NewUser
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return users, nil
}
