package main

//go:generate swag init -g cmd/api/main.go -o docs --dir ../../

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"

	_ "thesis-portal/docs" // This is for Swagger
	"thesis-portal/internal/auth"
	"thesis-portal/internal/config"
	"thesis-portal/internal/database"
	"thesis-portal/internal/email"
	"thesis-portal/internal/handlers"
	"thesis-portal/internal/logger"
	"thesis-portal/internal/middleware"
	"thesis-portal/internal/repository"
	"thesis-portal/internal/scheduler"
	"thesis-portal/internal/service"
	"thesis-portal/internal/vault"
	"thesis-portal/migrations"
)

// @title Thesis Portal API
// @version 1.0
// @description Backend API for thesis assignment, committee formation, grading and examination protocols

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}()
	slog.Info("Database connection established")

	// Run database migrations
	var source fs.FS = migrations.FS
	if cfg.Database.MigrationsPath != "" {
		source = os.DirFS(cfg.Database.MigrationsPath)
	}
	if err := database.NewMigrationExecutor(db.DB).RunMigrations(ctx, source); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations completed")

	// Initialize repositories
	store := repository.NewStore(db.DB)
	queries := repository.NewQueryRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)

	healthChecks := map[string]handlers.HealthChecker{"database": db}

	// Grade comments are encrypted only when Vault is enabled
	var cipher service.CommentCipher
	if cfg.Vault.Enabled {
		slog.Info("Vault is enabled - initializing comment encryption")
		vaultClient, err := vault.NewClient(ctx, &vault.Config{
			Address:      cfg.Vault.Address,
			Token:        cfg.Vault.Token,
			TransitMount: cfg.Vault.TransitMount,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Vault client: %w", err)
		}
		commentCipher, err := vault.NewCommentCipher(ctx, vaultClient, cfg.Vault.KeyName)
		if err != nil {
			return fmt.Errorf("failed to initialize comment encryption: %w", err)
		}
		cipher = commentCipher
		healthChecks["vault"] = handlers.HealthCheckerFunc(vaultClient.Health)
		slog.Info("Comment encryption initialized", "vault_addr", cfg.Vault.Address)
	} else {
		slog.Warn("Vault is disabled - grade comments are stored in plain text")
	}

	// Initialize services
	authService := auth.NewService(&cfg.JWT)
	emailService := email.NewService(&cfg.Email, cfg.App.Name)
	authSvc := service.NewAuthService(store.Users, sessionRepo, authService)
	thesisService := service.NewThesisService(store, queries, emailService)
	committeeService := service.NewCommitteeService(store, queries, emailService)
	gradingService := service.NewGradingService(store, cipher)
	protocolService := service.NewProtocolService(store, queries, cfg.App.Department)

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authSvc)
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit)

	// Background jobs
	jobs := scheduler.NewScheduler()
	if cfg.Scheduler.Enabled {
		err := jobs.Add("session_cleanup", cfg.Scheduler.SessionCleanupCron, func(ctx context.Context) error {
			removed, err := authSvc.CleanupExpiredSessions(ctx)
			if err != nil {
				return err
			}
			if removed > 0 {
				slog.Info("Expired sessions removed", "count", removed)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	jobs.Every("rate_limit_eviction", time.Minute, func(ctx context.Context) error {
		rateLimiter.EvictIdle(3 * time.Minute)
		return nil
	})

	// Setup router
	mux := http.NewServeMux()
	api := &handlers.Handlers{
		Auth:      handlers.NewAuthHandler(authSvc),
		Theses:    handlers.NewThesisHandler(thesisService),
		Committee: handlers.NewCommitteeHandler(committeeService),
		Grading:   handlers.NewGradingHandler(gradingService),
		Protocol:  handlers.NewProtocolHandler(protocolService),
		Health:    handlers.NewHealthHandler(cfg.App.Version, healthChecks),
	}
	api.Register(mux, authMw)

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.RequestID(
		middleware.LoggingMiddleware(
			middleware.SecurityHeaders(
				corsMw.Handler(
					rateLimiter.Limit(mux),
				),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		jobs.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server stopped")
	return nil
}
