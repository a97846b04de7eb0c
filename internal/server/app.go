// Package server wires the application together: configuration, database,
// migrations, services, and the HTTP endpoint, with graceful shutdown on
// SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/avorobjovs/keyguard/internal/cryptox"
	"github.com/avorobjovs/keyguard/internal/logging"
	"github.com/avorobjovs/keyguard/internal/server/config"
	"github.com/avorobjovs/keyguard/internal/server/httpapi"
	"github.com/avorobjovs/keyguard/internal/server/repositories/repomanager"
	"github.com/avorobjovs/keyguard/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	httpServer  *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	deriver := cryptox.NewKeyDeriver(cfg.MasterSecret)

	userService := services.NewUserService(db, rm, cfg)
	credentialService := services.NewCredentialService(db, rm, deriver)
	folderService := services.NewFolderService(db, rm)
	guardianService := services.NewGuardianService(db, rm)
	recoveryService := services.NewRecoveryService(db, rm)

	handler := httpapi.NewHandler(
		userService, credentialService, folderService, guardianService, recoveryService,
		cfg, logger,
	)
	mux := httpapi.NewServeMux(handler, logger)

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		repomanager: rm,
		httpServer:  httpapi.NewServer(cfg.EndpointAddr, mux, logger),
	}, nil
}

func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	defer func() {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err)
		}
	}()

	if err := app.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping error: %w", err)
	}

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddr)

	return app.httpServer.Run(ctx)
}
