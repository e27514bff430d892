// Command server runs the Civitas API: the public marketing-site API and
// the authenticated admin/moderator panel behind it.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/civitas-institute/civitas/internal/app"
	"github.com/civitas-institute/civitas/internal/config"
	"github.com/civitas-institute/civitas/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration failed", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	db, err := database.NewMariaDB(cfg.Database)
	if err != nil {
		logger.Error("connecting to database failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
		logger.Error("running migrations failed", "error", err)
		os.Exit(1)
	}

	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		logger.Error("connecting to redis failed", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	app.Init()
	a := app.New(cfg, db, rdb, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger: human-readable text in development,
// JSON lines in production.
func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
