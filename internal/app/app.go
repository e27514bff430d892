// Package app assembles the Civitas server: configuration, database,
// Redis, plugin wiring, middleware, and route registration. cmd/server
// calls New and Start; everything else is internal composition.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/config"
	"github.com/civitas-institute/civitas/internal/metrics"
	"github.com/civitas-institute/civitas/internal/middleware"
)

// App holds the assembled server and its long-lived resources.
type App struct {
	Echo   *echo.Echo
	Config *config.Config
	DB     *sql.DB
	Redis  *redis.Client
	Logger *slog.Logger
}

// New assembles the application from already-connected resources.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client, logger *slog.Logger) *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	a := &App{
		Echo:   e,
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Logger: logger,
	}

	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// setupMiddleware installs the global middleware chain. Order matters:
// recovery outermost, then logging and metrics, then the request-shaping
// layers.
func (a *App) setupMiddleware() {
	e := a.Echo

	middleware.TrustedProxies(e, nil)

	e.Use(middleware.Recovery())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Metrics())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   []string{a.Config.BaseURL},
		AllowCredentials: true,
	}))
	e.Use(middleware.RateLimit(300, time.Minute))
}

// Start runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func (a *App) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", a.Config.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := a.Echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	a.Logger.Info("server listening", "addr", addr, "env", a.Config.Env)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	a.Logger.Info("server stopped")
	return nil
}

// errorHandler maps errors to JSON responses. AppErrors keep their status
// and safe message; echo.HTTPErrors pass through; everything else is a
// generic 500 with the real error logged.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := apperror.SafeCode(err)
		message := apperror.SafeMessage(err)

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			}
		}

		if code >= http.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"error", err)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, map[string]any{"error": message})
	}
}

// Init registers Prometheus collectors. Separate from New so tests can
// build an App without double-registering.
func Init() {
	metrics.Init()
}
