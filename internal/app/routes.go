package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civitas-institute/civitas/internal/events"
	"github.com/civitas-institute/civitas/internal/metrics"
	"github.com/civitas-institute/civitas/internal/middleware"
	"github.com/civitas-institute/civitas/internal/plugins/audit"
	"github.com/civitas-institute/civitas/internal/plugins/auth"
	"github.com/civitas-institute/civitas/internal/plugins/content"
	"github.com/civitas-institute/civitas/internal/plugins/departments"
	"github.com/civitas-institute/civitas/internal/plugins/opportunities"
	"github.com/civitas-institute/civitas/internal/plugins/partners"
	"github.com/civitas-institute/civitas/internal/plugins/reports"
	"github.com/civitas-institute/civitas/internal/plugins/roles"
	"github.com/civitas-institute/civitas/internal/storage"
)

// setupRoutes builds every plugin's stack and registers its routes.
//
// Route groups:
//
//	/api/v1     public, read-only, no session
//	/auth       login and session endpoints
//	/admin      session + admin surface gate, full management
//	/moderator  session + moderator surface gate, content/reports/opportunities
func (a *App) setupRoutes() {
	e := a.Echo
	logger := a.Logger

	// Shared infrastructure.
	store := storage.NewFileStore(a.Config.Storage.Path, a.Config.BaseURL)
	publisher := events.NewRedisPublisher(a.Redis, logger)

	// Audit plugin doubles as the recorder every mutation goes through.
	auditRepo := audit.NewRepository(a.DB)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(auditService)

	// Auth plugin.
	authRepo := auth.NewUserRepository(a.DB)
	authService := auth.NewService(authRepo, a.Redis, a.Config.Auth.SessionTTL, logger)
	authHandler := auth.NewHandler(authService, !a.Config.IsDevelopment())

	// Roles plugin.
	rolesRepo := roles.NewRepository(a.DB)
	rolesService := roles.NewService(rolesRepo, auditService, logger)
	rolesHandler := roles.NewHandler(rolesService)

	// Entity plugins.
	contentService := content.NewService(content.NewRepository(a.DB), auditService, publisher, store, logger)
	departmentsService := departments.NewService(departments.NewRepository(a.DB), auditService, publisher, logger)
	reportsService := reports.NewService(reports.NewRepository(a.DB), auditService, publisher, store, logger)
	partnersService := partners.NewService(partners.NewRepository(a.DB), auditService, publisher, store, logger)
	opportunitiesService := opportunities.NewService(opportunities.NewRepository(a.DB), auditService, publisher, logger)

	contentHandler := content.NewHandler(contentService)
	departmentsHandler := departments.NewHandler(departmentsService)
	reportsHandler := reports.NewHandler(reportsService)
	partnersHandler := partners.NewHandler(partnersService)
	opportunitiesHandler := opportunities.NewHandler(opportunitiesService)
	sseHandler := events.NewSSEHandler(a.Redis)

	// Operational endpoints.
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.Static("/files", a.Config.Storage.Path)

	// Public API for the marketing site.
	public := e.Group("/api/v1")

	// Login endpoints. CSRF double-submit protects the cookie-based panel.
	authGroup := e.Group("", middleware.CSRF())
	authed := e.Group("", middleware.CSRF(), auth.RequireAuth(authService))
	auth.RegisterRoutes(authGroup, authed, authHandler)

	// Panel surfaces. Both gates run after session resolution.
	admin := e.Group("/admin",
		middleware.CSRF(),
		auth.RequireAuth(authService),
		roles.RequireSurface(rolesService, roles.SurfaceAdmin),
	)
	moderator := e.Group("/moderator",
		middleware.CSRF(),
		auth.RequireAuth(authService),
		roles.RequireSurface(rolesService, roles.SurfaceModerator),
	)

	// Admin-only management.
	roles.RegisterRoutes(admin, rolesHandler)
	audit.RegisterRoutes(admin, auditHandler)
	departments.RegisterRoutes(public, admin, departmentsHandler)
	partners.RegisterRoutes(public, admin, partnersHandler)
	admin.GET("/events", sseHandler.Stream)
	moderator.GET("/events", sseHandler.Stream)

	// Shared editing surfaces.
	panels := []*echo.Group{admin, moderator}
	content.RegisterRoutes(public, panels, contentHandler)
	reports.RegisterRoutes(public, panels, reportsHandler)
	opportunities.RegisterRoutes(public, panels, opportunitiesHandler)
}
