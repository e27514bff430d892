package departments

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires department routes. Department management is
// admin-only; moderators file reports under departments but do not shape
// the org chart.
func RegisterRoutes(public *echo.Group, admin *echo.Group, h *Handler) {
	public.GET("/departments", h.ListPublic)
	public.GET("/departments/:slug", h.GetPublicBySlug)

	admin.GET("/departments", h.List)
	admin.GET("/departments/:id", h.Get)
	admin.POST("/departments", h.Create)
	admin.PUT("/departments/:id", h.Update)
	admin.DELETE("/departments/:id", h.Delete)
}
