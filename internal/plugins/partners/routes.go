package partners

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires partner routes. Partner management is admin-only.
func RegisterRoutes(public *echo.Group, admin *echo.Group, h *Handler) {
	public.GET("/partners", h.ListPublic)

	admin.GET("/partners", h.List)
	admin.GET("/partners/:id", h.Get)
	admin.POST("/partners", h.Create)
	admin.PUT("/partners/:id", h.Update)
	admin.POST("/partners/:id/activate", h.ToggleActive(true))
	admin.POST("/partners/:id/deactivate", h.ToggleActive(false))
	admin.POST("/partners/:id/logo", h.UploadLogo)
	admin.DELETE("/partners/:id", h.Delete)
}
