package opportunities

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires opportunity routes. Opportunities are editable from
// both the admin and moderator surfaces.
func RegisterRoutes(public *echo.Group, panels []*echo.Group, h *Handler) {
	public.GET("/opportunities", h.ListPublic)

	for _, g := range panels {
		g.GET("/opportunities", h.List)
		g.GET("/opportunities/:id", h.Get)
		g.POST("/opportunities", h.Create)
		g.PUT("/opportunities/:id", h.Update)
		g.POST("/opportunities/:id/activate", h.ToggleActive(true))
		g.POST("/opportunities/:id/deactivate", h.ToggleActive(false))
		g.DELETE("/opportunities/:id", h.Delete)
	}
}
