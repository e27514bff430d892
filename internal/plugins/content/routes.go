package content

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires content routes. public serves published blocks to
// the marketing site; panels is the set of gated groups (admin and
// moderator) that share the full editing surface.
func RegisterRoutes(public *echo.Group, panels []*echo.Group, h *Handler) {
	public.GET("/content", h.ListPublic)

	for _, g := range panels {
		g.GET("/content", h.List)
		g.GET("/content/:id", h.Get)
		g.POST("/content", h.Create)
		g.PUT("/content/:id", h.Update)
		g.POST("/content/:id/publish", h.TogglePublish(true))
		g.POST("/content/:id/unpublish", h.TogglePublish(false))
		g.POST("/content/:id/image", h.UploadImage)
		g.DELETE("/content/:id", h.Delete)
	}
}
