package reports

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires report routes. Reports are editable from both the
// admin and moderator surfaces.
func RegisterRoutes(public *echo.Group, panels []*echo.Group, h *Handler) {
	public.GET("/reports", h.ListPublic)
	public.GET("/reports/:id", h.GetPublic)

	for _, g := range panels {
		g.GET("/reports", h.List)
		g.GET("/reports/:id", h.Get)
		g.POST("/reports", h.Create)
		g.PUT("/reports/:id", h.Update)
		g.POST("/reports/:id/publish", h.TogglePublish(true))
		g.POST("/reports/:id/unpublish", h.TogglePublish(false))
		g.POST("/reports/:id/document", h.UploadDocument)
		g.DELETE("/reports/:id", h.Delete)
	}
}
