package roles

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires the role management routes onto the admin group.
func RegisterRoutes(admin *echo.Group, h *Handler) {
	admin.GET("/roles", h.List)
	admin.POST("/roles", h.Assign)
	admin.DELETE("/roles/:userId", h.Remove)
}
