package audit

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up audit trail routes on the admin group. The feed is
// intentionally admin-only: moderators appear in it but cannot read it.
func RegisterRoutes(admin *echo.Group, h *Handler) {
	admin.GET("/audit", h.List)
	admin.GET("/audit/:table/:recordId", h.RecordHistory)
}
