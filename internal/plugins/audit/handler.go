package audit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for the audit trail. Handlers are thin:
// bind request, call service, render response. No business logic lives here.
type Handler struct {
	service Service
}

// NewHandler creates a new audit handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// List serves the paginated activity feed (GET /admin/audit).
// Query params: table (optional filter), page (1-indexed).
func (h *Handler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))

	entries, total, err := h.service.List(c.Request().Context(), ListOptions{
		Table: c.QueryParam("table"),
		Page:  page,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"entries": entries,
		"total":   total,
	})
}

// RecordHistory serves the change history for one record
// (GET /admin/audit/:table/:recordId).
func (h *Handler) RecordHistory(c echo.Context) error {
	entries, err := h.service.RecordHistory(
		c.Request().Context(), c.Param("table"), c.Param("recordId"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"entries": entries})
}
