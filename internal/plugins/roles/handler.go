package roles

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/plugins/auth"
)

// Handler handles HTTP requests for role management. All routes are
// admin-only.
type Handler struct {
	service *Service
}

// NewHandler creates a new roles handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /admin/roles.
func (h *Handler) List(c echo.Context) error {
	assignments, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"assignments": assignments,
	})
}

// Assign handles POST /admin/roles.
func (h *Handler) Assign(c echo.Context) error {
	var req AssignRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	assignment, outcome, err := h.service.AssignByEmail(c.Request().Context(), AssignInput{
		Email:   req.Email,
		Role:    Role(req.Role),
		ActorID: auth.GetUserID(c),
	})
	if err != nil {
		return err
	}

	status := http.StatusOK
	if outcome == OutcomeCreated {
		status = http.StatusCreated
	}
	return c.JSON(status, map[string]any{
		"assignment": assignment,
		"outcome":    outcome,
	})
}

// Remove handles DELETE /admin/roles/:userId.
func (h *Handler) Remove(c echo.Context) error {
	userID := c.Param("userId")
	if userID == "" {
		return apperror.NewBadRequest("user id is required")
	}

	if err := h.service.Remove(c.Request().Context(), userID, auth.GetUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
