package departments

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/plugins/auth"
)

// Handler handles HTTP requests for departments.
type Handler struct {
	service *Service
}

// NewHandler creates a new departments handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListPublic handles GET /api/v1/departments.
func (h *Handler) ListPublic(c echo.Context) error {
	departments, err := h.service.ListPublic(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"departments": departments})
}

// GetPublicBySlug handles GET /api/v1/departments/:slug.
func (h *Handler) GetPublicBySlug(c echo.Context) error {
	dept, err := h.service.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dept)
}

// List handles GET /admin/departments.
func (h *Handler) List(c echo.Context) error {
	departments, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"departments": departments})
}

// Get handles GET /admin/departments/:id.
func (h *Handler) Get(c echo.Context) error {
	dept, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dept)
}

// Create handles POST /admin/departments.
func (h *Handler) Create(c echo.Context) error {
	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	dept, err := h.service.Create(c.Request().Context(), upsertInput(req, auth.GetUserID(c)))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, dept)
}

// Update handles PUT /admin/departments/:id.
func (h *Handler) Update(c echo.Context) error {
	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	dept, err := h.service.Update(c.Request().Context(), c.Param("id"), upsertInput(req, auth.GetUserID(c)))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dept)
}

// Delete handles DELETE /admin/departments/:id.
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id"), auth.GetUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func upsertInput(req UpsertRequest, actorID string) UpsertInput {
	return UpsertInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		ActorID:     actorID,
	}
}
