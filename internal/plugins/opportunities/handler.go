package opportunities

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/plugins/auth"
)

// Handler handles HTTP requests for opportunities.
type Handler struct {
	service *Service
}

// NewHandler creates a new opportunities handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListPublic handles GET /api/v1/opportunities. Open listings only.
func (h *Handler) ListPublic(c echo.Context) error {
	opportunities, err := h.service.ListOpen(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"opportunities": opportunities})
}

// List handles GET /opportunities on the panel groups.
func (h *Handler) List(c echo.Context) error {
	opportunities, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"opportunities": opportunities})
}

// Get handles GET /opportunities/:id.
func (h *Handler) Get(c echo.Context) error {
	opp, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, opp)
}

// Create handles POST /opportunities.
func (h *Handler) Create(c echo.Context) error {
	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	opp, err := h.service.Create(c.Request().Context(), upsertInput(req, auth.GetUserID(c)))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, opp)
}

// Update handles PUT /opportunities/:id.
func (h *Handler) Update(c echo.Context) error {
	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	opp, err := h.service.Update(c.Request().Context(), c.Param("id"), upsertInput(req, auth.GetUserID(c)))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, opp)
}

// ToggleActive handles POST /opportunities/:id/activate and .../deactivate.
func (h *Handler) ToggleActive(active bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := h.service.SetActive(c.Request().Context(), c.Param("id"), active, auth.GetUserID(c))
		if err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// Delete handles DELETE /opportunities/:id.
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id"), auth.GetUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func upsertInput(req UpsertRequest, actorID string) UpsertInput {
	return UpsertInput{
		Title:           req.Title,
		DescriptionHTML: req.DescriptionHTML,
		Location:        req.Location,
		ClosesAt:        req.ClosesAt,
		IsActive:        req.IsActive,
		ActorID:         actorID,
	}
}
