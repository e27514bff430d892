package partners

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/plugins/auth"
	"github.com/civitas-institute/civitas/internal/storage"
)

// Handler handles HTTP requests for partners.
type Handler struct {
	service *Service
}

// NewHandler creates a new partners handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListPublic handles GET /api/v1/partners. Active partners only.
func (h *Handler) ListPublic(c echo.Context) error {
	partners, err := h.service.ListActive(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"partners": partners})
}

// List handles GET /admin/partners.
func (h *Handler) List(c echo.Context) error {
	partners, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"partners": partners})
}

// Get handles GET /admin/partners/:id.
func (h *Handler) Get(c echo.Context) error {
	partner, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, partner)
}

// Create handles POST /admin/partners.
func (h *Handler) Create(c echo.Context) error {
	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	partner, err := h.service.Create(c.Request().Context(), upsertInput(req, auth.GetUserID(c)))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, partner)
}

// Update handles PUT /admin/partners/:id.
func (h *Handler) Update(c echo.Context) error {
	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	partner, err := h.service.Update(c.Request().Context(), c.Param("id"), upsertInput(req, auth.GetUserID(c)))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, partner)
}

// ToggleActive handles POST /admin/partners/:id/activate and .../deactivate.
func (h *Handler) ToggleActive(active bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := h.service.SetActive(c.Request().Context(), c.Param("id"), active, auth.GetUserID(c))
		if err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// Delete handles DELETE /admin/partners/:id.
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id"), auth.GetUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadLogo handles POST /admin/partners/:id/logo with a multipart
// "file" part.
func (h *Handler) UploadLogo(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return apperror.NewBadRequest("file is required")
	}
	if file.Size > storage.MaxUploadSize {
		return apperror.NewValidation("file exceeds the maximum upload size")
	}

	src, err := file.Open()
	if err != nil {
		return apperror.NewBadRequest("could not read uploaded file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, storage.MaxUploadSize+1))
	if err != nil {
		return apperror.NewBadRequest("could not read uploaded file")
	}

	partner, err := h.service.UploadLogo(c.Request().Context(), UploadLogoInput{
		PartnerID:   c.Param("id"),
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
		ActorID:     auth.GetUserID(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, partner)
}

func upsertInput(req UpsertRequest, actorID string) UpsertInput {
	return UpsertInput{
		Name:       req.Name,
		WebsiteURL: req.WebsiteURL,
		IsActive:   req.IsActive,
		ActorID:    actorID,
	}
}
