package content

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/plugins/auth"
	"github.com/civitas-institute/civitas/internal/storage"
)

// Handler handles HTTP requests for content blocks.
type Handler struct {
	service *Service
}

// NewHandler creates a new content handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListPublic handles GET /api/v1/content. Only published blocks.
func (h *Handler) ListPublic(c echo.Context) error {
	blocks, err := h.service.ListPublished(c.Request().Context(), c.QueryParam("section"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"content": blocks})
}

// List handles GET /content on the panel groups. All blocks.
func (h *Handler) List(c echo.Context) error {
	blocks, err := h.service.List(c.Request().Context(), c.QueryParam("section"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"content": blocks})
}

// Get handles GET /content/:id.
func (h *Handler) Get(c echo.Context) error {
	block, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, block)
}

// Create handles POST /content.
func (h *Handler) Create(c echo.Context) error {
	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	block, err := h.service.Create(c.Request().Context(), upsertInput(req, auth.GetUserID(c)))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, block)
}

// Update handles PUT /content/:id.
func (h *Handler) Update(c echo.Context) error {
	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	block, err := h.service.Update(c.Request().Context(), c.Param("id"), upsertInput(req, auth.GetUserID(c)))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, block)
}

// TogglePublish handles POST /content/:id/publish and .../unpublish.
func (h *Handler) TogglePublish(published bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := h.service.SetPublished(c.Request().Context(), c.Param("id"), published, auth.GetUserID(c))
		if err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// Delete handles DELETE /content/:id.
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id"), auth.GetUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadImage handles POST /content/:id/image with a multipart "file" part.
func (h *Handler) UploadImage(c echo.Context) error {
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

	block, err := h.service.UploadImage(c.Request().Context(), UploadImageInput{
		BlockID:     c.Param("id"),
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
		ActorID:     auth.GetUserID(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, block)
}

func upsertInput(req UpsertRequest, actorID string) UpsertInput {
	return UpsertInput{
		Section:     req.Section,
		Title:       req.Title,
		BodyHTML:    req.BodyHTML,
		SortOrder:   req.SortOrder,
		IsPublished: req.IsPublished,
		ActorID:     actorID,
	}
}
