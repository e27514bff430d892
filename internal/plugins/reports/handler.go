package reports

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/plugins/auth"
	"github.com/civitas-institute/civitas/internal/storage"
)

// Handler handles HTTP requests for reports.
type Handler struct {
	service *Service
}

// NewHandler creates a new reports handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListPublic handles GET /api/v1/reports.
func (h *Handler) ListPublic(c echo.Context) error {
	reports, total, err := h.service.ListPublished(c.Request().Context(), listOptions(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"reports": reports, "total": total})
}

// GetPublic handles GET /api/v1/reports/:id.
func (h *Handler) GetPublic(c echo.Context) error {
	rep, err := h.service.GetPublished(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"report":       rep,
		"document_url": h.service.DocumentURL(rep),
	})
}

// List handles GET /reports on the panel groups.
func (h *Handler) List(c echo.Context) error {
	reports, total, err := h.service.List(c.Request().Context(), listOptions(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"reports": reports, "total": total})
}

// Get handles GET /reports/:id.
func (h *Handler) Get(c echo.Context) error {
	rep, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rep)
}

// Create handles POST /reports.
func (h *Handler) Create(c echo.Context) error {
	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	rep, err := h.service.Create(c.Request().Context(), upsertInput(req, auth.GetUserID(c)))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rep)
}

// Update handles PUT /reports/:id.
func (h *Handler) Update(c echo.Context) error {
	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	rep, err := h.service.Update(c.Request().Context(), c.Param("id"), upsertInput(req, auth.GetUserID(c)))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rep)
}

// TogglePublish handles POST /reports/:id/publish and .../unpublish.
func (h *Handler) TogglePublish(published bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := h.service.SetPublished(c.Request().Context(), c.Param("id"), published, auth.GetUserID(c))
		if err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// Delete handles DELETE /reports/:id.
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id"), auth.GetUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadDocument handles POST /reports/:id/document with a multipart
// "file" part.
func (h *Handler) UploadDocument(c echo.Context) error {
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

	rep, err := h.service.UploadDocument(c.Request().Context(), UploadDocumentInput{
		ReportID:    c.Param("id"),
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
		ActorID:     auth.GetUserID(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rep)
}

func listOptions(c echo.Context) ListOptions {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	return ListOptions{
		DepartmentID: c.QueryParam("department_id"),
		Page:         page,
	}
}

func upsertInput(req UpsertRequest, actorID string) UpsertInput {
	return UpsertInput{
		Title:        req.Title,
		Summary:      req.Summary,
		BodyHTML:     req.BodyHTML,
		DepartmentID: req.DepartmentID,
		ActorID:      actorID,
	}
}
