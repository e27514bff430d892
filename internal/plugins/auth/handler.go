package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civitas-institute/civitas/internal/apperror"
)

// Handler handles HTTP requests for authentication.
type Handler struct {
	service *Service
	secure  bool
}

// NewHandler creates a new auth handler. secure controls the cookie Secure
// flag and should be true outside local development.
func NewHandler(service *Service, secure bool) *Handler {
	return &Handler{service: service, secure: secure}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	token, sess, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	h.setSessionCookie(c, token, h.service.SessionTTL())
	return c.JSON(http.StatusOK, sess)
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		if err := h.service.Logout(c.Request().Context(), cookie.Value); err != nil {
			return err
		}
	}

	// Expire the cookie regardless of whether a session existed.
	h.setSessionCookie(c, "", -time.Hour)
	return c.NoContent(http.StatusNoContent)
}

// Me handles GET /auth/me. It runs behind RequireAuth.
func (h *Handler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, GetSession(c))
}

func (h *Handler) setSessionCookie(c echo.Context, token string, maxAge time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
