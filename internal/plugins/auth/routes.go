package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civitas-institute/civitas/internal/middleware"
)

// RegisterRoutes wires the auth plugin's routes. public receives the login
// endpoint; authed receives endpoints that require a session.
//
// Login is rate-limited to 10 attempts per IP per minute on top of the
// global limiter, to slow brute-force and credential stuffing.
func RegisterRoutes(public *echo.Group, authed *echo.Group, h *Handler) {
	public.POST("/auth/login", h.Login, middleware.RateLimit(10, time.Minute))

	authed.POST("/auth/logout", h.Logout)
	authed.GET("/auth/me", h.Me)
}
