package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/civitas-institute/civitas/internal/apperror"
)

// Context keys for values injected by RequireAuth.
const (
	sessionContextKey = "auth.session"

	// SessionCookieName is the cookie carrying the opaque session token.
	SessionCookieName = "civitas_session"
)

// RequireAuth resolves the session cookie on every request and injects the
// Session into the echo context. Requests without a valid session are
// rejected with 401 before the handler runs. Resolution happens per request
// so disabling a user or expiring a session takes effect immediately.
func RequireAuth(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				return apperror.NewUnauthorized("not authenticated")
			}

			sess, err := svc.ValidateSession(c.Request().Context(), cookie.Value)
			if err != nil {
				return err
			}

			c.Set(sessionContextKey, sess)
			return next(c)
		}
	}
}

// GetSession returns the Session injected by RequireAuth, or nil when the
// request is unauthenticated.
func GetSession(c echo.Context) *Session {
	sess, _ := c.Get(sessionContextKey).(*Session)
	return sess
}

// GetUserID returns the authenticated user's ID, or "" when unauthenticated.
func GetUserID(c echo.Context) string {
	if sess := GetSession(c); sess != nil {
		return sess.UserID
	}
	return ""
}
