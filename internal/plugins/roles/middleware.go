package roles

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/plugins/auth"
)

// roleContextKey holds the resolved Role injected by RequireSurface.
const roleContextKey = "roles.role"

// RequireSurface gates a route group behind the role check. It runs after
// auth.RequireAuth, resolves the session user's role, and interprets the
// gate's decision: granted requests proceed with the role in context,
// redirect decisions return 303 See Other toward the matching surface, and
// everything else is 403.
func RequireSurface(svc *Service, surface Surface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := auth.GetUserID(c)
			if userID == "" {
				return apperror.NewUnauthorized("not authenticated")
			}

			decision := svc.Gate(c.Request().Context(), userID, surface)
			switch {
			case decision.Granted:
				c.Set(roleContextKey, decision.Role)
				return next(c)
			case decision.RedirectTo != "":
				return c.Redirect(http.StatusSeeOther, decision.RedirectTo)
			default:
				return apperror.NewForbidden("access denied")
			}
		}
	}
}

// GetRole returns the Role injected by RequireSurface, or "" when absent.
func GetRole(c echo.Context) Role {
	role, _ := c.Get(roleContextKey).(Role)
	return role
}
