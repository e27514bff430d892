package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/labstack/echo/v4"
)

// csrfTokenLength is the number of random bytes in a CSRF token (32 bytes = 64 hex chars).
const csrfTokenLength = 32

// csrfCookieName is the name of the cookie that stores the CSRF token.
const csrfCookieName = "civitas_csrf"

// csrfHeaderName is the header the admin front end sends the CSRF token in.
const csrfHeaderName = "X-CSRF-Token"

// CSRF returns middleware that implements the double-submit cookie pattern
// for CSRF protection on all state-changing requests (POST, PUT, PATCH, DELETE).
//
// How it works:
//  1. On every request, if no CSRF cookie exists, generate one and set it.
//  2. On mutating requests, compare the cookie value with the X-CSRF-Token
//     header sent by the front end.
//  3. If they don't match, reject with 403 Forbidden.
//
// The admin and moderator panels authenticate with a session cookie, so
// every mutating route needs this check. The cookie is intentionally NOT
// HttpOnly -- the front end must read it to echo it back in the header.
func CSRF() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			// Ensure a CSRF token cookie exists.
			cookie, err := req.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				token, genErr := generateCSRFToken()
				if genErr != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate CSRF token")
				}
				cookie = &http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     "/",
					Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
					SameSite: http.SameSiteLaxMode,
				}
				c.SetCookie(cookie)
			}

			// Safe methods don't mutate state -- no token check needed.
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			// Compare the cookie value against the request header in constant
			// time to avoid leaking token prefixes through timing.
			sent := req.Header.Get(csrfHeaderName)
			if sent == "" || subtle.ConstantTimeCompare([]byte(sent), []byte(cookie.Value)) != 1 {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error":   "forbidden",
					"message": "invalid or missing CSRF token",
				})
			}

			return next(c)
		}
	}
}

// GetCSRFToken returns the current CSRF token from the request cookie, or
// empty string if none exists yet.
func GetCSRFToken(c echo.Context) string {
	cookie, err := c.Request().Cookie(csrfCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// generateCSRFToken creates a cryptographically random hex-encoded token.
func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
