package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civitas-institute/civitas/internal/metrics"
)

// Metrics returns middleware that records request counts and latency in
// Prometheus collectors. Uses the route pattern (c.Path()) rather than the
// raw URL so /api/v1/reports/:id stays a single series regardless of ID.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			metrics.RequestsTotal.WithLabelValues(
				route, method, strconv.Itoa(c.Response().Status),
			).Inc()
			metrics.RequestDuration.WithLabelValues(route, method).
				Observe(time.Since(start).Seconds())

			return err
		}
	}
}
