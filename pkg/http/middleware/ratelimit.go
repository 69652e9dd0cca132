package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Allower consumes one unit of a per-key budget.
type Allower interface {
	Allow(key string) bool
}

// RateLimit rejects requests from a client IP whose budget is exhausted.
func RateLimit(a Allower) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !a.Allow(c.RealIP()) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
