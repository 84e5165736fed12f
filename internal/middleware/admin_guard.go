package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/timerenting/internal/auth"
)

// AdminGuard only lets the configured operator accounts through. It must run
// after JWT.
func AdminGuard(admins []string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(admins))
	for _, a := range admins {
		allowed[a] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, ok := auth.FromContext(c)
			if !ok || !allowed[sess.Username] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error": "admin access only",
				})
			}
			return next(c)
		}
	}
}
