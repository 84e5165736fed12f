package auth

import (
	"time"

	"github.com/labstack/echo/v4"
)

// Session identifies the caller of an operation. It is built from a verified
// token for every request and passed explicitly to domain operations.
type Session struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

const sessionKey = "session"

// SetSession stores s on the request context.
func SetSession(c echo.Context, s Session) {
	c.Set(sessionKey, s)
}

// FromContext returns the session stored by the JWT middleware.
func FromContext(c echo.Context) (Session, bool) {
	s, ok := c.Get(sessionKey).(Session)
	if !ok || s.Username == "" {
		return Session{}, false
	}
	return s, true
}
