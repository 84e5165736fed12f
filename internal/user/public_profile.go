package user

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/timerenting/internal/auth"
	"github.com/sudo-init-do/timerenting/internal/utils"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GET /users/:username/profile
func (h *Handler) GetPublicProfile(c echo.Context) error {
	username := c.Param("username")
	if username == "" {
		return utils.BadRequest(c, "missing username")
	}
	p, err := h.svc.Profile(c.Request().Context(), username)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// PATCH /user/profile
func (h *Handler) UpdateProfile(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or missing token"})
	}
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequest(c, "invalid request")
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), sess, req)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
