package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/timerenting/internal/utils"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// POST /auth/signup
func (h *Handler) Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return utils.BadRequest(c, "invalid request")
	}
	resp, err := h.svc.Signup(c.Request().Context(), *req)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// POST /auth/login
func (h *Handler) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return utils.BadRequest(c, "invalid request")
	}
	resp, err := h.svc.Login(c.Request().Context(), *req)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// GET /auth/me
func (h *Handler) Me(c echo.Context) error {
	sess, ok := FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	u, err := h.svc.Me(c.Request().Context(), sess)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// POST /auth/password
func (h *Handler) ChangePassword(c echo.Context) error {
	sess, ok := FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(ChangePasswordRequest)
	if err := c.Bind(req); err != nil {
		return utils.BadRequest(c, "invalid request")
	}
	if err := h.svc.ChangePassword(c.Request().Context(), sess, *req); err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
