package admin

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
	"github.com/sudo-init-do/timerenting/internal/utils"
)

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.view(ctx, "list users", func(tx store.Tx) error {
		var err error
		users, err = tx.ListUsers()
		return err
	})
	return users, err
}

// GET /admin/users
func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}
