package admin

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
	"github.com/sudo-init-do/timerenting/internal/utils"
)

// ListServices returns every service, finished and booked ones included.
func (s *Service) ListServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	err := s.view(ctx, "list services", func(tx store.Tx) error {
		var err error
		services, err = tx.ListServices(store.ServiceFilter{})
		return err
	})
	return services, err
}

// GET /admin/services
func (h *Handler) ListServices(c echo.Context) error {
	services, err := h.svc.ListServices(c.Request().Context())
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"services": services})
}
