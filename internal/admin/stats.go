package admin

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
	"github.com/sudo-init-do/timerenting/internal/utils"
)

// Stats returns store-wide counts and the credits held in accounts.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	err := s.view(ctx, "stats", func(tx store.Tx) error {
		var err error
		stats, err = tx.Stats()
		return err
	})
	return stats, err
}

// GET /admin/stats
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
