package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
	"github.com/sudo-init-do/timerenting/internal/utils"
	"github.com/sudo-init-do/timerenting/internal/wallet"
)

// Reconcile compares one user's cached balance with the sum of their ledger.
func (s *Service) Reconcile(ctx context.Context, username string) (models.Reconciliation, error) {
	var rec models.Reconciliation
	err := s.view(ctx, "reconcile", func(tx store.Tx) error {
		var err error
		rec, err = wallet.Reconcile(tx, username)
		if errors.Is(err, store.ErrNotFound) {
			return models.NewNotFoundError("user")
		}
		return err
	})
	return rec, err
}

// ReconcileAll checks every account in one snapshot and returns the
// reports in username order.
func (s *Service) ReconcileAll(ctx context.Context) ([]models.Reconciliation, error) {
	var out []models.Reconciliation
	err := s.view(ctx, "reconcile all", func(tx store.Tx) error {
		users, err := tx.ListUsers()
		if err != nil {
			return err
		}
		out = make([]models.Reconciliation, 0, len(users))
		for _, u := range users {
			rec, err := wallet.Reconcile(tx, u.Username)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, rec := range out {
		if !rec.Consistent {
			s.log.Warn("ledger mismatch", "username", rec.Username,
				"cached", rec.CachedBalance, "ledger", rec.LedgerBalance)
		}
	}
	return out, nil
}

// GET /admin/ledger/:username
func (h *Handler) Reconcile(c echo.Context) error {
	rec, err := h.svc.Reconcile(c.Request().Context(), c.Param("username"))
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// GET /admin/ledger
func (h *Handler) ReconcileAll(c echo.Context) error {
	recs, err := h.svc.ReconcileAll(c.Request().Context())
	if err != nil {
		return utils.Error(c, err)
	}
	inconsistent := 0
	for _, r := range recs {
		if !r.Consistent {
			inconsistent++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"accounts": recs, "inconsistent": inconsistent})
}
