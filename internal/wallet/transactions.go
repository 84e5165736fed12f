package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/timerenting/internal/auth"
	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
	"github.com/sudo-init-do/timerenting/internal/utils"
)

// Transactions returns the caller's ledger entries, oldest first, with the
// running balance they add up to.
// GET /wallet/transactions
func (h *Handler) Transactions(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var entries []models.LedgerEntry
	err := h.store.View(c.Request().Context(), func(tx store.Tx) error {
		var err error
		entries, err = tx.ListEntries(sess.Username)
		return err
	})
	if err != nil {
		return utils.Error(c, err)
	}

	var balance int64
	for _, e := range entries {
		balance += e.Amount
	}
	return c.JSON(http.StatusOK, echo.Map{
		"entries": entries,
		"balance": balance,
	})
}
