package wallet

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/timerenting/internal/auth"
	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
	"github.com/sudo-init-do/timerenting/internal/utils"
)

// Balance returns the authenticated user's time credit balance.
// GET /wallet/balance
func (h *Handler) Balance(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var u *models.User
	err := h.store.View(c.Request().Context(), func(tx store.Tx) error {
		var err error
		u, err = tx.GetUser(sess.Username)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return utils.Error(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"username":     u.Username,
		"time_credits": u.TimeCredits,
	})
}
