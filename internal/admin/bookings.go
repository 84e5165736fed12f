package admin

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
	"github.com/sudo-init-do/timerenting/internal/utils"
)

// ListBookings returns every booking, optionally narrowed to one state.
func (s *Service) ListBookings(ctx context.Context, state models.BookingState) ([]models.Booking, error) {
	f := store.BookingFilter{}
	if state != "" {
		if !state.Valid() {
			return nil, models.NewValidationError("unknown booking state " + string(state))
		}
		f.States = []models.BookingState{state}
	}
	var bookings []models.Booking
	err := s.view(ctx, "list bookings", func(tx store.Tx) error {
		var err error
		bookings, err = tx.ListBookings(f)
		return err
	})
	return bookings, err
}

// GET /admin/bookings?state=
func (h *Handler) ListBookings(c echo.Context) error {
	bookings, err := h.svc.ListBookings(c.Request().Context(), models.BookingState(c.QueryParam("state")))
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}
