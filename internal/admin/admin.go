// Package admin exposes operator views over the whole store: counts, ledger
// reconciliation and unfiltered listings.
package admin

import (
	"context"
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
)

type Service struct {
	store store.Store
	log   *slog.Logger
}

func NewService(st store.Store) *Service {
	return &Service{store: st, log: slog.With("component", "admin")}
}

func (s *Service) view(ctx context.Context, op string, fn func(tx store.Tx) error) error {
	err := s.store.View(ctx, fn)
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, store.ErrNotFound):
		return models.NewNotFoundError("record")
	default:
		return models.NewPersistenceError(op, err)
	}
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the admin routes on g, which must already carry the JWT
// and admin guards.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/stats", h.Stats)
	g.GET("/users", h.ListUsers)
	g.GET("/services", h.ListServices)
	g.GET("/bookings", h.ListBookings)
	g.GET("/ledger", h.ReconcileAll)
	g.GET("/ledger/:username", h.Reconcile)
}
