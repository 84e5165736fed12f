// Package user serves public profiles and self-service profile edits.
package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
)

type Service struct {
	store store.Store
	log   *slog.Logger
}

func NewService(st store.Store) *Service {
	return &Service{store: st, log: slog.With("component", "user")}
}

// Profile builds the public view of username: introduction, balance,
// rating summary and service counts.
func (s *Service) Profile(ctx context.Context, username string) (*models.PublicProfile, error) {
	var p *models.PublicProfile
	err := s.store.View(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser(username)
		if errors.Is(err, store.ErrNotFound) {
			return models.NewNotFoundError("user")
		}
		if err != nil {
			return err
		}
		services, err := tx.ListServices(store.ServiceFilter{PostedBy: username})
		if err != nil {
			return err
		}
		reviews, err := tx.ListReviews(store.ReviewFilter{ToUser: username})
		if err != nil {
			return err
		}

		finished := 0
		for _, svc := range services {
			if svc.IsFinished {
				finished++
			}
		}
		p = &models.PublicProfile{
			Username:      u.Username,
			Introduction:  u.Introduction,
			TimeCredits:   u.TimeCredits,
			MemberSince:   u.CreatedAt,
			Reviews:       models.Summarize(reviews),
			PostedCount:   len(services),
			FinishedCount: finished,
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewPersistenceError("load profile", err)
	}
	return p, nil
}
