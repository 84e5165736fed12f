package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/sudo-init-do/timerenting/internal/auth"
	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
)

const maxIntroductionLength = 1000

// UpdateProfile changes the caller's email and introduction.
func (s *Service) UpdateProfile(ctx context.Context, sess auth.Session, req UpdateProfileRequest) (*models.User, error) {
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				return nil, models.NewValidationError("invalid email address")
			}
		}
		req.Email = &email
	}
	if req.Introduction != nil {
		intro := strings.TrimSpace(*req.Introduction)
		if utf8.RuneCountInString(intro) > maxIntroductionLength {
			return nil, models.NewValidationError("introduction is too long")
		}
		req.Introduction = &intro
	}

	var updated *models.User
	err := s.store.Update(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser(sess.Username)
		if errors.Is(err, store.ErrNotFound) {
			return models.NewNotFoundError("user")
		}
		if err != nil {
			return err
		}
		if req.Email != nil {
			u.Email = *req.Email
		}
		if req.Introduction != nil {
			u.Introduction = *req.Introduction
		}
		updated = u
		return tx.UpdateUser(u)
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewPersistenceError("update profile", err)
	}
	s.log.Info("profile updated", "username", updated.Username)
	return updated, nil
}
