package marketplace

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sudo-init-do/timerenting/internal/auth"
	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
)

type PostServiceRequest struct {
	Title               string `json:"title"`
	Description         string `json:"description"`
	Location            string `json:"location"`
	RequiredTimeCredits int64  `json:"required_time_credits"`
}

// ServiceDetails is a service together with its booking, if any, and the
// reviews it received.
type ServiceDetails struct {
	models.Service
	Booked  bool                 `json:"booked"`
	Reviews []models.Review      `json:"reviews"`
	Rating  models.RatingSummary `json:"rating"`
}

func validateService(title, description string, credits int64) error {
	switch {
	case strings.TrimSpace(title) == "":
		return models.NewValidationError("title is required")
	case utf8.RuneCountInString(title) > maxTitleLength:
		return models.NewValidationError("title is too long")
	case utf8.RuneCountInString(description) > maxDescriptionLength:
		return models.NewValidationError("description is too long")
	case credits <= 0:
		return models.NewValidationError("required_time_credits must be positive")
	}
	return nil
}

// PostService publishes a new, unbooked service owned by the caller.
func (m *Marketplace) PostService(ctx context.Context, sess auth.Session, req PostServiceRequest) (*models.Service, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateService(req.Title, req.Description, req.RequiredTimeCredits); err != nil {
		return nil, err
	}
	svc := &models.Service{
		ID:                  uuid.New().String(),
		Title:               req.Title,
		Description:         strings.TrimSpace(req.Description),
		Location:            strings.TrimSpace(req.Location),
		RequiredTimeCredits: req.RequiredTimeCredits,
		PostedBy:            sess.Username,
		CreatedAt:           m.now(),
	}
	err := m.update(ctx, "post_service", func(tx store.Tx, _ *outbox) error {
		if _, err := tx.GetUser(sess.Username); err != nil {
			return notFound(err, "user")
		}
		return tx.CreateService(svc)
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("service posted", "service_id", svc.ID, "posted_by", svc.PostedBy, "credits", svc.RequiredTimeCredits)
	return svc, nil
}

// EditService changes a service that has never been booked.
func (m *Marketplace) EditService(ctx context.Context, sess auth.Session, serviceID string, patch models.ServicePatch) (*models.Service, error) {
	var svc *models.Service
	err := m.update(ctx, "edit_service", func(tx store.Tx, _ *outbox) error {
		s, err := m.ownedUnbooked(tx, sess, serviceID)
		if err != nil {
			return err
		}
		if patch.Title != nil {
			s.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			s.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Location != nil {
			s.Location = strings.TrimSpace(*patch.Location)
		}
		if patch.RequiredTimeCredits != nil {
			s.RequiredTimeCredits = *patch.RequiredTimeCredits
		}
		if err := validateService(s.Title, s.Description, s.RequiredTimeCredits); err != nil {
			return err
		}
		svc = s
		return tx.UpdateService(s)
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// DeleteService removes a service that has never been booked.
func (m *Marketplace) DeleteService(ctx context.Context, sess auth.Session, serviceID string) error {
	return m.update(ctx, "delete_service", func(tx store.Tx, _ *outbox) error {
		if _, err := m.ownedUnbooked(tx, sess, serviceID); err != nil {
			return err
		}
		return tx.DeleteService(serviceID)
	})
}

// ownedUnbooked loads a service the caller posted and that no booking has
// ever referenced. Cancelled bookings keep the service title, not the link,
// so a service whose cancellation was approved is editable again.
func (m *Marketplace) ownedUnbooked(tx store.Tx, sess auth.Session, serviceID string) (*models.Service, error) {
	s, err := tx.GetService(serviceID)
	if err != nil {
		return nil, notFound(err, "service")
	}
	if s.PostedBy != sess.Username {
		return nil, models.NewNotAuthorizedError("only the poster can change this service")
	}
	if s.IsFinished {
		return nil, models.NewServiceInUseError()
	}
	if _, err := tx.BookingForService(s.ID); err == nil {
		return nil, models.NewServiceInUseError()
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return s, nil
}

// GetService returns a service with its booking status and reviews.
func (m *Marketplace) GetService(ctx context.Context, serviceID string) (*ServiceDetails, error) {
	var details *ServiceDetails
	err := m.view(ctx, "get_service", func(tx store.Tx) error {
		s, err := tx.GetService(serviceID)
		if err != nil {
			return notFound(err, "service")
		}
		booked := true
		if _, err := tx.BookingForService(s.ID); errors.Is(err, store.ErrNotFound) {
			booked = false
		} else if err != nil {
			return err
		}
		reviews, err := tx.ListReviews(store.ReviewFilter{ServiceID: s.ID})
		if err != nil {
			return err
		}
		details = &ServiceDetails{
			Service: *s,
			Booked:  booked,
			Reviews: reviews,
			Rating:  models.Summarize(reviews),
		}
		return nil
	})
	return details, err
}

// ListOpenServices returns services that can still be booked, newest first.
func (m *Marketplace) ListOpenServices(ctx context.Context) ([]models.Service, error) {
	return m.listServices(ctx, store.ServiceFilter{OpenOnly: true})
}

// ListPostedServices returns every service the caller posted.
func (m *Marketplace) ListPostedServices(ctx context.Context, sess auth.Session) ([]models.Service, error) {
	return m.listServices(ctx, store.ServiceFilter{PostedBy: sess.Username})
}

func (m *Marketplace) listServices(ctx context.Context, f store.ServiceFilter) ([]models.Service, error) {
	var services []models.Service
	err := m.view(ctx, "list_services", func(tx store.Tx) error {
		var err error
		services, err = tx.ListServices(f)
		return err
	})
	return services, err
}
