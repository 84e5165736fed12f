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

const maxReviewLength = 1000

type ReviewRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// ReviewList is a set of reviews with its rating summary.
type ReviewList struct {
	Reviews []models.Review      `json:"reviews"`
	Summary models.RatingSummary `json:"summary"`
}

// SubmitReview lets the subscriber of a finished service rate its provider
// once.
func (m *Marketplace) SubmitReview(ctx context.Context, sess auth.Session, serviceID string, req ReviewRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, models.NewValidationError("rating must be between 1 and 5")
	}
	req.Text = strings.TrimSpace(req.Text)
	if utf8.RuneCountInString(req.Text) > maxReviewLength {
		return nil, models.NewValidationError("review text is too long")
	}

	var review *models.Review
	err := m.update(ctx, "submit_review", func(tx store.Tx, _ *outbox) error {
		svc, err := tx.GetService(serviceID)
		if err != nil {
			return notFound(err, "service")
		}
		if !svc.IsFinished {
			return &models.AppError{Code: models.CodeInvalidTransition, Message: "only finished services can be reviewed"}
		}
		b, err := tx.BookingForService(svc.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if b == nil || b.User != sess.Username {
			return models.NewNotAuthorizedError("only the subscriber of this service can review it")
		}

		r := &models.Review{
			ID:        uuid.New().String(),
			ServiceID: svc.ID,
			FromUser:  sess.Username,
			ToUser:    svc.PostedBy,
			Rating:    req.Rating,
			Text:      req.Text,
			CreatedAt: m.now(),
		}
		if err := tx.CreateReview(r); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return models.NewDuplicateReviewError()
			}
			return err
		}
		review = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("review submitted", "service_id", review.ServiceID, "from", review.FromUser, "rating", review.Rating)
	return review, nil
}

// ServiceReviews lists the reviews of one service, newest first.
func (m *Marketplace) ServiceReviews(ctx context.Context, serviceID string) (*ReviewList, error) {
	return m.reviews(ctx, store.ReviewFilter{ServiceID: serviceID})
}

// UserReviews lists the reviews a user received as a provider.
func (m *Marketplace) UserReviews(ctx context.Context, username string) (*ReviewList, error) {
	return m.reviews(ctx, store.ReviewFilter{ToUser: username})
}

func (m *Marketplace) reviews(ctx context.Context, f store.ReviewFilter) (*ReviewList, error) {
	var list ReviewList
	err := m.view(ctx, "list_reviews", func(tx store.Tx) error {
		reviews, err := tx.ListReviews(f)
		if err != nil {
			return err
		}
		list = ReviewList{Reviews: reviews, Summary: models.Summarize(reviews)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &list, nil
}
