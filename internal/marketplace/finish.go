package marketplace

import (
	"context"
	"errors"

	"github.com/sudo-init-do/timerenting/internal/auth"
	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
)

// MarkFinished completes an active booking: the service is closed for good
// and the held price is paid out to the provider. Finishing a booking that
// is already finished is accepted and changes nothing.
func (m *Marketplace) MarkFinished(ctx context.Context, sess auth.Session, bookingID string) (*models.Booking, error) {
	var booking *models.Booking
	err := m.update(ctx, "finish", func(tx store.Tx, out *outbox) error {
		b, err := tx.GetBooking(bookingID)
		if err != nil {
			return notFound(err, "booking")
		}
		if b.Provider != sess.Username {
			return models.NewNotAuthorizedError("only the provider can mark a service as finished")
		}
		to, noop, err := Next(b.State, EventFinish)
		if err != nil {
			return err
		}
		booking = b
		if noop {
			return nil
		}
		if b.ServiceID == nil {
			return models.NewInvalidTransitionError(b.State, string(EventFinish))
		}

		if err := tx.FinishService(*b.ServiceID); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return models.NewServiceUnavailableError("service is already finished")
			}
			return notFound(err, "service")
		}

		provider, err := tx.GetUser(b.Provider)
		if err != nil {
			return notFound(err, "provider")
		}
		if err := m.ledger.Credit(tx, provider, b.RequiredTimeCredits, models.EntryCompletionPayout, b.ID); err != nil {
			return err
		}

		now := m.now()
		from := b.State
		b.State, b.UpdatedAt = to, now
		if err := tx.UpdateBooking(b, from); err != nil {
			return err
		}

		subscriber, err := tx.GetUser(b.User)
		if err != nil {
			return notFound(err, "subscriber")
		}
		out.moved(models.EntryCompletionPayout, b.RequiredTimeCredits)
		out.transitioned(string(EventFinish))
		out.event(bookingEvent(KindServiceFinished, b, subscriber,
			"The service '"+b.ServiceTitle+"' has been marked as finished.", now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("service finished", "booking_id", booking.ID, "provider", booking.Provider,
		"payout", booking.RequiredTimeCredits)
	return booking, nil
}

// MarkServiceFinished finishes the booking currently attached to serviceID.
func (m *Marketplace) MarkServiceFinished(ctx context.Context, sess auth.Session, serviceID string) (*models.Booking, error) {
	var bookingID string
	err := m.view(ctx, "finish", func(tx store.Tx) error {
		svc, err := tx.GetService(serviceID)
		if err != nil {
			return notFound(err, "service")
		}
		if svc.PostedBy != sess.Username {
			return models.NewNotAuthorizedError("only the provider can mark a service as finished")
		}
		b, err := tx.BookingForService(svc.ID)
		if errors.Is(err, store.ErrNotFound) {
			return &models.AppError{Code: models.CodeInvalidTransition, Message: "service has no booking to finish"}
		}
		if err != nil {
			return err
		}
		bookingID = b.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return m.MarkFinished(ctx, sess, bookingID)
}
