package marketplace

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/timerenting/internal/auth"
	"github.com/sudo-init-do/timerenting/internal/messaging"
	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
)

// Booking event kinds handed to the Notifier.
const (
	KindBookingCreated        = "booking_created"
	KindCancellationRequested = "cancellation_requested"
	KindCancellationApproved  = "cancellation_approved"
	KindCancellationRejected  = "cancellation_rejected"
	KindServiceFinished       = "service_finished"
)

// CreateBooking books serviceID for the caller. The price is debited from
// the caller and held until the provider finishes the service or approves
// a cancellation.
func (m *Marketplace) CreateBooking(ctx context.Context, sess auth.Session, serviceID string) (*models.Booking, error) {
	var booking *models.Booking
	err := m.update(ctx, "create_booking", func(tx store.Tx, out *outbox) error {
		svc, err := tx.GetService(serviceID)
		if err != nil {
			return notFound(err, "service")
		}
		if svc.PostedBy == sess.Username {
			return models.NewSelfBookingError()
		}
		if svc.IsFinished {
			return models.NewServiceUnavailableError("service is already finished")
		}
		if _, err := tx.BookingForService(svc.ID); err == nil {
			return models.NewServiceUnavailableError("service is already booked")
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		users, err := lockUsers(tx, sess.Username, svc.PostedBy)
		if err != nil {
			return err
		}
		subscriber, provider := users[sess.Username], users[svc.PostedBy]

		now := m.now()
		b := &models.Booking{
			ID:                  uuid.New().String(),
			ServiceID:           &svc.ID,
			ServiceTitle:        svc.Title,
			User:                subscriber.Username,
			Provider:            provider.Username,
			RequiredTimeCredits: svc.RequiredTimeCredits,
			State:               models.BookingActive,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := m.ledger.Debit(tx, subscriber, svc.RequiredTimeCredits, models.EntryBookingDebit, b.ID); err != nil {
			return err
		}
		if err := tx.CreateBooking(b); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return models.NewServiceUnavailableError("service is already booked")
			}
			return err
		}

		content := messaging.BookingNotice(provider.Username, svc.Title)
		msg, err := messaging.Append(tx, subscriber.Username, provider.Username, content, b.ID, now)
		if err != nil {
			return err
		}

		out.message(msg)
		out.moved(models.EntryBookingDebit, svc.RequiredTimeCredits)
		out.transitioned("book")
		out.event(bookingEvent(KindBookingCreated, b, provider, content, now))
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("booking created", "booking_id", booking.ID, "user", booking.User, "provider", booking.Provider,
		"credits", booking.RequiredTimeCredits)
	return booking, nil
}

// RequestCancellation asks the provider to cancel the caller's booking.
// Asking again while a request is pending changes nothing.
func (m *Marketplace) RequestCancellation(ctx context.Context, sess auth.Session, bookingID string) (*models.Booking, error) {
	var booking *models.Booking
	err := m.update(ctx, "request_cancellation", func(tx store.Tx, out *outbox) error {
		b, err := tx.GetBooking(bookingID)
		if err != nil {
			return notFound(err, "booking")
		}
		if b.User != sess.Username {
			return models.NewNotAuthorizedError("only the subscriber can request a cancellation")
		}
		to, noop, err := Next(b.State, EventRequestCancellation)
		if err != nil {
			return err
		}
		booking = b
		if noop {
			return nil
		}

		now := m.now()
		from := b.State
		b.State, b.UpdatedAt = to, now
		if err := tx.UpdateBooking(b, from); err != nil {
			return err
		}

		provider, err := tx.GetUser(b.Provider)
		if err != nil {
			return notFound(err, "provider")
		}
		content := messaging.CancellationRequestNotice(b.Provider, b.ServiceTitle)
		msg, err := messaging.Append(tx, b.User, b.Provider, content, b.ID, now)
		if err != nil {
			return err
		}
		out.message(msg)
		out.transitioned(string(EventRequestCancellation))
		out.event(bookingEvent(KindCancellationRequested, b, provider, content, now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// ApproveCancellation refunds the subscriber and detaches the booking from
// its service, which becomes bookable again.
func (m *Marketplace) ApproveCancellation(ctx context.Context, sess auth.Session, bookingID string) (*models.Booking, error) {
	var booking *models.Booking
	err := m.update(ctx, "approve_cancellation", func(tx store.Tx, out *outbox) error {
		b, err := tx.GetBooking(bookingID)
		if err != nil {
			return notFound(err, "booking")
		}
		if b.Provider != sess.Username {
			return models.NewNotAuthorizedError("only the provider can approve a cancellation")
		}
		to, _, err := Next(b.State, EventApproveCancellation)
		if err != nil {
			return err
		}

		users, err := lockUsers(tx, b.User, b.Provider)
		if err != nil {
			return err
		}
		subscriber := users[b.User]
		if err := m.ledger.Credit(tx, subscriber, b.RequiredTimeCredits, models.EntryCancellationRefund, b.ID); err != nil {
			return err
		}

		now := m.now()
		from := b.State
		b.State, b.ServiceID, b.UpdatedAt = to, nil, now
		if err := tx.UpdateBooking(b, from); err != nil {
			return err
		}

		content := messaging.CancellationApprovedNotice(b.ServiceTitle)
		msg, err := messaging.Append(tx, b.Provider, b.User, content, b.ID, now)
		if err != nil {
			return err
		}
		out.message(msg)
		out.moved(models.EntryCancellationRefund, b.RequiredTimeCredits)
		out.transitioned(string(EventApproveCancellation))
		out.event(bookingEvent(KindCancellationApproved, b, subscriber, content, now))
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("cancellation approved", "booking_id", booking.ID, "refund", booking.RequiredTimeCredits)
	return booking, nil
}

// RejectCancellation keeps the booking and returns it to active.
func (m *Marketplace) RejectCancellation(ctx context.Context, sess auth.Session, bookingID string) (*models.Booking, error) {
	var booking *models.Booking
	err := m.update(ctx, "reject_cancellation", func(tx store.Tx, out *outbox) error {
		b, err := tx.GetBooking(bookingID)
		if err != nil {
			return notFound(err, "booking")
		}
		if b.Provider != sess.Username {
			return models.NewNotAuthorizedError("only the provider can reject a cancellation")
		}
		to, _, err := Next(b.State, EventRejectCancellation)
		if err != nil {
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
		content := messaging.CancellationRejectedNotice(b.ServiceTitle)
		msg, err := messaging.Append(tx, b.Provider, b.User, content, b.ID, now)
		if err != nil {
			return err
		}
		out.message(msg)
		out.transitioned(string(EventRejectCancellation))
		out.event(bookingEvent(KindCancellationRejected, b, subscriber, content, now))
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// GetBooking returns a booking visible to one of its two parties.
func (m *Marketplace) GetBooking(ctx context.Context, sess auth.Session, bookingID string) (*models.Booking, error) {
	var booking *models.Booking
	err := m.view(ctx, "get_booking", func(tx store.Tx) error {
		b, err := tx.GetBooking(bookingID)
		if err != nil {
			return notFound(err, "booking")
		}
		if b.User != sess.Username && b.Provider != sess.Username {
			return models.NewNotAuthorizedError("not a party to this booking")
		}
		booking = b
		return nil
	})
	return booking, err
}

// ListBookedServices returns the caller's bookings as a subscriber, newest first.
func (m *Marketplace) ListBookedServices(ctx context.Context, sess auth.Session) ([]models.Booking, error) {
	return m.listBookings(ctx, store.BookingFilter{User: sess.Username})
}

// ListIncomingBookings returns bookings of the caller's services.
func (m *Marketplace) ListIncomingBookings(ctx context.Context, sess auth.Session) ([]models.Booking, error) {
	return m.listBookings(ctx, store.BookingFilter{Provider: sess.Username})
}

// ListCancellationRequests returns the pending cancellation requests the
// caller has to decide on.
func (m *Marketplace) ListCancellationRequests(ctx context.Context, sess auth.Session) ([]models.Booking, error) {
	return m.listBookings(ctx, store.BookingFilter{
		Provider: sess.Username,
		States:   []models.BookingState{models.BookingCancellationRequested},
	})
}

func (m *Marketplace) listBookings(ctx context.Context, f store.BookingFilter) ([]models.Booking, error) {
	var bookings []models.Booking
	err := m.view(ctx, "list_bookings", func(tx store.Tx) error {
		var err error
		bookings, err = tx.ListBookings(f)
		return err
	})
	return bookings, err
}

func bookingEvent(kind string, b *models.Booking, recipient *models.User, body string, at time.Time) models.BookingEvent {
	return models.BookingEvent{
		Kind:         kind,
		BookingID:    b.ID,
		ServiceTitle: b.ServiceTitle,
		Recipient:    recipient.Username,
		Email:        recipient.Email,
		Body:         body,
		At:           at,
	}
}
