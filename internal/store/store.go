// Package store defines the transactional entity store the marketplace runs on.
package store

import (
	"context"
	"errors"

	"github.com/sudo-init-do/timerenting/internal/models"
)

var (
	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a uniqueness constraint or a
	// compare-and-swap precondition fails.
	ErrConflict = errors.New("store: conflict")
	// ErrReadOnly is returned by writes attempted inside View.
	ErrReadOnly = errors.New("store: read-only transaction")
)

// Store runs callbacks inside transactions. Update commits every write made
// by fn atomically, or none of them when fn or the commit fails. View is
// read-only.
type Store interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Ping(ctx context.Context) error
	Close()
}

type ServiceFilter struct {
	PostedBy string
	// OpenOnly keeps services that are not finished and not booked.
	OpenOnly bool
}

type BookingFilter struct {
	User      string
	Provider  string
	ServiceID string
	States    []models.BookingState
}

type MessageFilter struct {
	// User is required; Peer narrows to the conversation with one user.
	User string
	Peer string
}

type ReviewFilter struct {
	ServiceID string
	FromUser  string
	ToUser    string
}

// Tx is the unit of work handed to View and Update callbacks. Inside Update,
// the Get methods lock the returned row until the transaction ends.
type Tx interface {
	CreateUser(u *models.User) error
	GetUser(username string) (*models.User, error)
	UpdateUser(u *models.User) error
	ListUsers() ([]models.User, error)

	CreateService(s *models.Service) error
	GetService(id string) (*models.Service, error)
	UpdateService(s *models.Service) error
	DeleteService(id string) error
	// FinishService flips is_finished from false to true, or returns
	// ErrConflict when it was already set.
	FinishService(id string) error
	ListServices(f ServiceFilter) ([]models.Service, error)

	// CreateBooking returns ErrConflict when the service already has a live booking.
	CreateBooking(b *models.Booking) error
	GetBooking(id string) (*models.Booking, error)
	// UpdateBooking writes b only if the stored state still equals from.
	UpdateBooking(b *models.Booking, from models.BookingState) error
	BookingForService(serviceID string) (*models.Booking, error)
	ListBookings(f BookingFilter) ([]models.Booking, error)

	CreateMessage(m *models.Message) error
	ListMessages(f MessageFilter) ([]models.Message, error)
	MarkMessagesRead(receiver, sender string) (int, error)
	CountUnread(receiver string) (int, error)

	// CreateReview returns ErrConflict on a second review of the same
	// service by the same user.
	CreateReview(r *models.Review) error
	ListReviews(f ReviewFilter) ([]models.Review, error)

	AppendEntry(e *models.LedgerEntry) error
	ListEntries(username string) ([]models.LedgerEntry, error)
	SumEntries(username string) (int64, int, error)

	Stats() (models.Stats, error)
}
