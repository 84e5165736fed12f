// Package marketplace implements services, bookings, the booking lifecycle
// and reviews on top of the transactional store.
package marketplace

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/sudo-init-do/timerenting/internal/messaging"
	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/observability"
	"github.com/sudo-init-do/timerenting/internal/store"
	"github.com/sudo-init-do/timerenting/internal/wallet"
)

// Notifier receives booking events after they commit. Failures are logged
// and never undo the transition.
type Notifier interface {
	Notify(ctx context.Context, ev models.BookingEvent) error
}

type Marketplace struct {
	store    store.Store
	ledger   *wallet.Ledger
	pub      messaging.Publisher
	notifier Notifier
	now      func() time.Time
	log      *slog.Logger
}

type Option func(*Marketplace)

// WithPublisher pushes notice messages to connected clients after commit.
func WithPublisher(p messaging.Publisher) Option {
	return func(m *Marketplace) { m.pub = p }
}

// WithNotifier forwards booking events, e.g. to the email queue.
func WithNotifier(n Notifier) Option {
	return func(m *Marketplace) { m.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(m *Marketplace) { m.now = now }
}

func New(st store.Store, ledger *wallet.Ledger, opts ...Option) *Marketplace {
	m := &Marketplace{
		store:  st,
		ledger: ledger,
		now:    time.Now,
		log:    slog.With("component", "marketplace"),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

type creditMove struct {
	kind   models.EntryKind
	amount int64
}

// outbox collects what a transaction produced. It is announced only after
// the transaction commits.
type outbox struct {
	messages    []models.Message
	events      []models.BookingEvent
	moves       []creditMove
	transitions []string
}

func (o *outbox) message(m models.Message) { o.messages = append(o.messages, m) }

func (o *outbox) event(ev models.BookingEvent) { o.events = append(o.events, ev) }

func (o *outbox) moved(kind models.EntryKind, amount int64) {
	o.moves = append(o.moves, creditMove{kind: kind, amount: amount})
}

func (o *outbox) transitioned(name string) { o.transitions = append(o.transitions, name) }

// update runs fn in one store transaction and announces its outbox on
// success. Store sentinels and driver failures come back as typed errors.
func (m *Marketplace) update(ctx context.Context, op string, fn func(tx store.Tx, out *outbox) error) error {
	var out outbox
	err := m.store.Update(ctx, func(tx store.Tx) error {
		out = outbox{}
		return fn(tx, &out)
	})
	if err != nil {
		err = classify(op, err)
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			observability.OperationFailures.WithLabelValues(op, appErr.Code).Inc()
		}
		m.log.Debug("operation rejected", "op", op, "error", err)
		return err
	}
	m.flush(ctx, out)
	return nil
}

func (m *Marketplace) view(ctx context.Context, op string, fn func(tx store.Tx) error) error {
	if err := m.store.View(ctx, fn); err != nil {
		return classify(op, err)
	}
	return nil
}

func (m *Marketplace) flush(ctx context.Context, out outbox) {
	for _, t := range out.transitions {
		observability.BookingTransitions.WithLabelValues(t).Inc()
	}
	for _, mv := range out.moves {
		observability.CreditsMoved.WithLabelValues(string(mv.kind)).Add(float64(mv.amount))
	}
	for _, msg := range out.messages {
		messaging.NotifyNew(ctx, m.pub, msg)
	}
	if m.notifier == nil {
		return
	}
	for _, ev := range out.events {
		if err := m.notifier.Notify(ctx, ev); err != nil {
			m.log.Warn("booking notification failed", "kind", ev.Kind, "booking_id", ev.BookingID, "error", err)
		}
	}
}

func classify(op string, err error) error {
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, store.ErrNotFound):
		return models.NewNotFoundError("record")
	case errors.Is(err, store.ErrConflict):
		return models.NewConflictError("the record was changed by another request, try again")
	default:
		return models.NewPersistenceError(op, err)
	}
}

// lockUsers loads the named users in username order so that concurrent
// transactions take row locks in the same sequence.
func lockUsers(tx store.Tx, names ...string) (map[string]*models.User, error) {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	users := make(map[string]*models.User, len(sorted))
	for _, n := range sorted {
		u, err := tx.GetUser(n)
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNotFoundError("user " + n)
		}
		if err != nil {
			return nil, err
		}
		users[n] = u
	}
	return users, nil
}

func notFound(err error, resource string) error {
	if errors.Is(err, store.ErrNotFound) {
		return models.NewNotFoundError(resource)
	}
	return err
}
