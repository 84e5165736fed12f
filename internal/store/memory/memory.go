// Package memory is an in-process store.Store. Writers are serialized and
// work on a private copy of the data that replaces the published snapshot
// only when the callback and the commit hook both succeed.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
)

type Store struct {
	mu       sync.Mutex
	snap     atomic.Pointer[data]
	onCommit func() error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	s := &Store{}
	s.snap.Store(newData())
	return s
}

// OnCommit installs a hook that runs before a write transaction is
// published. A non-nil error aborts the commit.
func (s *Store) OnCommit(fn func() error) {
	s.mu.Lock()
	s.onCommit = fn
	s.mu.Unlock()
}

func (s *Store) View(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&tx{d: s.snap.Load()})
}

func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.Load().clone()
	if err := fn(&tx{d: next, writable: true}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.onCommit != nil {
		if err := s.onCommit(); err != nil {
			return models.NewPersistenceError("commit", err)
		}
	}
	s.snap.Store(next)
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() {}

// table keeps rows by id plus their insertion order.
type table[T any] struct {
	rows  map[string]T
	order []string
}

func newTable[T any]() table[T] {
	return table[T]{rows: make(map[string]T)}
}

func (t table[T]) clone() table[T] {
	return table[T]{rows: maps.Clone(t.rows), order: slices.Clone(t.order)}
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) del(id string) {
	if _, ok := t.rows[id]; !ok {
		return
	}
	delete(t.rows, id)
	t.order = slices.DeleteFunc(t.order, func(s string) bool { return s == id })
}

func (t table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

// ascending returns the rows matching keep in insertion order.
func (t table[T]) ascending(keep func(T) bool) []T {
	out := make([]T, 0)
	for _, id := range t.order {
		if v := t.rows[id]; keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (t table[T]) descending(keep func(T) bool) []T {
	out := t.ascending(keep)
	slices.Reverse(out)
	return out
}

type data struct {
	users    table[models.User]
	services table[models.Service]
	bookings table[models.Booking]
	messages table[models.Message]
	reviews  table[models.Review]
	entries  table[models.LedgerEntry]
}

func newData() *data {
	return &data{
		users:    newTable[models.User](),
		services: newTable[models.Service](),
		bookings: newTable[models.Booking](),
		messages: newTable[models.Message](),
		reviews:  newTable[models.Review](),
		entries:  newTable[models.LedgerEntry](),
	}
}

func (d *data) clone() *data {
	return &data{
		users:    d.users.clone(),
		services: d.services.clone(),
		bookings: d.bookings.clone(),
		messages: d.messages.clone(),
		reviews:  d.reviews.clone(),
		entries:  d.entries.clone(),
	}
}
