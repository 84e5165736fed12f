package memory

import (
	"slices"
	"strings"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
)

type tx struct {
	d        *data
	writable bool
}

func (t *tx) write() error {
	if !t.writable {
		return store.ErrReadOnly
	}
	return nil
}

// Users

func (t *tx) CreateUser(u *models.User) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, ok := t.d.users.get(u.Username); ok {
		return store.ErrConflict
	}
	t.d.users.put(u.Username, *u)
	return nil
}

func (t *tx) GetUser(username string) (*models.User, error) {
	u, ok := t.d.users.get(username)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (t *tx) UpdateUser(u *models.User) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, ok := t.d.users.get(u.Username); !ok {
		return store.ErrNotFound
	}
	t.d.users.put(u.Username, *u)
	return nil
}

func (t *tx) ListUsers() ([]models.User, error) {
	users := t.d.users.ascending(func(models.User) bool { return true })
	slices.SortFunc(users, func(a, b models.User) int { return strings.Compare(a.Username, b.Username) })
	return users, nil
}

// Services

func (t *tx) CreateService(s *models.Service) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, ok := t.d.services.get(s.ID); ok {
		return store.ErrConflict
	}
	t.d.services.put(s.ID, *s)
	return nil
}

func (t *tx) GetService(id string) (*models.Service, error) {
	s, ok := t.d.services.get(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (t *tx) UpdateService(s *models.Service) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, ok := t.d.services.get(s.ID); !ok {
		return store.ErrNotFound
	}
	t.d.services.put(s.ID, *s)
	return nil
}

func (t *tx) DeleteService(id string) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, ok := t.d.services.get(id); !ok {
		return store.ErrNotFound
	}
	t.d.services.del(id)
	return nil
}

func (t *tx) FinishService(id string) error {
	if err := t.write(); err != nil {
		return err
	}
	s, ok := t.d.services.get(id)
	if !ok {
		return store.ErrNotFound
	}
	if s.IsFinished {
		return store.ErrConflict
	}
	s.IsFinished = true
	t.d.services.put(id, s)
	return nil
}

func (t *tx) ListServices(f store.ServiceFilter) ([]models.Service, error) {
	booked := make(map[string]bool)
	if f.OpenOnly {
		for _, b := range t.d.bookings.rows {
			if b.ServiceID != nil {
				booked[*b.ServiceID] = true
			}
		}
	}
	return t.d.services.descending(func(s models.Service) bool {
		if f.PostedBy != "" && s.PostedBy != f.PostedBy {
			return false
		}
		if f.OpenOnly && (s.IsFinished || booked[s.ID]) {
			return false
		}
		return true
	}), nil
}

// Bookings

func (t *tx) CreateBooking(b *models.Booking) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, ok := t.d.bookings.get(b.ID); ok {
		return store.ErrConflict
	}
	if b.ServiceID != nil {
		if _, err := t.BookingForService(*b.ServiceID); err == nil {
			return store.ErrConflict
		}
	}
	t.d.bookings.put(b.ID, *b)
	return nil
}

func (t *tx) GetBooking(id string) (*models.Booking, error) {
	b, ok := t.d.bookings.get(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (t *tx) UpdateBooking(b *models.Booking, from models.BookingState) error {
	if err := t.write(); err != nil {
		return err
	}
	cur, ok := t.d.bookings.get(b.ID)
	if !ok {
		return store.ErrNotFound
	}
	if cur.State != from {
		return store.ErrConflict
	}
	t.d.bookings.put(b.ID, *b)
	return nil
}

func (t *tx) BookingForService(serviceID string) (*models.Booking, error) {
	for _, id := range t.d.bookings.order {
		b := t.d.bookings.rows[id]
		if b.ServiceID != nil && *b.ServiceID == serviceID {
			return &b, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *tx) ListBookings(f store.BookingFilter) ([]models.Booking, error) {
	return t.d.bookings.descending(func(b models.Booking) bool {
		if f.User != "" && b.User != f.User {
			return false
		}
		if f.Provider != "" && b.Provider != f.Provider {
			return false
		}
		if f.ServiceID != "" && (b.ServiceID == nil || *b.ServiceID != f.ServiceID) {
			return false
		}
		if len(f.States) > 0 && !slices.Contains(f.States, b.State) {
			return false
		}
		return true
	}), nil
}

// Messages

func (t *tx) CreateMessage(m *models.Message) error {
	if err := t.write(); err != nil {
		return err
	}
	t.d.messages.put(m.ID, *m)
	return nil
}

func (t *tx) ListMessages(f store.MessageFilter) ([]models.Message, error) {
	return t.d.messages.ascending(func(m models.Message) bool {
		if f.Peer != "" {
			return (m.Sender == f.User && m.Receiver == f.Peer) ||
				(m.Sender == f.Peer && m.Receiver == f.User)
		}
		return m.Sender == f.User || m.Receiver == f.User
	}), nil
}

func (t *tx) MarkMessagesRead(receiver, sender string) (int, error) {
	if err := t.write(); err != nil {
		return 0, err
	}
	n := 0
	for _, id := range t.d.messages.order {
		m := t.d.messages.rows[id]
		if m.Receiver == receiver && m.Sender == sender && !m.IsRead {
			m.IsRead = true
			t.d.messages.rows[id] = m
			n++
		}
	}
	return n, nil
}

func (t *tx) CountUnread(receiver string) (int, error) {
	n := 0
	for _, m := range t.d.messages.rows {
		if m.Receiver == receiver && !m.IsRead {
			n++
		}
	}
	return n, nil
}

// Reviews

func (t *tx) CreateReview(r *models.Review) error {
	if err := t.write(); err != nil {
		return err
	}
	for _, existing := range t.d.reviews.rows {
		if existing.ServiceID == r.ServiceID && existing.FromUser == r.FromUser {
			return store.ErrConflict
		}
	}
	t.d.reviews.put(r.ID, *r)
	return nil
}

func (t *tx) ListReviews(f store.ReviewFilter) ([]models.Review, error) {
	return t.d.reviews.descending(func(r models.Review) bool {
		if f.ServiceID != "" && r.ServiceID != f.ServiceID {
			return false
		}
		if f.FromUser != "" && r.FromUser != f.FromUser {
			return false
		}
		if f.ToUser != "" && r.ToUser != f.ToUser {
			return false
		}
		return true
	}), nil
}

// Ledger

func (t *tx) AppendEntry(e *models.LedgerEntry) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, ok := t.d.entries.get(e.ID); ok {
		return store.ErrConflict
	}
	t.d.entries.put(e.ID, *e)
	return nil
}

func (t *tx) ListEntries(username string) ([]models.LedgerEntry, error) {
	return t.d.entries.ascending(func(e models.LedgerEntry) bool { return e.Username == username }), nil
}

func (t *tx) SumEntries(username string) (int64, int, error) {
	var sum int64
	n := 0
	for _, e := range t.d.entries.rows {
		if e.Username == username {
			sum += e.Amount
			n++
		}
	}
	return sum, n, nil
}

func (t *tx) Stats() (models.Stats, error) {
	st := models.Stats{
		Users:         len(t.d.users.rows),
		Services:      len(t.d.services.rows),
		Bookings:      make(map[models.BookingState]int),
		Messages:      len(t.d.messages.rows),
		Reviews:       len(t.d.reviews.rows),
		LedgerEntries: len(t.d.entries.rows),
	}
	for _, s := range t.d.services.rows {
		if s.IsFinished {
			st.FinishedServices++
		}
	}
	for _, b := range t.d.bookings.rows {
		st.Bookings[b.State]++
	}
	for _, u := range t.d.users.rows {
		st.CreditsInAccounts += u.TimeCredits
	}
	return st, nil
}
