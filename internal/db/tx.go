package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
)

const (
	userColumns    = `username, email, password_hash, time_credits, introduction, created_at`
	serviceColumns = `id, title, description, location, required_time_credits, is_finished, posted_by, created_at`
	bookingColumns = `id, service_id, service_title, username, provider, required_time_credits, state, created_at, updated_at`
	messageColumns = `id, sender, receiver, content, is_read, booking_id, created_at`
	reviewColumns  = `id, service_id, from_user, to_user, rating, text, created_at`
	entryColumns   = `id, username, amount, kind, booking_id, created_at`
)

type pgTx struct {
	ctx      context.Context
	tx       pgx.Tx
	writable bool
}

// lock appends FOR UPDATE to row lookups made by write transactions, so
// concurrent transitions on the same row queue up behind each other.
func (t *pgTx) lock(query string) string {
	if t.writable {
		return query + ` FOR UPDATE`
	}
	return query
}

func (t *pgTx) exec(op, query string, args ...any) (int64, error) {
	if !t.writable {
		return 0, store.ErrReadOnly
	}
	tag, err := t.tx.Exec(t.ctx, query, args...)
	if err != nil {
		return 0, mapErr(op, err)
	}
	return tag.RowsAffected(), nil
}

func queryOne[T any](t *pgTx, op, query string, args ...any) (*T, error) {
	rows, err := t.tx.Query(t.ctx, query, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	v, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, mapErr(op, err)
	}
	return &v, nil
}

func queryAll[T any](t *pgTx, op, query string, args ...any) ([]T, error) {
	rows, err := t.tx.Query(t.ctx, query, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, mapErr(op, err)
	}
	return out, nil
}

// Users

func (t *pgTx) CreateUser(u *models.User) error {
	_, err := t.exec("create user",
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.Username, u.Email, u.PasswordHash, u.TimeCredits, u.Introduction, u.CreatedAt,
	)
	return err
}

func (t *pgTx) GetUser(username string) (*models.User, error) {
	return queryOne[models.User](t, "get user",
		t.lock(`SELECT `+userColumns+` FROM users WHERE username = $1`), username)
}

func (t *pgTx) UpdateUser(u *models.User) error {
	n, err := t.exec("update user",
		`UPDATE users SET email = $2, password_hash = $3, time_credits = $4, introduction = $5 WHERE username = $1`,
		u.Username, u.Email, u.PasswordHash, u.TimeCredits, u.Introduction,
	)
	if err == nil && n == 0 {
		return store.ErrNotFound
	}
	return err
}

func (t *pgTx) ListUsers() ([]models.User, error) {
	return queryAll[models.User](t, "list users", `SELECT `+userColumns+` FROM users ORDER BY username`)
}

// Services

func (t *pgTx) CreateService(s *models.Service) error {
	_, err := t.exec("create service",
		`INSERT INTO services (`+serviceColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.Title, s.Description, s.Location, s.RequiredTimeCredits, s.IsFinished, s.PostedBy, s.CreatedAt,
	)
	return err
}

func (t *pgTx) GetService(id string) (*models.Service, error) {
	return queryOne[models.Service](t, "get service",
		t.lock(`SELECT `+serviceColumns+` FROM services WHERE id = $1`), id)
}

func (t *pgTx) UpdateService(s *models.Service) error {
	n, err := t.exec("update service",
		`UPDATE services SET title = $2, description = $3, location = $4, required_time_credits = $5
         WHERE id = $1`,
		s.ID, s.Title, s.Description, s.Location, s.RequiredTimeCredits,
	)
	if err == nil && n == 0 {
		return store.ErrNotFound
	}
	return err
}

func (t *pgTx) DeleteService(id string) error {
	n, err := t.exec("delete service", `DELETE FROM services WHERE id = $1`, id)
	if err == nil && n == 0 {
		return store.ErrNotFound
	}
	return err
}

func (t *pgTx) FinishService(id string) error {
	n, err := t.exec("finish service",
		`UPDATE services SET is_finished = TRUE WHERE id = $1 AND is_finished = FALSE`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := t.GetService(id); err != nil {
			return err
		}
		return store.ErrConflict
	}
	return nil
}

func (t *pgTx) ListServices(f store.ServiceFilter) ([]models.Service, error) {
	var (
		where []string
		args  []any
	)
	if f.PostedBy != "" {
		args = append(args, f.PostedBy)
		where = append(where, fmt.Sprintf("s.posted_by = $%d", len(args)))
	}
	if f.OpenOnly {
		where = append(where, `s.is_finished = FALSE`,
			`NOT EXISTS (SELECT 1 FROM bookings b WHERE b.service_id = s.id)`)
	}
	query := `SELECT ` + prefixed("s", serviceColumns) + ` FROM services s`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY s.created_at DESC, s.id`
	return queryAll[models.Service](t, "list services", query, args...)
}

// Bookings

func (t *pgTx) CreateBooking(b *models.Booking) error {
	_, err := t.exec("create booking",
		`INSERT INTO bookings (`+bookingColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.ServiceID, b.ServiceTitle, b.User, b.Provider, b.RequiredTimeCredits, b.State, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

func (t *pgTx) GetBooking(id string) (*models.Booking, error) {
	return queryOne[models.Booking](t, "get booking",
		t.lock(`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`), id)
}

func (t *pgTx) UpdateBooking(b *models.Booking, from models.BookingState) error {
	n, err := t.exec("update booking",
		`UPDATE bookings SET service_id = $3, state = $4, updated_at = $5
         WHERE id = $1 AND state = $2`,
		b.ID, from, b.ServiceID, b.State, b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := t.GetBooking(b.ID); err != nil {
			return err
		}
		return store.ErrConflict
	}
	return nil
}

func (t *pgTx) BookingForService(serviceID string) (*models.Booking, error) {
	return queryOne[models.Booking](t, "booking for service",
		t.lock(`SELECT `+bookingColumns+` FROM bookings WHERE service_id = $1`), serviceID)
}

func (t *pgTx) ListBookings(f store.BookingFilter) ([]models.Booking, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.User != "" {
		add("username = $%d", f.User)
	}
	if f.Provider != "" {
		add("provider = $%d", f.Provider)
	}
	if f.ServiceID != "" {
		add("service_id = $%d", f.ServiceID)
	}
	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, s := range f.States {
			states[i] = string(s)
		}
		add("state = ANY($%d)", states)
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY created_at DESC, id`
	return queryAll[models.Booking](t, "list bookings", query, args...)
}

// Messages

func (t *pgTx) CreateMessage(m *models.Message) error {
	_, err := t.exec("create message",
		`INSERT INTO messages (`+messageColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.Sender, m.Receiver, m.Content, m.IsRead, m.BookingID, m.CreatedAt,
	)
	return err
}

func (t *pgTx) ListMessages(f store.MessageFilter) ([]models.Message, error) {
	if f.Peer != "" {
		return queryAll[models.Message](t, "list conversation",
			`SELECT `+messageColumns+` FROM messages
             WHERE (sender = $1 AND receiver = $2) OR (sender = $2 AND receiver = $1)
             ORDER BY seq`, f.User, f.Peer)
	}
	return queryAll[models.Message](t, "list messages",
		`SELECT `+messageColumns+` FROM messages WHERE sender = $1 OR receiver = $1 ORDER BY seq`, f.User)
}

func (t *pgTx) MarkMessagesRead(receiver, sender string) (int, error) {
	n, err := t.exec("mark read",
		`UPDATE messages SET is_read = TRUE WHERE receiver = $1 AND sender = $2 AND is_read = FALSE`,
		receiver, sender)
	return int(n), err
}

func (t *pgTx) CountUnread(receiver string) (int, error) {
	var n int
	err := t.tx.QueryRow(t.ctx,
		`SELECT COUNT(*) FROM messages WHERE receiver = $1 AND is_read = FALSE`, receiver).Scan(&n)
	return n, mapErr("count unread", err)
}

// Reviews

func (t *pgTx) CreateReview(r *models.Review) error {
	_, err := t.exec("create review",
		`INSERT INTO reviews (`+reviewColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.ServiceID, r.FromUser, r.ToUser, r.Rating, r.Text, r.CreatedAt,
	)
	return err
}

func (t *pgTx) ListReviews(f store.ReviewFilter) ([]models.Review, error) {
	var (
		where []string
		args  []any
	)
	for _, c := range []struct{ col, v string }{
		{"service_id", f.ServiceID}, {"from_user", f.FromUser}, {"to_user", f.ToUser},
	} {
		if c.v != "" {
			args = append(args, c.v)
			where = append(where, fmt.Sprintf("%s = $%d", c.col, len(args)))
		}
	}
	query := `SELECT ` + reviewColumns + ` FROM reviews`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY created_at DESC, id`
	return queryAll[models.Review](t, "list reviews", query, args...)
}

// Ledger

func (t *pgTx) AppendEntry(e *models.LedgerEntry) error {
	_, err := t.exec("append ledger entry",
		`INSERT INTO ledger_entries (`+entryColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Username, e.Amount, e.Kind, e.BookingID, e.CreatedAt,
	)
	return err
}

func (t *pgTx) ListEntries(username string) ([]models.LedgerEntry, error) {
	return queryAll[models.LedgerEntry](t, "list ledger entries",
		`SELECT `+entryColumns+` FROM ledger_entries WHERE username = $1 ORDER BY seq`, username)
}

func (t *pgTx) SumEntries(username string) (int64, int, error) {
	var (
		sum int64
		n   int
	)
	err := t.tx.QueryRow(t.ctx,
		`SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM ledger_entries WHERE username = $1`, username,
	).Scan(&sum, &n)
	return sum, n, mapErr("sum ledger entries", err)
}

func (t *pgTx) Stats() (models.Stats, error) {
	st := models.Stats{Bookings: make(map[models.BookingState]int)}
	err := t.tx.QueryRow(t.ctx, `
        SELECT
            (SELECT COUNT(*) FROM users),
            (SELECT COUNT(*) FROM services),
            (SELECT COUNT(*) FROM services WHERE is_finished),
            (SELECT COUNT(*) FROM messages),
            (SELECT COUNT(*) FROM reviews),
            (SELECT COUNT(*) FROM ledger_entries),
            (SELECT COALESCE(SUM(time_credits), 0) FROM users)`,
	).Scan(&st.Users, &st.Services, &st.FinishedServices, &st.Messages, &st.Reviews,
		&st.LedgerEntries, &st.CreditsInAccounts)
	if err != nil {
		return st, mapErr("stats", err)
	}

	rows, err := t.tx.Query(t.ctx, `SELECT state, COUNT(*) FROM bookings GROUP BY state`)
	if err != nil {
		return st, mapErr("stats", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return st, mapErr("stats", err)
		}
		st.Bookings[models.BookingState(state)] = n
	}
	return st, mapErr("stats", rows.Err())
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
