// Package db is the Postgres implementation of the entity store.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool, pings it and makes sure the schema exists.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	slog.Info("connected to postgres")

	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// EnsureSchema creates every table and index the store needs. It is
// idempotent and runs on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	steps := []struct {
		name string
		fn   func(context.Context, *pgxpool.Pool) error
	}{
		{"users", ensureUsersTable},
		{"services", ensureServicesTable},
		{"bookings", ensureBookingsTable},
		{"messages", ensureMessagesTable},
		{"reviews", ensureReviewsTable},
		{"ledger_entries", ensureLedgerTable},
	}
	for _, s := range steps {
		if err := s.fn(ctx, pool); err != nil {
			return fmt.Errorf("ensure %s: %w", s.name, err)
		}
	}
	slog.Info("schema ensured", "tables", len(steps))
	return nil
}

func ensureUsersTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            username TEXT PRIMARY KEY,
            email TEXT NOT NULL DEFAULT '',
            password_hash TEXT NOT NULL,
            time_credits BIGINT NOT NULL DEFAULT 0,
            introduction TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`)
	return err
}

func ensureServicesTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS services (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            location TEXT NOT NULL DEFAULT '',
            required_time_credits BIGINT NOT NULL CHECK (required_time_credits > 0),
            is_finished BOOLEAN NOT NULL DEFAULT FALSE,
            posted_by TEXT NOT NULL REFERENCES users(username),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_services_posted_by ON services(posted_by);
        CREATE INDEX IF NOT EXISTS idx_services_open ON services(created_at) WHERE is_finished = FALSE;
    `)
	return err
}

// ensureBookingsTable also creates the partial unique index that allows a
// single live booking per service. Approved cancellations null service_id
// and so drop out of the index.
func ensureBookingsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            service_id TEXT NULL REFERENCES services(id),
            service_title TEXT NOT NULL,
            username TEXT NOT NULL REFERENCES users(username),
            provider TEXT NOT NULL REFERENCES users(username),
            required_time_credits BIGINT NOT NULL,
            state TEXT NOT NULL CHECK (state IN ('active', 'cancellation_requested', 'cancelled', 'finished')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE UNIQUE INDEX IF NOT EXISTS uniq_bookings_live_service ON bookings(service_id) WHERE service_id IS NOT NULL;
        CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(username, created_at);
        CREATE INDEX IF NOT EXISTS idx_bookings_provider_state ON bookings(provider, state);
    `)
	return err
}

func ensureMessagesTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            sender TEXT NOT NULL REFERENCES users(username),
            receiver TEXT NOT NULL REFERENCES users(username),
            content TEXT NOT NULL,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            booking_id TEXT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            seq BIGSERIAL
        );
        CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender, receiver, seq);
        CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(receiver) WHERE is_read = FALSE;
    `)
	return err
}

func ensureReviewsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS reviews (
            id TEXT PRIMARY KEY,
            service_id TEXT NOT NULL REFERENCES services(id),
            from_user TEXT NOT NULL REFERENCES users(username),
            to_user TEXT NOT NULL REFERENCES users(username),
            rating SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
            text TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (service_id, from_user)
        );
        CREATE INDEX IF NOT EXISTS idx_reviews_to_user ON reviews(to_user, created_at);
    `)
	return err
}

func ensureLedgerTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS ledger_entries (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL REFERENCES users(username),
            amount BIGINT NOT NULL CHECK (amount <> 0),
            kind TEXT NOT NULL CHECK (kind IN ('signup_grant', 'booking_debit', 'cancellation_refund', 'completion_payout')),
            booking_id TEXT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            seq BIGSERIAL
        );
        CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger_entries(username, seq);
    `)
	return err
}
