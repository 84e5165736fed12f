package models

import "time"

// EntryKind names the event that moved credits.
type EntryKind string

const (
	EntrySignupGrant        EntryKind = "signup_grant"
	EntryBookingDebit       EntryKind = "booking_debit"
	EntryCancellationRefund EntryKind = "cancellation_refund"
	EntryCompletionPayout   EntryKind = "completion_payout"
)

// LedgerEntry is an append-only signed change to a user's balance.
type LedgerEntry struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Amount    int64     `json:"amount" db:"amount"`
	Kind      EntryKind `json:"kind" db:"kind"`
	BookingID *string   `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Reconciliation compares a cached balance with its ledger.
type Reconciliation struct {
	Username      string `json:"username"`
	CachedBalance int64  `json:"cached_balance"`
	LedgerBalance int64  `json:"ledger_balance"`
	Entries       int    `json:"entries"`
	Consistent    bool   `json:"consistent"`
}

// Stats is a store-wide snapshot for operators.
type Stats struct {
	Users             int                  `json:"users"`
	Services          int                  `json:"services"`
	FinishedServices  int                  `json:"finished_services"`
	Bookings          map[BookingState]int `json:"bookings"`
	Messages          int                  `json:"messages"`
	Reviews           int                  `json:"reviews"`
	LedgerEntries     int                  `json:"ledger_entries"`
	CreditsInAccounts int64                `json:"credits_in_accounts"`
}

// BookingEvent is emitted after a booking transition commits, for
// out-of-band notifications such as email.
type BookingEvent struct {
	Kind         string    `json:"kind"`
	BookingID    string    `json:"booking_id"`
	ServiceTitle string    `json:"service_title"`
	Recipient    string    `json:"recipient"`
	Email        string    `json:"email"`
	Body         string    `json:"body"`
	At           time.Time `json:"at"`
}
