package wallet

import (
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
)

// Ledger moves time credits. Every movement updates the cached balance on
// the user row and appends a signed entry in the same transaction.
type Ledger struct {
	allowNegative bool
	now           func() time.Time
}

func NewLedger(allowNegativeBalance bool) *Ledger {
	return &Ledger{allowNegative: allowNegativeBalance, now: time.Now}
}

// AllowsNegativeBalance reports the configured overdraft policy.
func (l *Ledger) AllowsNegativeBalance() bool { return l.allowNegative }

// Debit takes amount from u. Unless negative balances are allowed it fails
// with an insufficient-credits error and changes nothing when the balance
// is too low.
func (l *Ledger) Debit(tx store.Tx, u *models.User, amount int64, kind models.EntryKind, bookingID string) error {
	if amount <= 0 {
		return models.NewValidationError("debit amount must be positive")
	}
	if !l.allowNegative && u.TimeCredits < amount {
		return models.NewInsufficientCreditsError(u.TimeCredits, amount)
	}
	return l.apply(tx, u, -amount, kind, bookingID)
}

// Credit adds amount to u unconditionally.
func (l *Ledger) Credit(tx store.Tx, u *models.User, amount int64, kind models.EntryKind, bookingID string) error {
	if amount <= 0 {
		return models.NewValidationError("credit amount must be positive")
	}
	return l.apply(tx, u, amount, kind, bookingID)
}

// Grant records the starting balance of a new user. A zero grant writes nothing.
func (l *Ledger) Grant(tx store.Tx, u *models.User, amount int64) error {
	if amount == 0 {
		return nil
	}
	if amount < 0 {
		return models.NewValidationError("initial balance cannot be negative")
	}
	return l.apply(tx, u, amount, models.EntrySignupGrant, "")
}

func (l *Ledger) apply(tx store.Tx, u *models.User, delta int64, kind models.EntryKind, bookingID string) error {
	u.TimeCredits += delta
	if err := tx.UpdateUser(u); err != nil {
		u.TimeCredits -= delta
		return err
	}
	entry := &models.LedgerEntry{
		ID:        uuid.New().String(),
		Username:  u.Username,
		Amount:    delta,
		Kind:      kind,
		CreatedAt: l.now(),
	}
	if bookingID != "" {
		entry.BookingID = &bookingID
	}
	return tx.AppendEntry(entry)
}

// Reconcile compares the cached balance of username with its ledger.
func Reconcile(tx store.Tx, username string) (models.Reconciliation, error) {
	u, err := tx.GetUser(username)
	if err != nil {
		return models.Reconciliation{}, err
	}
	sum, n, err := tx.SumEntries(username)
	if err != nil {
		return models.Reconciliation{}, err
	}
	return models.Reconciliation{
		Username:      username,
		CachedBalance: u.TimeCredits,
		LedgerBalance: sum,
		Entries:       n,
		Consistent:    sum == u.TimeCredits,
	}, nil
}
