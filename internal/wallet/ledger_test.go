package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/timerenting/internal/auth"
	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
	"github.com/sudo-init-do/timerenting/internal/store/memory"
)

func newUser(t *testing.T, st store.Store, l *Ledger, name string, credits int64) {
	t.Helper()
	require.NoError(t, st.Update(context.Background(), func(tx store.Tx) error {
		u := &models.User{Username: name, CreatedAt: time.Now()}
		if err := tx.CreateUser(u); err != nil {
			return err
		}
		return l.Grant(tx, u, credits)
	}))
}

func move(st store.Store, name string, fn func(tx store.Tx, u *models.User) error) error {
	return st.Update(context.Background(), func(tx store.Tx) error {
		u, err := tx.GetUser(name)
		if err != nil {
			return err
		}
		return fn(tx, u)
	})
}

func reconcile(t *testing.T, st store.Store, name string) models.Reconciliation {
	t.Helper()
	var rec models.Reconciliation
	require.NoError(t, st.View(context.Background(), func(tx store.Tx) error {
		var err error
		rec, err = Reconcile(tx, name)
		return err
	}))
	return rec
}

func TestLedger_DebitAndCredit(t *testing.T) {
	st := memory.New()
	l := NewLedger(false)
	newUser(t, st, l, "alice", 10)

	require.NoError(t, move(st, "alice", func(tx store.Tx, u *models.User) error {
		return l.Debit(tx, u, 4, models.EntryBookingDebit, "b1")
	}))
	require.NoError(t, move(st, "alice", func(tx store.Tx, u *models.User) error {
		return l.Credit(tx, u, 4, models.EntryCancellationRefund, "b1")
	}))

	rec := reconcile(t, st, "alice")
	assert.True(t, rec.Consistent)
	assert.Equal(t, int64(10), rec.CachedBalance)
	assert.Equal(t, 3, rec.Entries)

	var entries []models.LedgerEntry
	require.NoError(t, st.View(context.Background(), func(tx store.Tx) error {
		var err error
		entries, err = tx.ListEntries("alice")
		return err
	}))
	require.Len(t, entries, 3)
	assert.Equal(t, int64(-4), entries[1].Amount)
	require.NotNil(t, entries[1].BookingID)
	assert.Equal(t, "b1", *entries[1].BookingID)
	assert.Nil(t, entries[0].BookingID)
}

func TestLedger_InsufficientCredits(t *testing.T) {
	st := memory.New()
	l := NewLedger(false)
	newUser(t, st, l, "alice", 3)

	err := move(st, "alice", func(tx store.Tx, u *models.User) error {
		return l.Debit(tx, u, 5, models.EntryBookingDebit, "b1")
	})
	assert.ErrorIs(t, err, models.ErrInsufficientCredits)

	rec := reconcile(t, st, "alice")
	assert.Equal(t, int64(3), rec.CachedBalance)
	assert.Equal(t, 1, rec.Entries)
}

func TestLedger_AllowNegative(t *testing.T) {
	st := memory.New()
	l := NewLedger(true)
	assert.True(t, l.AllowsNegativeBalance())
	newUser(t, st, l, "alice", 3)

	require.NoError(t, move(st, "alice", func(tx store.Tx, u *models.User) error {
		return l.Debit(tx, u, 5, models.EntryBookingDebit, "b1")
	}))
	rec := reconcile(t, st, "alice")
	assert.Equal(t, int64(-2), rec.CachedBalance)
	assert.True(t, rec.Consistent)
}

func TestLedger_RejectsNonPositiveAmounts(t *testing.T) {
	st := memory.New()
	l := NewLedger(false)
	newUser(t, st, l, "alice", 0)

	err := move(st, "alice", func(tx store.Tx, u *models.User) error {
		return l.Debit(tx, u, 0, models.EntryBookingDebit, "")
	})
	assert.ErrorIs(t, err, models.ErrValidation)
	err = move(st, "alice", func(tx store.Tx, u *models.User) error {
		return l.Credit(tx, u, -1, models.EntryCompletionPayout, "")
	})
	assert.ErrorIs(t, err, models.ErrValidation)
	err = move(st, "alice", func(tx store.Tx, u *models.User) error {
		return l.Grant(tx, u, -1)
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Equal(t, 0, reconcile(t, st, "alice").Entries)
}

func TestHandler_BalanceAndTransactions(t *testing.T) {
	st := memory.New()
	l := NewLedger(false)
	newUser(t, st, l, "alice", 10)
	h := NewHandler(st)

	call := func(fn echo.HandlerFunc, sess *auth.Session) *httptest.ResponseRecorder {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if sess != nil {
			auth.SetSession(c, *sess)
		}
		require.NoError(t, fn(c))
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, call(h.Balance, nil).Code)

	rec := call(h.Balance, &auth.Session{Username: "alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"time_credits":10`)

	rec = call(h.Transactions, &auth.Session{Username: "alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Entries []models.LedgerEntry `json:"entries"`
		Balance int64                `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Entries, 1)
	assert.Equal(t, int64(10), body.Balance)

	assert.Equal(t, http.StatusNotFound, call(h.Balance, &auth.Session{Username: "ghost"}).Code)
}
