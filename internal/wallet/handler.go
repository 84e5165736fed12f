package wallet

import (
	"github.com/sudo-init-do/timerenting/internal/store"
)

// Handler serves the caller's balance and ledger.
type Handler struct {
	store store.Store
}

func NewHandler(st store.Store) *Handler {
	return &Handler{store: st}
}
