package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// SeedBalance is a test helper that sets a wallet balance directly when using
// the in-memory store. The wallet version is left untouched.
func SeedBalance(s Store, walletID string, amount decimal.Decimal) {
	if mem, ok := s.(*MemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if w, exists := mem.wallets[walletID]; exists {
			w.Balance = amount
			mem.wallets[walletID] = w
		}
	}
}

// SetClock replaces the in-memory store's time source. Tests use it to
// produce records with controlled timestamps.
func SetClock(s Store, now func() time.Time) {
	if mem, ok := s.(*MemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.now = now
	}
}
