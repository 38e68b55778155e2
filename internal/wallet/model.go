package wallet

import (
	"time"

	"github.com/finpay/ledger/internal/ledger"
	"github.com/finpay/ledger/internal/money"
)

// View is the client-facing representation of a wallet. Balances are
// rendered as fixed-point strings at the currency's precision.
type View struct {
	ID        string    `json:"id"`
	Currency  string    `json:"currency"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewView renders w using the precision of c.
func NewView(w ledger.Wallet, c money.Currency) View {
	return View{
		ID:        w.ID,
		Currency:  w.Currency,
		Balance:   c.Format(w.Balance),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}
