package wallet

import (
	"context"

	"github.com/finpay/ledger/internal/ledger"
	"github.com/finpay/ledger/internal/money"
)

// Service exposes wallet operations backed by the ledger store.
type Service struct {
	store      ledger.Store
	currencies money.Currencies
}

// NewService builds a wallet service instance.
func NewService(store ledger.Store, currencies money.Currencies) *Service {
	return &Service{store: store, currencies: currencies}
}

// Create opens a zero-balance wallet in a supported currency. An owner holds
// at most one wallet per currency.
func (s *Service) Create(ctx context.Context, ownerID, currency string) (ledger.Wallet, error) {
	c, err := s.currencies.Lookup(currency)
	if err != nil {
		return ledger.Wallet{}, err
	}
	return s.store.CreateWallet(ctx, ownerID, c.Code)
}

// List returns the owner's wallets ordered by currency.
func (s *Service) List(ctx context.Context, ownerID string) ([]ledger.Wallet, error) {
	return s.store.ListWallets(ctx, ownerID)
}

// GetByCurrency returns the owner's wallet in the given currency.
func (s *Service) GetByCurrency(ctx context.Context, ownerID, currency string) (ledger.Wallet, error) {
	c, err := s.currencies.Lookup(currency)
	if err != nil {
		return ledger.Wallet{}, err
	}
	return s.store.GetWallet(ctx, ownerID, c.Code)
}

// View renders a wallet with its currency's precision.
func (s *Service) View(w ledger.Wallet) View {
	c, err := s.currencies.Lookup(w.Currency)
	if err != nil {
		c = money.Currency{Code: w.Currency, Precision: 2}
	}
	return NewView(w, c)
}

// Currencies returns the supported currency set.
func (s *Service) Currencies() money.Currencies {
	return s.currencies
}
