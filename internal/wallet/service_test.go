package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finpay/ledger/internal/apperr"
	"github.com/finpay/ledger/internal/ledger"
	"github.com/finpay/ledger/internal/money"
)

func newTestService(t *testing.T) (*Service, ledger.Store) {
	t.Helper()
	currencies, err := money.ParseCurrencies("USD:2,EUR:2,NGN:2")
	require.NoError(t, err)
	store := ledger.NewInMemory()
	return NewService(store, currencies), store
}

func TestServiceCreateAndGet(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	ownerID := uuid.NewString()

	w, err := svc.Create(ctx, ownerID, "eur")
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if w.Currency != "EUR" {
		t.Fatalf("expected EUR, got %s", w.Currency)
	}

	ledger.SeedBalance(store, w.ID, decimal.RequireFromString("25"))

	fetched, err := svc.GetByCurrency(ctx, ownerID, "EUR")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if fetched.ID != w.ID {
		t.Fatalf("expected wallet ID %s, got %s", w.ID, fetched.ID)
	}
	assert.Equal(t, "25.00", svc.View(fetched).Balance)
}

func TestServiceCreateRejectsDuplicateAndUnsupported(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ownerID := uuid.NewString()

	_, err := svc.Create(ctx, ownerID, "USD")
	require.NoError(t, err)

	_, err = svc.Create(ctx, ownerID, "usd")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.Create(ctx, ownerID, "GBP")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestServiceGetMissingWallet(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetByCurrency(context.Background(), uuid.NewString(), "NGN")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
