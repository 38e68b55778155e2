package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finpay/ledger/internal/apperr"
	"github.com/finpay/ledger/internal/ledger"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	repo := NewMemoryRepository(nil)
	svc := NewService(repo)

	ctx := context.Background()
	user, err := svc.Register(ctx, Registration{Email: " Alice@Example.com ", Password: "secret1", FirstName: "Alice", LastName: "Doe"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalised email, got %s", user.Email)
	}
	if string(user.PasswordHash) == "secret1" {
		t.Fatalf("password stored in clear text")
	}

	authed, err := svc.Authenticate(ctx, Credentials{Email: "ALICE@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, authed.ID)
	}
	if authed.LastLogin == nil {
		t.Fatalf("expected last login to be recorded")
	}
	assert.Equal(t, "Alice Doe", authed.FullName())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository(nil))
	ctx := context.Background()

	_, err := svc.Register(ctx, Registration{Email: "bob@example.com", Password: "secret1", FirstName: "Bob", LastName: "Smith"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, Registration{Email: "BOB@example.com", Password: "other12", FirstName: "Bob", LastName: "Jones"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository(nil))
	ctx := context.Background()

	cases := map[string]Registration{
		"missing last name": {Email: "a@example.com", Password: "secret1", FirstName: "A"},
		"bad email":         {Email: "not-an-email", Password: "secret1", FirstName: "A", LastName: "B"},
		"short password":    {Email: "a@example.com", Password: "123", FirstName: "A", LastName: "B"},
	}
	for name, reg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, reg)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc := NewService(NewMemoryRepository(nil))
	ctx := context.Background()

	_, err := svc.Register(ctx, Registration{Email: "c@example.com", Password: "secret1", FirstName: "C", LastName: "D"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, Credentials{Email: "c@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, Credentials{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

type brokenWalletStore struct {
	ledger.Store
	fail bool
}

func (s *brokenWalletStore) CreateWallet(ctx context.Context, ownerID, currency string) (ledger.Wallet, error) {
	if s.fail {
		return ledger.Wallet{}, apperr.Storage(errors.New("wallets table unavailable"))
	}
	return s.Store.CreateWallet(ctx, ownerID, currency)
}

func TestRegisterWithWalletProvisionsWallet(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(NewMemoryRepository(store))
	ctx := context.Background()

	user, w, err := svc.RegisterWithWallet(ctx, Registration{Email: "e@example.com", Password: "secret1", FirstName: "E", LastName: "F"}, "USD")
	require.NoError(t, err)
	assert.Equal(t, user.ID, w.OwnerID)
	assert.Equal(t, "USD", w.Currency)
	assert.True(t, w.Balance.IsZero())

	got, err := store.GetWallet(ctx, user.ID, "USD")
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)

	_, _, err = svc.RegisterWithWallet(ctx, Registration{Email: "E@example.com", Password: "secret1", FirstName: "E", LastName: "F"}, "USD")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterWithWalletLeavesNoUserWhenWalletFails(t *testing.T) {
	store := &brokenWalletStore{Store: ledger.NewInMemory(), fail: true}
	svc := NewService(NewMemoryRepository(store))
	ctx := context.Background()
	reg := Registration{Email: "g@example.com", Password: "secret1", FirstName: "G", LastName: "H"}

	_, _, err := svc.RegisterWithWallet(ctx, reg, "USD")
	require.ErrorIs(t, err, apperr.ErrStorageFailure)

	_, err = svc.FindByEmail(ctx, reg.Email)
	assert.ErrorIs(t, err, ErrUserNotFound)

	store.fail = false
	user, w, err := svc.RegisterWithWallet(ctx, reg, "USD")
	require.NoError(t, err)
	assert.Equal(t, user.ID, w.OwnerID)

	found, err := svc.FindByEmail(ctx, reg.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}
