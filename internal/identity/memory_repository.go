package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/finpay/ledger/internal/apperr"
	"github.com/finpay/ledger/internal/ledger"
)

type memoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
	wallets ledger.Store
}

// NewMemoryRepository builds an in-memory user store for testing. wallets
// backs CreateWithWallet and may be nil when registration never provisions a
// wallet.
func NewMemoryRepository(wallets ledger.Store) Repository {
	return &memoryRepository{byID: make(map[string]User), byEmail: make(map[string]string), wallets: wallets}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return ErrEmailTaken
	}
	r.byID[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return nil
}

// CreateWithWallet holds the user lock across wallet creation and only
// records the user once the wallet exists.
func (r *memoryRepository) CreateWithWallet(ctx context.Context, user User, currency string) (ledger.Wallet, error) {
	if r.wallets == nil {
		return ledger.Wallet{}, apperr.Storage(errors.New("no wallet store configured"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return ledger.Wallet{}, ErrEmailTaken
	}
	w, err := r.wallets.CreateWallet(ctx, user.ID, currency)
	if err != nil {
		return ledger.Wallet{}, err
	}
	r.byID[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return w, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, id string, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	user.TokenVersion = version
	r.byID[id] = user
	return nil
}

func (r *memoryRepository) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	at = at.UTC()
	user.LastLogin = &at
	r.byID[id] = user
	return nil
}
