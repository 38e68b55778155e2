package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finpay/ledger/internal/apperr"
)

// MemoryStore is a concurrency-safe in-memory Store and Reader useful for
// unit tests and local development.
//
// Each wallet has its own lock, so atomic units touching disjoint wallets
// run in parallel. Changes made inside Atomic are staged and published in
// one step at commit, so readers never observe half of a unit.
type MemoryStore struct {
	mu      sync.RWMutex
	wallets map[string]Wallet
	byOwner map[string]map[string]string
	locks   map[string]chan struct{}
	records []Record

	seq atomic.Int64
	now func() time.Time
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *MemoryStore {
	return &MemoryStore{
		wallets: make(map[string]Wallet),
		byOwner: make(map[string]map[string]string),
		locks:   make(map[string]chan struct{}),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateWallet(_ context.Context, ownerID, currency string) (Wallet, error) {
	if ownerID == "" || currency == "" {
		return Wallet{}, apperr.Validation("owner and currency are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byOwner[ownerID][currency]; exists {
		return Wallet{}, apperr.Conflict("wallet for %s already exists", currency)
	}

	now := s.now()
	w := Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Currency:  currency,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.wallets[w.ID] = w
	s.locks[w.ID] = make(chan struct{}, 1)
	if s.byOwner[ownerID] == nil {
		s.byOwner[ownerID] = make(map[string]string)
	}
	s.byOwner[ownerID][currency] = w.ID
	return w, nil
}

func (s *MemoryStore) GetWallet(_ context.Context, ownerID, currency string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byOwner[ownerID][currency]
	if !ok {
		return Wallet{}, apperr.NotFound("%s wallet not found", currency)
	}
	return s.wallets[id], nil
}

func (s *MemoryStore) GetWalletByID(_ context.Context, id string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return Wallet{}, apperr.NotFound("wallet not found")
	}
	return w, nil
}

func (s *MemoryStore) ListWallets(_ context.Context, ownerID string) ([]Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Wallet, 0, len(s.byOwner[ownerID]))
	for _, id := range s.byOwner[ownerID] {
		out = append(out, s.wallets[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

func (s *MemoryStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memoryTx{store: s, staged: make(map[string]Wallet)}
	defer tx.release()

	// Cancellation only interrupts lock waits inside fn; once fn returns
	// without error the unit commits.
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	for id, w := range tx.staged {
		s.wallets[id] = w
	}
	s.records = append(s.records, tx.records...)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Query(_ context.Context, filter Filter, page Page) (QueryResult, error) {
	s.mu.RLock()
	matched := make([]Record, 0)
	for _, rec := range s.records {
		if filter.matches(rec) {
			matched = append(matched, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].Sequence > matched[j].Sequence
	})

	res := QueryResult{Total: len(matched)}
	start := page.Offset()
	if start >= len(matched) || page.Limit <= 0 {
		res.Records = []Record{}
		return res, nil
	}
	end := start + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	res.Records = matched[start:end]
	return res, nil
}

func (f Filter) matches(rec Record) bool {
	if f.ParticipantID != "" &&
		rec.InitiatorID != f.ParticipantID &&
		rec.CounterpartyID != f.ParticipantID &&
		rec.OwnerID != f.ParticipantID {
		return false
	}
	if f.Type != "" && rec.Type != f.Type {
		return false
	}
	if f.Currency != "" && rec.Currency != f.Currency {
		return false
	}
	if !f.From.IsZero() && rec.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && rec.CreatedAt.After(f.To) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(rec.Description), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

type memoryTx struct {
	store   *MemoryStore
	held    []chan struct{}
	staged  map[string]Wallet
	records []Record
}

func (tx *memoryTx) LockWallets(ctx context.Context, ids ...string) (map[string]Wallet, error) {
	ordered := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}
	sort.Strings(ordered)

	out := make(map[string]Wallet, len(ordered))
	for _, id := range ordered {
		if w, ok := tx.staged[id]; ok {
			out[id] = w
			continue
		}

		tx.store.mu.RLock()
		lock, ok := tx.store.locks[id]
		tx.store.mu.RUnlock()
		if !ok {
			return nil, apperr.NotFound("wallet not found")
		}

		select {
		case lock <- struct{}{}:
			tx.held = append(tx.held, lock)
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		tx.store.mu.RLock()
		w := tx.store.wallets[id]
		tx.store.mu.RUnlock()
		tx.staged[id] = w
		out[id] = w
	}
	return out, nil
}

func (tx *memoryTx) AdjustBalance(_ context.Context, walletID string, delta decimal.Decimal, expectedVersion int64) (Wallet, error) {
	w, ok := tx.staged[walletID]
	if !ok {
		return Wallet{}, ErrNotLocked
	}
	if w.Version != expectedVersion {
		return Wallet{}, apperr.VersionConflict(walletID)
	}
	next := w.Balance.Add(delta)
	if next.IsNegative() {
		return Wallet{}, apperr.InsufficientFunds("insufficient balance. Available: %s %s", w.Balance.String(), w.Currency)
	}
	w.Balance = next
	w.Version++
	w.UpdatedAt = tx.store.now()
	tx.staged[walletID] = w
	return w, nil
}

func (tx *memoryTx) Append(_ context.Context, rec Record) (Record, error) {
	if err := validateRecord(rec); err != nil {
		return Record{}, err
	}
	if _, ok := tx.staged[rec.WalletID]; !ok {
		return Record{}, ErrNotLocked
	}
	rec.ID = uuid.NewString()
	rec.Sequence = tx.store.seq.Add(1)
	rec.CreatedAt = tx.store.now()
	if rec.Status == "" {
		rec.Status = StatusCompleted
	}
	tx.records = append(tx.records, rec)
	return rec, nil
}

func (tx *memoryTx) release() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		<-tx.held[i]
	}
	tx.held = nil
}
