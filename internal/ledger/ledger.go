package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotLocked is returned when a transaction mutates a wallet it has not locked.
var ErrNotLocked = errors.New("wallet not locked by transaction")

// RecordType classifies a transaction record.
type RecordType string

const (
	TypeInternalTransferDebit  RecordType = "internal_transfer_debit"
	TypeInternalTransferCredit RecordType = "internal_transfer_credit"
	TypePaymentSent            RecordType = "payment_sent"
	TypePaymentReceived        RecordType = "payment_received"
)

// Valid reports whether t is one of the known record types.
func (t RecordType) Valid() bool {
	switch t {
	case TypeInternalTransferDebit, TypeInternalTransferCredit, TypePaymentSent, TypePaymentReceived:
		return true
	}
	return false
}

// StatusCompleted is the only status a record is ever written with.
const StatusCompleted = "completed"

// Wallet is a per-owner, per-currency balance.
type Wallet struct {
	ID        string
	OwnerID   string
	Currency  string
	Balance   decimal.Decimal
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Record is an immutable entry in the transaction log.
type Record struct {
	ID             string
	Sequence       int64
	WalletID       string
	OwnerID        string
	Amount         decimal.Decimal
	Currency       string
	Type           RecordType
	Status         string
	InitiatorID    string
	CounterpartyID string
	Description    string
	Metadata       Metadata
	CreatedAt      time.Time
}

// Store holds wallets and the transaction log. Balance changes and log
// appends only happen inside Atomic.
type Store interface {
	CreateWallet(ctx context.Context, ownerID, currency string) (Wallet, error)
	GetWallet(ctx context.Context, ownerID, currency string) (Wallet, error)
	GetWalletByID(ctx context.Context, id string) (Wallet, error)
	ListWallets(ctx context.Context, ownerID string) ([]Wallet, error)

	// Atomic runs fn as one all-or-nothing unit. If fn returns an error
	// nothing it did is visible to anyone, and that error is returned as is.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the write side of a single atomic unit.
type Tx interface {
	// LockWallets takes exclusive access to the wallets in ascending id
	// order, whatever order the ids are passed in, and returns their
	// current state.
	LockWallets(ctx context.Context, ids ...string) (map[string]Wallet, error)

	// AdjustBalance applies balance += delta to a locked wallet. It fails
	// with InsufficientFunds if the result would be negative and with
	// VersionConflict if expectedVersion is stale.
	AdjustBalance(ctx context.Context, walletID string, delta decimal.Decimal, expectedVersion int64) (Wallet, error)

	// Append writes a record and assigns its id, sequence and timestamp.
	Append(ctx context.Context, rec Record) (Record, error)
}

// Filter narrows a log query. Zero values mean "no constraint".
type Filter struct {
	// ParticipantID restricts results to records the user initiated, was
	// counterparty to, or that are posted to one of their wallets.
	ParticipantID string
	Type          RecordType
	Currency      string
	From          time.Time
	To            time.Time
	Search        string
}

// Page selects a 1-based page of Limit records.
type Page struct {
	Number int
	Limit  int
}

// Offset is the number of records skipped before this page.
func (p Page) Offset() int { return (p.Number - 1) * p.Limit }

// QueryResult is one page of records plus the total match count.
type QueryResult struct {
	Records []Record
	Total   int
}

// Reader is the read path over the transaction log.
type Reader interface {
	Query(ctx context.Context, filter Filter, page Page) (QueryResult, error)
}
