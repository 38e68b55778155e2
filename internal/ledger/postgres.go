package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/finpay/ledger/internal/apperr"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// appendRecordSQL stamps created_at with clock_timestamp(): NOW() is frozen at
// transaction start, which would let a unit that waited on a wallet lock sort
// before the unit it waited for.
const appendRecordSQL = `INSERT INTO transactions
        (id, wallet_id, owner_id, amount, currency, type, status, initiator_id, counterparty_id, description, metadata, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, clock_timestamp())
        RETURNING seq, created_at`

const walletColumns = `id, owner_id, currency, balance, version, created_at, updated_at`

const recordColumns = `id, seq, wallet_id, owner_id, amount, currency, type, status,
        initiator_id, counterparty_id, description, metadata, created_at`

// PostgresStore persists wallets and the transaction log in PostgreSQL.
// Balance updates are guarded twice: rows are locked with SELECT ... FOR
// UPDATE, and every update is conditional on the version read under the lock.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateWallet(ctx context.Context, ownerID, currency string) (Wallet, error) {
	return InsertWallet(ctx, s.db, ownerID, currency)
}

// Querier is satisfied by both the pool and an open transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const insertWalletSQL = `INSERT INTO wallets (id, owner_id, currency, balance, version)
        VALUES ($1, $2, $3, 0, 0)
        RETURNING ` + walletColumns

// InsertWallet creates an empty wallet through q, so callers holding their
// own transaction can provision a wallet in the same unit as other rows.
func InsertWallet(ctx context.Context, q Querier, ownerID, currency string) (Wallet, error) {
	if ownerID == "" || currency == "" {
		return Wallet{}, apperr.Validation("owner and currency are required")
	}
	w, err := scanWallet(q.QueryRow(ctx, insertWalletSQL, uuid.NewString(), ownerID, currency))
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return Wallet{}, apperr.Conflict("wallet for %s already exists", currency)
		}
		return Wallet{}, apperr.Storage(err)
	}
	return w, nil
}

func (s *PostgresStore) GetWallet(ctx context.Context, ownerID, currency string) (Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1 AND currency = $2`
	w, err := scanWallet(s.db.QueryRow(ctx, query, ownerID, currency))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, apperr.NotFound("%s wallet not found", currency)
		}
		return Wallet{}, apperr.Storage(err)
	}
	return w, nil
}

func (s *PostgresStore) GetWalletByID(ctx context.Context, id string) (Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	w, err := scanWallet(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, apperr.NotFound("wallet not found")
		}
		return Wallet{}, apperr.Storage(err)
	}
	return w, nil
}

func (s *PostgresStore) ListWallets(ctx context.Context, ownerID string) ([]Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1 ORDER BY currency`
	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()

	out := make([]Wallet, 0)
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err)
	}
	return out, nil
}

func (s *PostgresStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Storage(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(ctx, &pgTx{tx: tx, locked: make(map[string]bool)}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.CommitFailed(err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, filter Filter, page Page) (QueryResult, error) {
	where, args := filter.sql()

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return QueryResult{}, apperr.Storage(err)
	}

	query := fmt.Sprintf(`SELECT %s FROM transactions%s
        ORDER BY created_at DESC, seq DESC
        LIMIT $%d OFFSET $%d`, recordColumns, where, len(args)+1, len(args)+2)
	rows, err := s.db.Query(ctx, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return QueryResult{}, apperr.Storage(err)
	}
	defer rows.Close()

	res := QueryResult{Total: total, Records: make([]Record, 0, page.Limit)}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return QueryResult{}, apperr.Storage(err)
		}
		res.Records = append(res.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, apperr.Storage(err)
	}
	return res, nil
}

func (f Filter) sql() (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ParticipantID != "" {
		p := arg(f.ParticipantID)
		conds = append(conds, fmt.Sprintf("(initiator_id = %[1]s OR counterparty_id = %[1]s OR owner_id = %[1]s)", p))
	}
	if f.Type != "" {
		conds = append(conds, "type = "+arg(string(f.Type)))
	}
	if f.Currency != "" {
		conds = append(conds, "currency = "+arg(f.Currency))
	}
	if !f.From.IsZero() {
		conds = append(conds, "created_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "created_at <= "+arg(f.To))
	}
	if f.Search != "" {
		conds = append(conds, "description ILIKE "+arg("%"+escapeLike(f.Search)+"%"))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

type pgTx struct {
	tx     pgx.Tx
	locked map[string]bool
}

func (t *pgTx) LockWallets(ctx context.Context, ids ...string) (map[string]Wallet, error) {
	ordered := append([]string(nil), ids...)
	sort.Strings(ordered)

	const query = `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	out := make(map[string]Wallet, len(ordered))
	for _, id := range ordered {
		if _, done := out[id]; done {
			continue
		}
		w, err := scanWallet(t.tx.QueryRow(ctx, query, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperr.NotFound("wallet not found")
			}
			return nil, apperr.Storage(err)
		}
		t.locked[id] = true
		out[id] = w
	}
	return out, nil
}

func (t *pgTx) AdjustBalance(ctx context.Context, walletID string, delta decimal.Decimal, expectedVersion int64) (Wallet, error) {
	if !t.locked[walletID] {
		return Wallet{}, ErrNotLocked
	}

	query := `UPDATE wallets
        SET balance = balance + $2, version = version + 1, updated_at = clock_timestamp()
        WHERE id = $1 AND version = $3 AND balance + $2 >= 0
        RETURNING ` + walletColumns
	w, err := scanWallet(t.tx.QueryRow(ctx, query, walletID, delta, expectedVersion))
	if err == nil {
		return w, nil
	}
	if isPgCode(err, pgCheckViolation) {
		return Wallet{}, apperr.InsufficientFunds("insufficient balance")
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, apperr.Storage(err)
	}

	// No row matched: either the version moved or the balance is too low.
	var (
		balance  decimal.Decimal
		version  int64
		currency string
	)
	if err := t.tx.QueryRow(ctx, `SELECT balance, version, currency FROM wallets WHERE id = $1`, walletID).
		Scan(&balance, &version, &currency); err != nil {
		return Wallet{}, apperr.Storage(err)
	}
	if version != expectedVersion {
		return Wallet{}, apperr.VersionConflict(walletID)
	}
	return Wallet{}, apperr.InsufficientFunds("insufficient balance. Available: %s %s", balance.String(), currency)
}

func (t *pgTx) Append(ctx context.Context, rec Record) (Record, error) {
	if err := validateRecord(rec); err != nil {
		return Record{}, err
	}
	if !t.locked[rec.WalletID] {
		return Record{}, ErrNotLocked
	}
	meta, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return Record{}, err
	}
	if rec.Status == "" {
		rec.Status = StatusCompleted
	}
	rec.ID = uuid.NewString()

	var counterparty *string
	if rec.CounterpartyID != "" {
		counterparty = &rec.CounterpartyID
	}

	if err := t.tx.QueryRow(ctx, appendRecordSQL,
		rec.ID, rec.WalletID, rec.OwnerID, rec.Amount, rec.Currency, string(rec.Type), rec.Status,
		rec.InitiatorID, counterparty, rec.Description, meta,
	).Scan(&rec.Sequence, &rec.CreatedAt); err != nil {
		return Record{}, apperr.Storage(err)
	}
	return rec, nil
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	err := row.Scan(&w.ID, &w.OwnerID, &w.Currency, &w.Balance, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec          Record
		typ          string
		counterparty *string
		meta         []byte
	)
	if err := row.Scan(&rec.ID, &rec.Sequence, &rec.WalletID, &rec.OwnerID, &rec.Amount, &rec.Currency,
		&typ, &rec.Status, &rec.InitiatorID, &counterparty, &rec.Description, &meta, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	rec.Type = RecordType(typ)
	if counterparty != nil {
		rec.CounterpartyID = *counterparty
	}
	m, err := decodeMetadata(rec.Type, meta)
	if err != nil {
		return Record{}, err
	}
	rec.Metadata = m
	return rec, nil
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
