package identity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finpay/ledger/internal/apperr"
	"github.com/finpay/ledger/internal/ledger"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = apperr.NotFound("user not found")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = apperr.Conflict("user already exists with this email")
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	// CreateWithWallet stores the user and an empty wallet in currency as one
	// unit: if either fails, neither exists.
	CreateWithWallet(ctx context.Context, user User, currency string) (ledger.Wallet, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	UpdateTokenVersion(ctx context.Context, id string, version int) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, password_hash, token_version, created_at, last_login`

const insertUserSQL = `INSERT INTO users (id, email, first_name, last_name, password_hash, token_version, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	return insertUser(ctx, r.db, user)
}

// CreateWithWallet inserts the user and provisions the wallet in one
// transaction.
func (r *PostgresRepository) CreateWithWallet(ctx context.Context, user User, currency string) (ledger.Wallet, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ledger.Wallet{}, apperr.Storage(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := insertUser(ctx, tx, user); err != nil {
		return ledger.Wallet{}, err
	}
	w, err := ledger.InsertWallet(ctx, tx, user.ID, currency)
	if err != nil {
		return ledger.Wallet{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Wallet{}, apperr.CommitFailed(err)
	}
	return w, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertUser(ctx context.Context, db execer, user User) error {
	_, err := db.Exec(ctx, insertUserSQL,
		user.ID, user.Email, user.FirstName, user.LastName, user.PasswordHash, user.TokenVersion, user.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return apperr.Storage(err)
	}
	return nil
}

// FindByEmail fetches a user by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByID fetches a user by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg string) (User, error) {
	var user User
	err := r.db.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.TokenVersion, &user.CreatedAt, &user.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, apperr.Storage(err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

// UpdateTokenVersion stores the user's current token version.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	return r.exec(ctx, `UPDATE users SET token_version = $1 WHERE id = $2`, version, id)
}

// TouchLastLogin records a successful login.
func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at.UTC(), id)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return apperr.Storage(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
