package identity

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/finpay/ledger/internal/apperr"
	"github.com/finpay/ledger/internal/ledger"
)

const minPasswordLength = 6

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = apperr.Unauthorized("invalid email or password")

// Service manages identity lifecycle.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user and stores a hashed password.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	user, err := s.newUser(reg)
	if err != nil {
		return User{}, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// RegisterWithWallet creates a user together with an empty wallet in
// currency. A failure on either side leaves no user behind, so the caller
// can retry with the same email.
func (s *Service) RegisterWithWallet(ctx context.Context, reg Registration, currency string) (User, ledger.Wallet, error) {
	user, err := s.newUser(reg)
	if err != nil {
		return User{}, ledger.Wallet{}, err
	}
	w, err := s.repo.CreateWithWallet(ctx, user, currency)
	if err != nil {
		return User{}, ledger.Wallet{}, err
	}
	return user, w, nil
}

func (s *Service) newUser(reg Registration) (User, error) {
	email := NormalizeEmail(reg.Email)
	first := strings.TrimSpace(reg.FirstName)
	last := strings.TrimSpace(reg.LastName)
	if email == "" || reg.Password == "" || first == "" || last == "" {
		return User{}, apperr.Validation("email, password, firstName and lastName are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, apperr.Validation("invalid email address")
	}
	if len(reg.Password) < minPasswordLength {
		return User{}, apperr.Validation("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	return User{
		ID:           uuid.New().String(),
		Email:        email,
		FirstName:    first,
		LastName:     last,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}, nil
}

// Authenticate verifies an email/password pair.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(creds.Email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return User{}, err
	}
	user.LastLogin = &now

	return user, nil
}

// FindByEmail looks up a user by (normalised) email.
func (s *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.FindByEmail(ctx, NormalizeEmail(email))
}

// FindByID looks up a user by id.
func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}
