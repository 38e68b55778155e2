package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/finpay/ledger/internal/apperr"
	"github.com/finpay/ledger/internal/config"
	"github.com/finpay/ledger/internal/identity"
)

var (
	ErrInvalidToken     = apperr.Unauthorized("invalid token")
	ErrTokenInvalidated = apperr.Unauthorized("token invalidated")
)

// Claims carried by an access token.
type Claims struct {
	jwt.RegisteredClaims
	Email        string `json:"email"`
	TokenVersion int    `json:"ver"`
}

type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	idRepo identity.Repository
	now    func() time.Time
}

func NewService(cfg config.Config, idRepo identity.Repository) *Service {
	return &Service{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.AppName,
		ttl:    cfg.AccessTokenTTL,
		idRepo: idRepo,
		now:    time.Now,
	}
}

// Token is an issued access token.
type Token struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// Issue signs an HS256 access token bound to the user's current token version.
func (s *Service) Issue(user identity.User) (Token, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, TokenType: "Bearer", ExpiresIn: int64(s.ttl.Seconds())}, nil
}

// Verify checks signature, expiry and that the token version has not been
// bumped by a logout since the token was issued.
func (s *Service) Verify(ctx context.Context, raw string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}

	user, err := s.idRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Claims{}, ErrInvalidToken
		}
		return Claims{}, err
	}
	if user.TokenVersion != claims.TokenVersion {
		return Claims{}, ErrTokenInvalidated
	}
	return claims, nil
}

// Logout increments token version so older tokens become invalid.
func (s *Service) Logout(ctx context.Context, userID string) error {
	user, err := s.idRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.idRepo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1)
}
