package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/finpay/ledger/internal/apperr"
	"github.com/finpay/ledger/internal/auth"
)

// JWTAuth requires a valid bearer access token. The token subject becomes the
// "user_id" local that every wallet and transaction handler reads.
func JWTAuth(tokens *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return apperr.Unauthorized("missing bearer token")
		}
		claims, err := tokens.Verify(c.UserContext(), raw)
		if err != nil {
			return err
		}
		c.Locals("user_id", claims.Subject)
		c.Locals("token_version", claims.TokenVersion)
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
