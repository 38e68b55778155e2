package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/finpay/ledger/internal/apperr"
	"github.com/finpay/ledger/internal/identity"
	"github.com/finpay/ledger/internal/wallet"
)

// RegisterIdentityRoutes wires registration. The user and a wallet in the
// default currency are created together.
func RegisterIdentityRoutes(r fiber.Router, ids *identity.Service, wallets *wallet.Service, defaultCurrency string, logger *slog.Logger) {
	r.Post("/identity/register", func(c *fiber.Ctx) error {
		var req struct {
			Email     string `json:"email"`
			Password  string `json:"password"`
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		}
		if err := c.BodyParser(&req); err != nil {
			return apperr.Validation("invalid request body")
		}
		user, w, err := ids.RegisterWithWallet(c.UserContext(), identity.Registration{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		}, defaultCurrency)
		if err != nil {
			if !apperr.Known(err) || errors.Is(err, apperr.ErrStorageFailure) {
				logger.Error("identity.register failed",
					slog.String("currency", defaultCurrency),
					slog.Any("error", err),
				)
			}
			return err
		}

		logger.Info("identity.register completed",
			slog.String("user_id", user.ID),
			slog.String("wallet_id", w.ID),
			slog.Int("status", http.StatusCreated),
		)
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"message": "User registered successfully",
			"user":    userJSON(user),
			"wallet":  wallets.View(w),
		})
	})
}

func userJSON(user identity.User) fiber.Map {
	return fiber.Map{
		"id":        user.ID,
		"email":     user.Email,
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"createdAt": user.CreatedAt,
		"lastLogin": user.LastLogin,
	}
}
