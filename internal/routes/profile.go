package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/finpay/ledger/internal/apperr"
	"github.com/finpay/ledger/internal/identity"
	"github.com/finpay/ledger/internal/wallet"
)

// RegisterProfileRoute exposes the current user's profile and wallets.
func RegisterProfileRoute(r fiber.Router, g guard, ids *identity.Service, wallets *wallet.Service) {
	r.Get("/me", g.then(func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return apperr.Unauthorized("unauthorized")
		}
		user, err := ids.FindByID(c.UserContext(), uid)
		if err != nil {
			return err
		}
		list, err := wallets.List(c.UserContext(), uid)
		if err != nil {
			return err
		}
		views := make([]wallet.View, 0, len(list))
		for _, w := range list {
			views = append(views, wallets.View(w))
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"user":    userJSON(user),
			"wallets": views,
		})
	})...)
}
