package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/finpay/ledger/internal/auth"
	"github.com/finpay/ledger/internal/history"
	"github.com/finpay/ledger/internal/payments"
	"github.com/finpay/ledger/internal/wallet"
)

// guard is the handler chain that runs in front of authenticated endpoints.
// It is attached per route rather than through a prefix group so public
// routes under the same prefix never pass through it.
type guard []fiber.Handler

func (g guard) then(h fiber.Handler) []fiber.Handler {
	chain := make([]fiber.Handler, 0, len(g)+1)
	chain = append(chain, g...)
	return append(chain, h)
}

// RegisterAuthRoutes wires login (public, throttled) and logout.
func RegisterAuthRoutes(r fiber.Router, g guard, h *auth.Handler, loginLimiter fiber.Handler) {
	r.Post("/auth/login", loginLimiter, h.Login)
	r.Post("/auth/logout", g.then(h.Logout)...)
}

// RegisterWalletRoutes wires wallet endpoints. The currency catalogue is
// public; everything else acts on the caller's own wallets.
func RegisterWalletRoutes(r fiber.Router, g guard, h *wallet.Handler) {
	r.Get("/currencies", h.Currencies)
	r.Post("/wallets", g.then(h.Create)...)
	r.Get("/wallets", g.then(h.List)...)
	r.Get("/wallets/:currency", g.then(h.Get)...)
}

// RegisterTransactionRoutes wires the transfer engine and history endpoints.
func RegisterTransactionRoutes(r fiber.Router, g guard, h *payments.Handler, hist *history.Handler) {
	r.Get("/rates/:from/:to", h.Rate)
	r.Post("/transactions/transfer", g.then(h.Transfer)...)
	r.Post("/transactions/send", g.then(h.Send)...)
	r.Get("/transactions", g.then(hist.List)...)
}
