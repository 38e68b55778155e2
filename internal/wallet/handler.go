package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/finpay/ledger/internal/apperr"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Currency string `json:"currency"`
}

// Create provisions a wallet for the authenticated owner.
func (h *Handler) Create(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Currency == "" {
		return apperr.Validation("currency is required")
	}
	w, err := h.service.Create(c.UserContext(), uid, req.Currency)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"wallet": h.service.View(w)})
}

// List returns all wallets of the authenticated owner.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	wallets, err := h.service.List(c.UserContext(), uid)
	if err != nil {
		return err
	}
	views := make([]View, 0, len(wallets))
	for _, w := range wallets {
		views = append(views, h.service.View(w))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"wallets": views})
}

// Get returns the owner's wallet for the :currency path parameter.
func (h *Handler) Get(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	w, err := h.service.GetByCurrency(c.UserContext(), uid, c.Params("currency"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"wallet": h.service.View(w)})
}

// Currencies lists the supported currencies.
func (h *Handler) Currencies(c *fiber.Ctx) error {
	type currency struct {
		Code      string `json:"code"`
		Precision int32  `json:"precision"`
	}
	list := h.service.Currencies().List()
	out := make([]currency, 0, len(list))
	for _, cur := range list {
		out = append(out, currency{Code: cur.Code, Precision: cur.Precision})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"currencies": out})
}

func userID(c *fiber.Ctx) (string, error) {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return "", apperr.Unauthorized("unauthorized")
	}
	return uid, nil
}
