package payments

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/finpay/ledger/internal/apperr"
	"github.com/finpay/ledger/internal/history"
	"github.com/finpay/ledger/internal/money"
)

// Handler exposes transfer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
	Amount       money.RawAmount `json:"amount"`
	Description  string          `json:"description"`
}

type sendRequest struct {
	RecipientEmail string          `json:"recipientEmail"`
	Amount         money.RawAmount `json:"amount"`
	Currency       string          `json:"currency"`
	Description    string          `json:"description"`
}

// Transfer converts between two wallets of the authenticated user.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	amount, err := money.ParseAmount(string(req.Amount))
	if err != nil {
		return err
	}
	if req.FromCurrency == "" || req.ToCurrency == "" {
		return apperr.Validation("fromCurrency and toCurrency are required")
	}

	rec, err := h.service.InternalTransfer(c.UserContext(), InternalTransferInput{
		OwnerID:      uid,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		Amount:       amount,
		Description:  req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":     "Transfer completed successfully",
		"transaction": history.NewRecordView(rec, h.service.Currencies()),
	})
}

// Send pays another user identified by email.
func (h *Handler) Send(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	amount, err := money.ParseAmount(string(req.Amount))
	if err != nil {
		return err
	}
	if req.RecipientEmail == "" || req.Currency == "" {
		return apperr.Validation("recipientEmail and currency are required")
	}

	rec, err := h.service.SendPayment(c.UserContext(), SendPaymentInput{
		SenderID:       uid,
		RecipientEmail: req.RecipientEmail,
		Amount:         amount,
		Currency:       req.Currency,
		Description:    req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":     "Payment sent successfully",
		"transaction": history.NewRecordView(rec, h.service.Currencies()),
	})
}

// Rate returns the directed exchange rate for :from/:to.
func (h *Handler) Rate(c *fiber.Ctx) error {
	rate, err := h.service.Rate(c.UserContext(), c.Params("from"), c.Params("to"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"from": rate.From,
		"to":   rate.To,
		"rate": rate.Rate.String(),
	})
}

func userID(c *fiber.Ctx) (string, error) {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return "", apperr.Unauthorized("unauthorized")
	}
	return uid, nil
}
