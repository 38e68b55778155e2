package history

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/finpay/ledger/internal/apperr"
)

// Handler exposes transaction history over HTTP.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /transactions.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	page, err := intQuery(c, "page")
	if err != nil {
		return err
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		return err
	}

	res, err := h.service.List(c.UserContext(), Query{
		UserID:    uid,
		Type:      c.Query("type"),
		Currency:  c.Query("currency"),
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
		Search:    c.Query("search"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return err
	}

	views := make([]RecordView, 0, len(res.Records))
	for _, rec := range res.Records {
		views = append(views, NewRecordView(rec, h.service.currencies))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transactions": views,
		"pagination":   res.Pagination,
	})
}

func intQuery(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperr.Validation("%s must be a positive integer", key)
	}
	return n, nil
}
