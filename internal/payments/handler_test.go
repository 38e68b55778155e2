package payments

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finpay/ledger/internal/logging"
	"github.com/finpay/ledger/internal/middleware"
)

func newTestApp(f *fixture, userID string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logging.Discard())})
	h := NewHandler(f.svc)
	app.Use(func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("user_id", userID)
		}
		return c.Next()
	})
	app.Post("/transactions/transfer", h.Transfer)
	app.Post("/transactions/send", h.Send)
	app.Get("/rates/:from/:to", h.Rate)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHandlerTransfer(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.user(t, "alice@example.com")
	usd := f.wallet(t, owner.ID, "USD", "100.00")
	f.wallet(t, owner.ID, "EUR", "")
	app := newTestApp(f, owner.ID)

	status, body := do(t, app, http.MethodPost, "/transactions/transfer",
		`{"fromCurrency":"USD","toCurrency":"EUR","amount":"40.00"}`)
	require.Equal(t, http.StatusCreated, status)
	tx := body["transaction"].(map[string]any)
	assert.Equal(t, "40.00", tx["amount"])
	assert.Equal(t, "internal_transfer_debit", tx["type"])
	assert.Equal(t, usd.ID, tx["walletId"])
	assert.Equal(t, "34.00", tx["metadata"].(map[string]any)["convertedAmount"])

	// numeric amounts are accepted too
	status, _ = do(t, app, http.MethodPost, "/transactions/transfer",
		`{"fromCurrency":"USD","toCurrency":"EUR","amount":10}`)
	assert.Equal(t, http.StatusCreated, status)
	assertDecimal(t, "50.00", f.balance(t, usd.ID))
}

func TestHandlerErrorEnvelope(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "alice@example.com")
	f.user(t, "bob@example.com")
	f.wallet(t, alice.ID, "USD", "5.00")
	f.wallet(t, alice.ID, "EUR", "")
	app := newTestApp(f, alice.ID)

	cases := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed body", "/transactions/transfer", `{"amount":`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad amount", "/transactions/transfer", `{"fromCurrency":"USD","toCurrency":"EUR","amount":"abc"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"insufficient", "/transactions/transfer", `{"fromCurrency":"USD","toCurrency":"EUR","amount":"50"}`, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
		{"self transfer", "/transactions/send", `{"recipientEmail":"alice@example.com","amount":"1","currency":"USD"}`, http.StatusUnprocessableEntity, "SELF_TRANSFER"},
		{"recipient wallet missing", "/transactions/send", `{"recipientEmail":"bob@example.com","amount":"1","currency":"USD"}`, http.StatusNotFound, "NOT_FOUND"},
		{"missing currency", "/transactions/send", `{"recipientEmail":"bob@example.com","amount":"1"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, app, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, errorCode(body))
		})
	}
}

func TestHandlerRequiresUser(t *testing.T) {
	f := newFixture(t, nil)
	app := newTestApp(f, "")

	status, body := do(t, app, http.MethodPost, "/transactions/send", `{}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestHandlerRate(t *testing.T) {
	f := newFixture(t, nil)
	app := newTestApp(f, "")

	status, body := do(t, app, http.MethodGet, "/rates/eur/usd", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"from": "EUR", "to": "USD", "rate": "1.18"}, body)

	status, body = do(t, app, http.MethodGet, "/rates/USD/USD", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1", body["rate"])
}
