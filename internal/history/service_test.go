package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finpay/ledger/internal/apperr"
	"github.com/finpay/ledger/internal/ledger"
	"github.com/finpay/ledger/internal/logging"
	"github.com/finpay/ledger/internal/middleware"
	"github.com/finpay/ledger/internal/money"
)

var base = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type seeded struct {
	store *ledger.MemoryStore
	alice string
	bob   string
	svc   *Service
}

// seed posts five records, one per hour starting at base:
// alice converts USD, pays bob twice in USD and once in EUR, bob pays alice.
func seed(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	currencies, err := money.ParseCurrencies("USD:2,EUR:2,NGN:2")
	require.NoError(t, err)

	store := ledger.NewInMemory()
	clock := base
	ledger.SetClock(store, func() time.Time {
		now := clock
		clock = clock.Add(time.Hour)
		return now
	})

	alice, bob := uuid.NewString(), uuid.NewString()
	aUSD, err := store.CreateWallet(ctx, alice, "USD")
	require.NoError(t, err)
	aEUR, err := store.CreateWallet(ctx, alice, "EUR")
	require.NoError(t, err)
	bUSD, err := store.CreateWallet(ctx, bob, "USD")
	require.NoError(t, err)

	// wallet creation consumed clock ticks; restart at base for records
	clock = base

	post := func(rec ledger.Record) {
		t.Helper()
		err := store.Atomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
			if _, err := tx.LockWallets(ctx, rec.WalletID); err != nil {
				return err
			}
			_, err := tx.Append(ctx, rec)
			return err
		})
		require.NoError(t, err)
	}

	post(ledger.Record{
		WalletID: aUSD.ID, OwnerID: alice, InitiatorID: alice, Amount: decimal.NewFromInt(40), Currency: "USD",
		Type: ledger.TypeInternalTransferDebit, Description: "Converted USD to EUR",
		Metadata: ledger.ConversionMetadata{FromCurrency: "USD", ToCurrency: "EUR", Rate: decimal.RequireFromString("0.85"), ConvertedAmount: decimal.NewFromInt(34)},
	})
	post(ledger.Record{
		WalletID: aUSD.ID, OwnerID: alice, InitiatorID: alice, CounterpartyID: bob, Amount: decimal.NewFromInt(10), Currency: "USD",
		Type: ledger.TypePaymentSent, Description: "Rent share",
	})
	post(ledger.Record{
		WalletID: aUSD.ID, OwnerID: alice, InitiatorID: alice, CounterpartyID: bob, Amount: decimal.NewFromInt(5), Currency: "USD",
		Type: ledger.TypePaymentSent, Description: "Coffee",
	})
	post(ledger.Record{
		WalletID: aEUR.ID, OwnerID: alice, InitiatorID: alice, CounterpartyID: bob, Amount: decimal.NewFromInt(3), Currency: "EUR",
		Type: ledger.TypePaymentSent, Description: "Snacks",
	})
	post(ledger.Record{
		WalletID: bUSD.ID, OwnerID: bob, InitiatorID: bob, CounterpartyID: alice, Amount: decimal.NewFromInt(7), Currency: "USD",
		Type: ledger.TypePaymentSent, Description: "Coffee back",
	})

	return seeded{store: store, alice: alice, bob: bob, svc: NewService(store, currencies)}
}

func TestListNewestFirstWithPagination(t *testing.T) {
	s := seed(t)

	page, err := s.svc.List(context.Background(), Query{UserID: s.alice, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "Coffee back", page.Records[0].Description)
	assert.Equal(t, "Snacks", page.Records[1].Description)
	assert.Equal(t, Pagination{CurrentPage: 1, TotalPages: 3, TotalItems: 5, ItemsPerPage: 2, HasNext: true}, page.Pagination)

	last, err := s.svc.List(context.Background(), Query{UserID: s.alice, Limit: 2, Page: 3})
	require.NoError(t, err)
	require.Len(t, last.Records, 1)
	assert.Equal(t, "Converted USD to EUR", last.Records[0].Description)
	assert.False(t, last.Pagination.HasNext)
	assert.True(t, last.Pagination.HasPrev)
}

func TestListFilters(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		query Query
		want  []string
	}{
		{"by type", Query{Type: "PAYMENT_SENT"}, []string{"Coffee back", "Snacks", "Coffee", "Rent share"}},
		{"by currency", Query{Currency: "eur"}, []string{"Snacks"}},
		{"by search", Query{Search: "coffee"}, []string{"Coffee back", "Coffee"}},
		{"by range", Query{StartDate: base.Add(time.Hour).Format(time.RFC3339), EndDate: base.Add(2 * time.Hour).Format(time.RFC3339)}, []string{"Coffee", "Rent share"}},
		{"whole day", Query{StartDate: "2024-03-10", EndDate: "2024-03-10"}, []string{"Coffee back", "Snacks", "Coffee", "Rent share", "Converted USD to EUR"}},
		{"empty day", Query{StartDate: "2024-03-11"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.query.UserID = s.alice
			page, err := s.svc.List(ctx, tc.query)
			require.NoError(t, err)
			var got []string
			for _, r := range page.Records {
				got = append(got, r.Description)
			}
			assert.Equal(t, tc.want, got)
			assert.NotNil(t, page.Records)
		})
	}
}

func TestListOnlyShowsParticipantRecords(t *testing.T) {
	s := seed(t)

	page, err := s.svc.List(context.Background(), Query{UserID: s.bob})
	require.NoError(t, err)
	// bob is counterparty on alice's three payments and initiator on his own.
	assert.Equal(t, 4, page.Pagination.TotalItems)

	stranger, err := s.svc.List(context.Background(), Query{UserID: uuid.NewString()})
	require.NoError(t, err)
	assert.Empty(t, stranger.Records)
	assert.Equal(t, 0, stranger.Pagination.TotalPages)
}

func TestListValidation(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	for name, q := range map[string]Query{
		"bad type":       {Type: "refund"},
		"bad currency":   {Currency: "GBP"},
		"bad start date": {StartDate: "yesterday"},
		"inverted range": {StartDate: "2024-03-11", EndDate: "2024-03-10"},
		"negative page":  {Page: -1},
	} {
		t.Run(name, func(t *testing.T) {
			q.UserID = s.alice
			_, err := s.svc.List(ctx, q)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	_, err := s.svc.List(ctx, Query{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestListRejectsPageBeyondRange(t *testing.T) {
	s := seed(t)

	_, err := s.svc.List(context.Background(), Query{UserID: s.alice, Page: 1 << 62, Limit: 100})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// a far but representable page is simply empty
	page, err := s.svc.List(context.Background(), Query{UserID: s.alice, Page: 1 << 20, Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Equal(t, 5, page.Pagination.TotalItems)
}

func TestListClampsLimit(t *testing.T) {
	s := seed(t)
	page, err := s.svc.List(context.Background(), Query{UserID: s.alice, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, page.Pagination.ItemsPerPage)
}

func TestHandlerList(t *testing.T) {
	s := seed(t)
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logging.Discard())})
	app.Get("/transactions", func(c *fiber.Ctx) error {
		c.Locals("user_id", s.alice)
		return c.Next()
	}, NewHandler(s.svc).List)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/transactions?type=internal_transfer_debit", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Transactions []RecordView `json:"transactions"`
		Pagination   Pagination   `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Transactions, 1)
	tx := body.Transactions[0]
	assert.Equal(t, "40.00", tx.Amount)
	assert.Equal(t, "0.85", tx.Metadata["rate"])
	assert.Equal(t, "34.00", tx.Metadata["convertedAmount"])
	assert.Equal(t, 1, body.Pagination.TotalItems)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/transactions?limit=zero", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
