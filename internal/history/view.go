package history

import (
	"time"

	"github.com/finpay/ledger/internal/ledger"
	"github.com/finpay/ledger/internal/money"
)

// RecordView is the client-facing representation of a transaction record.
type RecordView struct {
	ID             string         `json:"id"`
	WalletID       string         `json:"walletId"`
	Type           string         `json:"type"`
	Amount         string         `json:"amount"`
	Currency       string         `json:"currency"`
	Status         string         `json:"status"`
	Description    string         `json:"description"`
	InitiatorID    string         `json:"initiatorId"`
	CounterpartyID string         `json:"counterpartyId,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// NewRecordView renders rec, formatting amounts at each currency's precision.
// Unknown currencies fall back to two decimal places.
func NewRecordView(rec ledger.Record, currencies money.Currencies) RecordView {
	v := RecordView{
		ID:             rec.ID,
		WalletID:       rec.WalletID,
		Type:           string(rec.Type),
		Amount:         currencyOf(currencies, rec.Currency).Format(rec.Amount),
		Currency:       rec.Currency,
		Status:         rec.Status,
		Description:    rec.Description,
		InitiatorID:    rec.InitiatorID,
		CounterpartyID: rec.CounterpartyID,
		CreatedAt:      rec.CreatedAt,
	}
	switch m := rec.Metadata.(type) {
	case ledger.ConversionMetadata:
		v.Metadata = map[string]any{
			"fromCurrency":    m.FromCurrency,
			"toCurrency":      m.ToCurrency,
			"rate":            m.Rate.String(),
			"convertedAmount": currencyOf(currencies, m.ToCurrency).Format(m.ConvertedAmount),
		}
	case ledger.PaymentMetadata:
		v.Metadata = map[string]any{"correlationId": m.CorrelationID}
		if m.CounterpartyEmail != "" {
			v.Metadata["counterpartyEmail"] = m.CounterpartyEmail
		}
	}
	return v
}

func currencyOf(currencies money.Currencies, code string) money.Currency {
	c, err := currencies.Lookup(code)
	if err != nil {
		return money.Currency{Code: code, Precision: 2}
	}
	return c
}
