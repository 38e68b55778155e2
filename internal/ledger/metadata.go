package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Metadata is the type-specific detail attached to a record. The concrete
// variant is determined by the record type.
type Metadata interface {
	metadataFor(t RecordType) bool
}

// ConversionMetadata describes a currency conversion between two wallets of
// the same owner.
type ConversionMetadata struct {
	FromCurrency    string          `json:"fromCurrency"`
	ToCurrency      string          `json:"toCurrency"`
	Rate            decimal.Decimal `json:"rate"`
	ConvertedAmount decimal.Decimal `json:"convertedAmount"`
}

func (ConversionMetadata) metadataFor(t RecordType) bool {
	return t == TypeInternalTransferDebit || t == TypeInternalTransferCredit
}

// PaymentMetadata links the two legs of a payment between users.
type PaymentMetadata struct {
	CorrelationID     string `json:"correlationId"`
	CounterpartyEmail string `json:"counterpartyEmail,omitempty"`
}

func (PaymentMetadata) metadataFor(t RecordType) bool {
	return t == TypePaymentSent || t == TypePaymentReceived
}

func validateRecord(rec Record) error {
	if !rec.Type.Valid() {
		return fmt.Errorf("unknown record type %q", rec.Type)
	}
	if rec.WalletID == "" {
		return fmt.Errorf("record wallet id is required")
	}
	if !rec.Amount.IsPositive() {
		return fmt.Errorf("record amount must be positive")
	}
	if rec.Metadata != nil && !rec.Metadata.metadataFor(rec.Type) {
		return fmt.Errorf("metadata %T does not belong to a %s record", rec.Metadata, rec.Type)
	}
	return nil
}

func encodeMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func decodeMetadata(t RecordType, raw []byte) (Metadata, error) {
	if len(raw) == 0 || string(raw) == "{}" || string(raw) == "null" {
		return nil, nil
	}
	switch t {
	case TypeInternalTransferDebit, TypeInternalTransferCredit:
		var m ConversionMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode conversion metadata: %w", err)
		}
		return m, nil
	case TypePaymentSent, TypePaymentReceived:
		var m PaymentMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode payment metadata: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown record type %q", t)
	}
}
