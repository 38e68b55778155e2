package money

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finpay/ledger/internal/apperr"
)

// Currency describes a supported currency and its canonical decimal precision.
type Currency struct {
	Code      string
	Precision int32
}

// Currencies is an immutable set of supported currencies.
type Currencies struct {
	byCode map[string]Currency
	codes  []string
}

// NewCurrencies builds a currency set. Codes are normalised to upper case.
func NewCurrencies(list ...Currency) (Currencies, error) {
	if len(list) == 0 {
		return Currencies{}, fmt.Errorf("at least one currency is required")
	}
	set := Currencies{byCode: make(map[string]Currency, len(list))}
	for _, c := range list {
		code := NormalizeCode(c.Code)
		if code == "" {
			return Currencies{}, fmt.Errorf("currency code must not be empty")
		}
		if c.Precision < 0 || c.Precision > 18 {
			return Currencies{}, fmt.Errorf("currency %s: precision %d out of range", code, c.Precision)
		}
		if _, dup := set.byCode[code]; dup {
			return Currencies{}, fmt.Errorf("currency %s listed twice", code)
		}
		set.byCode[code] = Currency{Code: code, Precision: c.Precision}
		set.codes = append(set.codes, code)
	}
	sort.Strings(set.codes)
	return set, nil
}

// ParseCurrencies parses "USD:2,EUR:2,JPY:0". A bare code defaults to 2 places.
func ParseCurrencies(raw string) (Currencies, error) {
	var list []Currency
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, precision, found := strings.Cut(part, ":")
		c := Currency{Code: code, Precision: 2}
		if found {
			p, err := strconv.Atoi(strings.TrimSpace(precision))
			if err != nil {
				return Currencies{}, fmt.Errorf("currency %s: invalid precision %q", code, precision)
			}
			c.Precision = int32(p)
		}
		list = append(list, c)
	}
	return NewCurrencies(list...)
}

// Lookup resolves a currency code, rejecting unsupported ones.
func (s Currencies) Lookup(code string) (Currency, error) {
	c, ok := s.byCode[NormalizeCode(code)]
	if !ok {
		return Currency{}, apperr.Validation("currency not supported. Supported: %s", strings.Join(s.codes, ", "))
	}
	return c, nil
}

// Codes returns the supported codes in ascending order.
func (s Currencies) Codes() []string {
	out := make([]string, len(s.codes))
	copy(out, s.codes)
	return out
}

// List returns the supported currencies ordered by code.
func (s Currencies) List() []Currency {
	out := make([]Currency, 0, len(s.codes))
	for _, code := range s.codes {
		out = append(out, s.byCode[code])
	}
	return out
}

// Round rounds half away from zero to the currency's precision.
func (c Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.Precision)
}

// Format renders amount as a fixed-point string at the currency's precision.
func (c Currency) Format(amount decimal.Decimal) string {
	return amount.StringFixed(c.Precision)
}

// CheckAmount rejects amounts that carry more decimal places than the currency allows.
func (c Currency) CheckAmount(amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(c.Precision)) {
		return apperr.Validation("amount has more than %d decimal places for %s", c.Precision, c.Code)
	}
	return nil
}

// NormalizeCode trims and upper-cases a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ParseAmount parses a positive, finite decimal amount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, apperr.Validation("amount is required")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperr.Validation("invalid amount: must be a number")
	}
	if !amount.IsPositive() {
		return decimal.Zero, apperr.Validation("valid positive amount is required")
	}
	return amount, nil
}

// RawAmount accepts either a JSON string or a JSON number and keeps the
// literal text so no float conversion happens before parsing.
type RawAmount string

// UnmarshalJSON implements json.Unmarshaler.
func (a *RawAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		*a = RawAmount(s)
		return nil
	}
	*a = RawAmount(data)
	return nil
}
