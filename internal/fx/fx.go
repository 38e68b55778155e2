package fx

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finpay/ledger/internal/apperr"
	"github.com/finpay/ledger/internal/money"
)

// Provider resolves directed exchange rates.
type Provider interface {
	GetRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Pair is a directed (source, target) currency pair.
type Pair struct {
	From string
	To   string
}

func (p Pair) String() string { return p.From + ":" + p.To }

// Rate is one entry of a rate table.
type Rate struct {
	Pair
	Rate decimal.Decimal
}

// StaticProvider serves rates from an immutable table. A pair and its
// reverse are independent quotes; no inverse is ever derived.
type StaticProvider struct {
	rates map[Pair]decimal.Decimal
}

// NewStaticProvider copies the table and validates every rate is positive.
func NewStaticProvider(table map[Pair]decimal.Decimal) (*StaticProvider, error) {
	rates := make(map[Pair]decimal.Decimal, len(table))
	for pair, rate := range table {
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate %s must be positive, got %s", pair, rate)
		}
		p := Pair{From: money.NormalizeCode(pair.From), To: money.NormalizeCode(pair.To)}
		if p.From == p.To {
			return nil, fmt.Errorf("rate %s maps a currency to itself", p)
		}
		rates[p] = rate
	}
	return &StaticProvider{rates: rates}, nil
}

// GetRate returns 1 for identical currencies and RateUnavailable for pairs
// missing from the table.
func (p *StaticProvider) GetRate(_ context.Context, from, to string) (decimal.Decimal, error) {
	from, to = money.NormalizeCode(from), money.NormalizeCode(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := p.rates[Pair{From: from, To: to}]
	if !ok {
		return decimal.Zero, apperr.RateUnavailable(from, to)
	}
	return rate, nil
}

// Rates lists the table ordered by pair.
func (p *StaticProvider) Rates() []Rate {
	out := make([]Rate, 0, len(p.rates))
	for pair, rate := range p.rates {
		out = append(out, Rate{Pair: pair, Rate: rate})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// DefaultTable is the rate table used when none is configured.
func DefaultTable() map[Pair]decimal.Decimal {
	return map[Pair]decimal.Decimal{
		{From: "USD", To: "EUR"}: decimal.RequireFromString("0.85"),
		{From: "EUR", To: "USD"}: decimal.RequireFromString("1.18"),
		{From: "USD", To: "NGN"}: decimal.RequireFromString("1500"),
		{From: "NGN", To: "USD"}: decimal.RequireFromString("0.00067"),
		{From: "EUR", To: "NGN"}: decimal.RequireFromString("1700"),
		{From: "NGN", To: "EUR"}: decimal.RequireFromString("0.00059"),
	}
}

// ParseTable parses "USD:EUR=0.85,EUR:USD=1.18".
func ParseTable(raw string) (map[Pair]decimal.Decimal, error) {
	table := make(map[Pair]decimal.Decimal)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pairText, rateText, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("rate entry %q: expected FROM:TO=RATE", entry)
		}
		from, to, ok := strings.Cut(pairText, ":")
		if !ok {
			return nil, fmt.Errorf("rate entry %q: expected FROM:TO=RATE", entry)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(rateText))
		if err != nil {
			return nil, fmt.Errorf("rate entry %q: %w", entry, err)
		}
		pair := Pair{From: money.NormalizeCode(from), To: money.NormalizeCode(to)}
		if _, dup := table[pair]; dup {
			return nil, fmt.Errorf("rate %s listed twice", pair)
		}
		table[pair] = rate
	}
	return table, nil
}
