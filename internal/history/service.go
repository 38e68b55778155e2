package history

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/finpay/ledger/internal/apperr"
	"github.com/finpay/ledger/internal/ledger"
	"github.com/finpay/ledger/internal/money"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Query is a caller's transaction history request. Dates are RFC 3339
// timestamps or YYYY-MM-DD days; a bare end day includes the whole day.
type Query struct {
	UserID    string
	Type      string
	Currency  string
	StartDate string
	EndDate   string
	Search    string
	Page      int
	Limit     int
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNext      bool `json:"hasNext"`
	HasPrev      bool `json:"hasPrev"`
}

// Page is one page of history.
type Page struct {
	Records    []ledger.Record
	Pagination Pagination
}

// Service is the read-only view over the transaction log.
type Service struct {
	reader     ledger.Reader
	currencies money.Currencies
}

func NewService(reader ledger.Reader, currencies money.Currencies) *Service {
	return &Service{reader: reader, currencies: currencies}
}

// List returns the caller's records newest first.
func (s *Service) List(ctx context.Context, q Query) (Page, error) {
	if q.UserID == "" {
		return Page{}, apperr.Unauthorized("unauthorized")
	}
	filter, err := s.filter(q)
	if err != nil {
		return Page{}, err
	}
	page, err := normalizePage(q.Page, q.Limit)
	if err != nil {
		return Page{}, err
	}

	res, err := s.reader.Query(ctx, filter, page)
	if err != nil {
		return Page{}, apperr.AsStorage(err)
	}
	return Page{Records: res.Records, Pagination: paginate(page, res.Total)}, nil
}

func (s *Service) filter(q Query) (ledger.Filter, error) {
	f := ledger.Filter{ParticipantID: q.UserID, Search: strings.TrimSpace(q.Search)}

	if q.Type != "" {
		t := ledger.RecordType(strings.ToLower(strings.TrimSpace(q.Type)))
		if !t.Valid() {
			return ledger.Filter{}, apperr.Validation("invalid transaction type %q", q.Type)
		}
		f.Type = t
	}
	if q.Currency != "" {
		c, err := s.currencies.Lookup(q.Currency)
		if err != nil {
			return ledger.Filter{}, err
		}
		f.Currency = c.Code
	}

	var err error
	if f.From, err = parseDate(q.StartDate, false); err != nil {
		return ledger.Filter{}, apperr.Validation("invalid startDate")
	}
	if f.To, err = parseDate(q.EndDate, true); err != nil {
		return ledger.Filter{}, apperr.Validation("invalid endDate")
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return ledger.Filter{}, apperr.Validation("startDate must not be after endDate")
	}
	return f, nil
}

func parseDate(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}

func normalizePage(page, limit int) (ledger.Page, error) {
	if page < 0 || limit < 0 {
		return ledger.Page{}, apperr.Validation("page and limit must be positive")
	}
	if page == 0 {
		page = DefaultPage
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if page-1 > math.MaxInt/limit {
		return ledger.Page{}, apperr.Validation("page is out of range")
	}
	return ledger.Page{Number: page, Limit: limit}, nil
}

func paginate(page ledger.Page, total int) Pagination {
	totalPages := (total + page.Limit - 1) / page.Limit
	return Pagination{
		CurrentPage:  page.Number,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: page.Limit,
		HasNext:      page.Number < totalPages,
		HasPrev:      page.Number > 1,
	}
}
