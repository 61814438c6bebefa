package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/domain/model"
)

// ResultStatus tags a QuoteResult so callers never inspect shapes.
type ResultStatus int

const (
	ResultSuccess ResultStatus = iota
	ResultPartial
	ResultFailed
)

func (s ResultStatus) String() string {
	switch s {
	case ResultSuccess:
		return "success"
	case ResultPartial:
		return "partial"
	default:
		return "failed"
	}
}

// QuoteResult holds the quotes a source resolved and why the others are missing.
type QuoteResult struct {
	Quotes  map[string]model.Quote
	Missing map[string]string
}

func NewQuoteResult() QuoteResult {
	return QuoteResult{
		Quotes:  make(map[string]model.Quote),
		Missing: make(map[string]string),
	}
}

func (r QuoteResult) Status() ResultStatus {
	switch {
	case len(r.Missing) == 0:
		return ResultSuccess
	case len(r.Quotes) > 0:
		return ResultPartial
	default:
		return ResultFailed
	}
}

// MissAll marks every symbol not already resolved as missing.
func (r QuoteResult) MissAll(symbols []string, reason string) {
	for _, s := range symbols {
		if _, ok := r.Quotes[s]; ok {
			continue
		}
		if _, ok := r.Missing[s]; ok {
			continue
		}
		r.Missing[s] = reason
	}
}

// QuoteSource fetches unit prices for a batch of symbols in one currency.
// Per-symbol failures land in QuoteResult.Missing; an error means the whole
// call failed and wraps domain.ErrSourceUnavailable.
type QuoteSource interface {
	Name() string
	FetchQuotes(ctx context.Context, symbols []string, currency string) (QuoteResult, error)
}

// PriceGetter is a single-symbol source. The returned currency is the one
// the price is denominated in, which may differ from the requested one.
type PriceGetter interface {
	Name() string
	GetPrice(ctx context.Context, symbol, currency string) (price decimal.Decimal, priceCurrency string, asOf time.Time, err error)
}

// FxSource returns the rate converting one unit of base into quote.
type FxSource interface {
	Name() string
	Rate(ctx context.Context, base, quote string) (model.FxRate, error)
}
