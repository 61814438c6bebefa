package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a unit price fetched during one refresh. Never persisted on its own.
type Quote struct {
	Symbol   string          `json:"symbol"`
	Currency string          `json:"currency"`
	Price    decimal.Decimal `json:"price"`
	AsOf     time.Time       `json:"as_of"`
	Source   string          `json:"source"`
}

// FxRate converts one unit of Base into Quote.
type FxRate struct {
	Base       string          `json:"base"`
	Quote      string          `json:"quote"`
	Rate       decimal.Decimal `json:"rate"`
	AsOf       time.Time       `json:"as_of"`
	Source     string          `json:"source"`
	IsFallback bool            `json:"is_fallback"`
	// Cached is set when the rate is a last-known value served after every
	// live source failed.
	Cached bool `json:"cached,omitempty"`
}

// Identity is the rate for a same-currency conversion.
func Identity(currency string, at time.Time) FxRate {
	return FxRate{
		Base:   currency,
		Quote:  currency,
		Rate:   decimal.NewFromInt(1),
		AsOf:   at,
		Source: "identity",
	}
}

// Age of the rate relative to now.
func (r FxRate) Age(now time.Time) time.Duration {
	return now.Sub(r.AsOf)
}
