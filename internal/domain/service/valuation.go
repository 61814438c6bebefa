package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/domain/model"
)

// QuoteKey addresses a quote fetched for one (class, currency) group.
type QuoteKey struct {
	Class    model.AssetClass
	Symbol   string
	Currency string
}

// KeyFor returns the quote key of a holding.
func KeyFor(h model.Holding) QuoteKey {
	return QuoteKey{Class: h.AssetClass, Symbol: h.Symbol, Currency: h.Currency}
}

// MarketData is everything fetched during one refresh, joined before valuation.
type MarketData struct {
	Quotes      map[QuoteKey]model.Quote
	QuoteErrors map[QuoteKey]string
	// Rates maps a source currency to its rate into the reporting currency.
	Rates      map[string]model.FxRate
	RateErrors map[string]string
}

func NewMarketData() MarketData {
	return MarketData{
		Quotes:      make(map[QuoteKey]model.Quote),
		QuoteErrors: make(map[QuoteKey]string),
		Rates:       make(map[string]model.FxRate),
		RateErrors:  make(map[string]string),
	}
}

// Valuer turns holdings and market data into a snapshot. It performs no I/O,
// so identical inputs always give identical valuations.
type Valuer struct {
	reporting string
}

func NewValuer(reportingCurrency string) *Valuer {
	return &Valuer{reporting: reportingCurrency}
}

func (v *Valuer) ReportingCurrency() string { return v.reporting }

// Value computes the snapshot. A holding whose quote or rate is missing is
// valued at zero and recorded; it never fails the whole snapshot.
func (v *Valuer) Value(id string, holdings []model.Holding, md MarketData, now time.Time) *model.Snapshot {
	vals := make([]model.Valuation, 0, len(holdings))
	for _, h := range holdings {
		if h.Archived {
			continue
		}
		vals = append(vals, v.withCost(v.valueOne(h, md, now), h, md, now))
	}
	sort.SliceStable(vals, func(i, j int) bool {
		a, b := vals[i], vals[j]
		if a.AssetClass != b.AssetClass {
			return a.AssetClass.Rank() < b.AssetClass.Rank()
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.HoldingID < b.HoldingID
	})
	return model.NewSnapshot(id, now, v.reporting, vals)
}

func (v *Valuer) valueOne(h model.Holding, md MarketData, now time.Time) model.Valuation {
	out := model.Valuation{
		HoldingID:      h.ID,
		HoldingVersion: h.Version,
		AssetClass:     h.AssetClass,
		Symbol:         h.Symbol,
		Quantity:       h.Quantity,
		NativeCurrency: h.Currency,
		UnitPrice:      decimal.NewFromInt(1),
		PriceCurrency:  h.Currency,
		Value:          decimal.Zero,
		Rate:           decimal.Zero,
		ComputedAt:     now,
	}

	if h.AssetClass.NeedsQuote() {
		key := KeyFor(h)
		q, ok := md.Quotes[key]
		if !ok {
			return missing(out, quoteReason(md, key))
		}
		if q.Price.IsNegative() {
			return missing(out, fmt.Sprintf("negative price %s from %s", q.Price, q.Source))
		}
		out.UnitPrice = q.Price
		out.QuoteSource = q.Source
		out.QuoteAsOf = q.AsOf
		if q.Currency != "" {
			out.PriceCurrency = q.Currency
		}
	}

	rate, ok := v.rateFor(out.PriceCurrency, md, now)
	if !ok {
		reason := md.RateErrors[out.PriceCurrency]
		if reason == "" {
			reason = fmt.Sprintf("no %s/%s rate", out.PriceCurrency, v.reporting)
		}
		return missing(out, reason)
	}
	out.Rate = rate.Rate
	out.RateSource = rate.Source
	out.RateAsOf = rate.AsOf
	out.RateFallback = rate.IsFallback
	out.RateCached = rate.Cached

	out.Value = h.Quantity.Mul(out.UnitPrice).Mul(rate.Rate)
	if out.Value.IsNegative() {
		return missing(out, "negative value")
	}

	switch {
	case rate.Cached:
		out.Status = model.StatusStale
		out.Reason = fmt.Sprintf("cached %s rate from %s", rate.Base, rate.AsOf.Format(time.RFC3339))
	case rate.IsFallback:
		out.Status = model.StatusFallback
		out.Reason = "rate from " + rate.Source
	default:
		out.Status = model.StatusOK
	}
	return out
}

// withCost converts the acquisition cost at the current rate of the
// holding's currency. P/L is left null when the value itself is missing.
func (v *Valuer) withCost(out model.Valuation, h model.Holding, md MarketData, now time.Time) model.Valuation {
	unit, ok := h.UnitCost()
	if !ok {
		return out
	}
	rate, ok := v.rateFor(h.Currency, md, now)
	if !ok {
		return out
	}
	cost := h.Quantity.Mul(unit).Mul(rate.Rate)
	out.CostBasis = decimal.NewNullDecimal(cost)
	if out.Status != model.StatusMissing {
		out.UnrealizedPL = decimal.NewNullDecimal(out.Value.Sub(cost))
	}
	return out
}

func (v *Valuer) rateFor(currency string, md MarketData, now time.Time) (model.FxRate, bool) {
	if currency == v.reporting {
		return model.Identity(currency, now), true
	}
	r, ok := md.Rates[currency]
	if !ok || !r.Rate.IsPositive() {
		return model.FxRate{}, false
	}
	return r, true
}

func quoteReason(md MarketData, key QuoteKey) string {
	if r := md.QuoteErrors[key]; r != "" {
		return r
	}
	return "no quote for " + key.Symbol
}

func missing(v model.Valuation, reason string) model.Valuation {
	v.Value = decimal.Zero
	v.Status = model.StatusMissing
	v.Reason = reason
	return v
}
