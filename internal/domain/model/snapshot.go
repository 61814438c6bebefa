package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ValuationStatus tells the display layer how much to trust a line item.
type ValuationStatus string

const (
	// StatusOK valued from a live quote and a primary FX rate.
	StatusOK ValuationStatus = "ok"
	// StatusFallback valued with a rate from a secondary live FX source.
	StatusFallback ValuationStatus = "fallback"
	// StatusStale valued with a cached last-known FX rate.
	StatusStale ValuationStatus = "stale"
	// StatusMissing quote or rate unavailable, valued at zero.
	StatusMissing ValuationStatus = "missing"
)

// Valuation is the reporting-currency value of one holding version in one snapshot.
type Valuation struct {
	HoldingID      string          `json:"holding_id"`
	HoldingVersion int             `json:"holding_version"`
	AssetClass     AssetClass      `json:"asset_class"`
	Symbol         string          `json:"symbol"`
	Quantity       decimal.Decimal `json:"quantity"`
	NativeCurrency string          `json:"native_currency"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	PriceCurrency  string          `json:"price_currency"`
	Value          decimal.Decimal `json:"value"`

	QuoteSource string    `json:"quote_source,omitempty"`
	QuoteAsOf   time.Time `json:"quote_as_of,omitempty"`

	Rate         decimal.Decimal `json:"rate"`
	RateSource   string          `json:"rate_source,omitempty"`
	RateAsOf     time.Time       `json:"rate_as_of,omitempty"`
	RateFallback bool            `json:"rate_fallback,omitempty"`
	RateCached   bool            `json:"rate_cached,omitempty"`

	// CostBasis is quantity × acquisition unit cost in the reporting
	// currency. Null when the holding has no acquisition or no rate.
	CostBasis decimal.NullDecimal `json:"cost_basis"`
	// UnrealizedPL is Value minus CostBasis; null for missing valuations.
	UnrealizedPL decimal.NullDecimal `json:"unrealized_pl"`

	Status     ValuationStatus `json:"status"`
	Reason     string          `json:"reason,omitempty"`
	ComputedAt time.Time       `json:"computed_at"`
}

// Degraded reports whether the line item substituted a zero or a previous value.
func (v Valuation) Degraded() bool {
	return v.Status == StatusMissing || v.Status == StatusStale
}

// MissingItem records why a holding was zeroed or valued from stale data.
type MissingItem struct {
	HoldingID string          `json:"holding_id"`
	Symbol    string          `json:"symbol"`
	Status    ValuationStatus `json:"status"`
	Reason    string          `json:"reason"`
}

// Snapshot is one immutable valuation of every holding at a point in time.
type Snapshot struct {
	ID                string                         `json:"id"`
	TakenAt           time.Time                      `json:"taken_at"`
	ReportingCurrency string                         `json:"reporting_currency"`
	Total             decimal.Decimal                `json:"total_value"`
	CategoryTotals    map[AssetClass]decimal.Decimal `json:"category_totals"`
	Valuations        []Valuation                    `json:"valuations"`
	Partial           bool                           `json:"partial"`
	Missing           []MissingItem                  `json:"missing,omitempty"`

	// CostBasis and UnrealizedPL sum the valuations where UnrealizedPL is
	// known, so UnrealizedPL equals their value minus CostBasis.
	CostBasis    decimal.Decimal `json:"cost_basis"`
	UnrealizedPL decimal.Decimal `json:"unrealized_pl"`
}

// NewSnapshot derives totals, the partial flag and the missing list from
// the valuations. Zeroed valuations are kept so counts stay consistent.
func NewSnapshot(id string, takenAt time.Time, currency string, valuations []Valuation) *Snapshot {
	s := &Snapshot{
		ID:                id,
		TakenAt:           takenAt,
		ReportingCurrency: currency,
		Total:             decimal.Zero,
		CategoryTotals:    make(map[AssetClass]decimal.Decimal),
		Valuations:        valuations,
		CostBasis:         decimal.Zero,
		UnrealizedPL:      decimal.Zero,
	}
	for _, v := range valuations {
		s.Total = s.Total.Add(v.Value)
		s.CategoryTotals[v.AssetClass] = s.CategoryTotals[v.AssetClass].Add(v.Value)
		if v.UnrealizedPL.Valid {
			s.CostBasis = s.CostBasis.Add(v.CostBasis.Decimal)
			s.UnrealizedPL = s.UnrealizedPL.Add(v.UnrealizedPL.Decimal)
		}
		if v.Degraded() {
			s.Partial = true
			s.Missing = append(s.Missing, MissingItem{
				HoldingID: v.HoldingID,
				Symbol:    v.Symbol,
				Status:    v.Status,
				Reason:    v.Reason,
			})
		}
	}
	return s
}

// ForCategory narrows the snapshot to one asset class. The returned view
// keeps the totals invariant: Total equals the category total.
func (s *Snapshot) ForCategory(c AssetClass) (*Snapshot, bool) {
	if _, ok := s.CategoryTotals[c]; !ok {
		return nil, false
	}
	var vals []Valuation
	for _, v := range s.Valuations {
		if v.AssetClass == c {
			vals = append(vals, v)
		}
	}
	return NewSnapshot(s.ID, s.TakenAt, s.ReportingCurrency, vals), true
}

// MissingIDs lists the holdings that were zeroed or valued from stale data.
func (s *Snapshot) MissingIDs() []string {
	out := make([]string, 0, len(s.Missing))
	for _, m := range s.Missing {
		out = append(out, m.HoldingID)
	}
	return out
}

// Validate checks the invariants every committed snapshot must satisfy.
func (s *Snapshot) Validate() error {
	if s.ID == "" {
		return errors.New("snapshot id is empty")
	}
	if s.ReportingCurrency == "" {
		return errors.New("snapshot reporting currency is empty")
	}
	total, pl := decimal.Zero, decimal.Zero
	cats := make(map[AssetClass]decimal.Decimal)
	for _, v := range s.Valuations {
		if v.UnrealizedPL.Valid {
			if !v.CostBasis.Valid || !v.Value.Sub(v.CostBasis.Decimal).Equal(v.UnrealizedPL.Decimal) {
				return fmt.Errorf("valuation %s: unrealized P/L does not match value minus cost", v.HoldingID)
			}
			pl = pl.Add(v.UnrealizedPL.Decimal)
		}
		if v.Value.IsNegative() {
			return fmt.Errorf("valuation %s: negative value %s", v.HoldingID, v.Value)
		}
		if v.Status == "" {
			return fmt.Errorf("valuation %s: no status", v.HoldingID)
		}
		total = total.Add(v.Value)
		cats[v.AssetClass] = cats[v.AssetClass].Add(v.Value)
	}
	if !total.Equal(s.Total) {
		return fmt.Errorf("total %s does not match valuations sum %s", s.Total, total)
	}
	if !pl.Equal(s.UnrealizedPL) {
		return fmt.Errorf("unrealized P/L %s does not match valuations sum %s", s.UnrealizedPL, pl)
	}
	if len(cats) != len(s.CategoryTotals) {
		return fmt.Errorf("category totals cover %d classes, valuations %d", len(s.CategoryTotals), len(cats))
	}
	for c, sum := range cats {
		if !sum.Equal(s.CategoryTotals[c]) {
			return fmt.Errorf("category %s total %s does not match %s", c, s.CategoryTotals[c], sum)
		}
	}
	return nil
}
