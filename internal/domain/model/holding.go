package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetClass is the category a holding is valued and totalled under.
type AssetClass string

const (
	AssetCrypto AssetClass = "crypto"
	AssetStock  AssetClass = "stock"
	AssetETF    AssetClass = "etf"
	AssetBond   AssetClass = "bond"
	AssetCash   AssetClass = "cash"
)

// AssetClasses lists every class in reporting order.
var AssetClasses = []AssetClass{AssetCrypto, AssetStock, AssetETF, AssetBond, AssetCash}

func (c AssetClass) Valid() bool {
	for _, a := range AssetClasses {
		if a == c {
			return true
		}
	}
	return false
}

// NeedsQuote reports whether the class is priced by an external source.
// Bonds and cash carry their value in the quantity.
func (c AssetClass) NeedsQuote() bool {
	switch c {
	case AssetCrypto, AssetStock, AssetETF:
		return true
	default:
		return false
	}
}

// Rank orders classes for deterministic output.
func (c AssetClass) Rank() int {
	for i, a := range AssetClasses {
		if a == c {
			return i
		}
	}
	return len(AssetClasses)
}

// Acquisition is optional purchase metadata. UnitCost is in the holding's
// currency and drives cost basis and unrealized P/L.
type Acquisition struct {
	Date     time.Time       `json:"date"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Note     string          `json:"note,omitempty"`
}

// BondMeta describes a manually tracked bond. The holding quantity is the
// stored face/accrued value; these fields are informational.
type BondMeta struct {
	Face       decimal.Decimal `json:"face"`
	CouponRate decimal.Decimal `json:"coupon_rate"`
	CouponFreq int             `json:"coupon_freq"`
	Maturity   time.Time       `json:"maturity"`
	Issuer     string          `json:"issuer,omitempty"`
}

// Holding is one version of a position. Edits append a new version under
// the same ID, so a version referenced by a snapshot never changes.
type Holding struct {
	ID          string          `json:"id"`
	Version     int             `json:"version"`
	AssetClass  AssetClass      `json:"asset_class"`
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Currency    string          `json:"currency"`
	Acquisition *Acquisition    `json:"acquisition,omitempty"`
	Bond        *BondMeta       `json:"bond,omitempty"`
	Archived    bool            `json:"archived,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// UnitCost returns the acquisition unit cost when one was entered. A zero
// cost counts as not entered.
func (h Holding) UnitCost() (decimal.Decimal, bool) {
	if h.Acquisition == nil || !h.Acquisition.UnitCost.IsPositive() {
		return decimal.Zero, false
	}
	return h.Acquisition.UnitCost, true
}

// GroupKey identifies a batch of holdings fetched with one adapter call.
type GroupKey struct {
	Class    AssetClass
	Currency string
}

func (h Holding) GroupKey() GroupKey {
	return GroupKey{Class: h.AssetClass, Currency: h.Currency}
}
