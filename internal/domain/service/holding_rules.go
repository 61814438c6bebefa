package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"

	"networth/internal/domain"
	"networth/internal/domain/model"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-_=^]{0,31}$`)

// NormalizeHolding upper-cases symbol and currency and trims the name.
func NormalizeHolding(h *model.Holding) {
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	h.Currency = strings.ToUpper(strings.TrimSpace(h.Currency))
	h.AssetClass = model.AssetClass(strings.ToLower(strings.TrimSpace(string(h.AssetClass))))
	h.Name = strings.TrimSpace(h.Name)
	if h.AssetClass == model.AssetCash && h.Symbol == "" {
		h.Symbol = h.Currency
	}
}

// ValidateHolding rejects manual entries that must never reach the engine.
// Every failure wraps domain.ErrInvalidHolding.
func ValidateHolding(h model.Holding) error {
	if !h.AssetClass.Valid() {
		return invalid("unknown asset class %q", h.AssetClass)
	}
	if !symbolPattern.MatchString(h.Symbol) {
		return invalid("bad symbol %q", h.Symbol)
	}
	if !h.Quantity.IsPositive() {
		return invalid("quantity must be positive, got %s", h.Quantity)
	}
	if !KnownCurrency(h.Currency) {
		return invalid("unknown currency code %q", h.Currency)
	}
	if h.AssetClass == model.AssetCash && h.Symbol != h.Currency {
		return invalid("cash symbol %q must equal its currency %q", h.Symbol, h.Currency)
	}
	if h.Bond != nil {
		if h.AssetClass != model.AssetBond {
			return invalid("bond metadata on %s holding", h.AssetClass)
		}
		if h.Bond.Face.IsNegative() || h.Bond.CouponRate.IsNegative() {
			return invalid("bond face and coupon must not be negative")
		}
		if h.Bond.CouponFreq < 0 || h.Bond.CouponFreq > 12 {
			return invalid("bond coupon frequency %d out of range", h.Bond.CouponFreq)
		}
	}
	if h.Acquisition != nil && h.Acquisition.UnitCost.IsNegative() {
		return invalid("acquisition unit cost must not be negative")
	}
	return nil
}

// KnownCurrency reports whether code is an ISO 4217 currency.
func KnownCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	return money.GetCurrency(code) != nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidHolding, fmt.Sprintf(format, args...))
}
