package service

import (
	"errors"
	"testing"

	"networth/internal/domain"
	"networth/internal/domain/model"
)

func TestValidateHolding(t *testing.T) {
	tests := []struct {
		name string
		h    model.Holding
		ok   bool
	}{
		{"stock", model.Holding{AssetClass: "stock", Symbol: " aapl ", Quantity: dec("3"), Currency: "usd"}, true},
		{"cash defaults symbol", model.Holding{AssetClass: "cash", Quantity: dec("100"), Currency: "PLN"}, true},
		{"etf with exchange suffix", model.Holding{AssetClass: "etf", Symbol: "VWCE.DE", Quantity: dec("1"), Currency: "EUR"}, true},
		{"bond", model.Holding{AssetClass: "bond", Symbol: "EDO0434", Quantity: dec("1000"), Currency: "PLN",
			Bond: &model.BondMeta{Face: dec("1000"), CouponRate: dec("0.07"), CouponFreq: 1}}, true},
		{"zero quantity", model.Holding{AssetClass: "stock", Symbol: "AAPL", Quantity: dec("0"), Currency: "USD"}, false},
		{"negative quantity", model.Holding{AssetClass: "crypto", Symbol: "BTC", Quantity: dec("-1"), Currency: "USD"}, false},
		{"unknown currency", model.Holding{AssetClass: "stock", Symbol: "AAPL", Quantity: dec("1"), Currency: "XYZ"}, false},
		{"unknown class", model.Holding{AssetClass: "nft", Symbol: "APE", Quantity: dec("1"), Currency: "USD"}, false},
		{"bad symbol", model.Holding{AssetClass: "stock", Symbol: "AA PL", Quantity: dec("1"), Currency: "USD"}, false},
		{"cash symbol mismatch", model.Holding{AssetClass: "cash", Symbol: "USD", Quantity: dec("1"), Currency: "PLN"}, false},
		{"bond meta on stock", model.Holding{AssetClass: "stock", Symbol: "AAPL", Quantity: dec("1"), Currency: "USD",
			Bond: &model.BondMeta{Face: dec("1")}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.h
			NormalizeHolding(&h)
			err := ValidateHolding(h)
			if tt.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatalf("expected error for %+v", h)
				}
				if !errors.Is(err, domain.ErrInvalidHolding) {
					t.Errorf("expected ErrInvalidHolding, got %v", err)
				}
			}
		})
	}
}

func TestKnownCurrency(t *testing.T) {
	for _, c := range []string{"PLN", "USD", "EUR", "CHF"} {
		if !KnownCurrency(c) {
			t.Errorf("%s should be known", c)
		}
	}
	for _, c := range []string{"", "US", "ZZZ", "PLNX"} {
		if KnownCurrency(c) {
			t.Errorf("%q should be unknown", c)
		}
	}
}
