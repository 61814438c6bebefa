// Package export flattens snapshots into one row per holding per snapshot
// and writes them as CSV or Parquet.
package export

import (
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/domain/model"
)

// Row is one valuation of one snapshot. Field order is the column order of
// both formats; decimals are kept as strings so nothing is rounded, and an
// unknown cost basis or P/L is an empty string.
type Row struct {
	SnapshotID        string `parquet:"snapshot_id"`
	TakenAt           string `parquet:"taken_at"`
	ReportingCurrency string `parquet:"reporting_currency"`
	Partial           bool   `parquet:"partial"`
	HoldingID         string `parquet:"holding_id"`
	HoldingVersion    int64  `parquet:"holding_version"`
	AssetClass        string `parquet:"asset_class"`
	Symbol            string `parquet:"symbol"`
	Quantity          string `parquet:"quantity"`
	NativeCurrency    string `parquet:"native_currency"`
	UnitPrice         string `parquet:"unit_price"`
	PriceCurrency     string `parquet:"price_currency"`
	QuoteSource       string `parquet:"quote_source"`
	FxRate            string `parquet:"fx_rate"`
	FxSource          string `parquet:"fx_source"`
	Value             string `parquet:"value"`
	CostBasis         string `parquet:"cost_basis"`
	UnrealizedPL      string `parquet:"unrealized_pl"`
	Status            string `parquet:"status"`
	Reason            string `parquet:"reason"`
}

// Columns is the header of every export.
var Columns = []string{
	"snapshot_id", "taken_at", "reporting_currency", "partial",
	"holding_id", "holding_version", "asset_class", "symbol",
	"quantity", "native_currency", "unit_price", "price_currency", "quote_source",
	"fx_rate", "fx_source", "value", "cost_basis", "unrealized_pl", "status", "reason",
}

// Rows flattens snapshots in the order given, valuations in snapshot order.
func Rows(snaps []*model.Snapshot) []Row {
	var out []Row
	for _, s := range snaps {
		taken := s.TakenAt.UTC().Format(time.RFC3339Nano)
		for _, v := range s.Valuations {
			out = append(out, Row{
				SnapshotID:        s.ID,
				TakenAt:           taken,
				ReportingCurrency: s.ReportingCurrency,
				Partial:           s.Partial,
				HoldingID:         v.HoldingID,
				HoldingVersion:    int64(v.HoldingVersion),
				AssetClass:        string(v.AssetClass),
				Symbol:            v.Symbol,
				Quantity:          v.Quantity.String(),
				NativeCurrency:    v.NativeCurrency,
				UnitPrice:         v.UnitPrice.String(),
				PriceCurrency:     v.PriceCurrency,
				QuoteSource:       v.QuoteSource,
				FxRate:            v.Rate.String(),
				FxSource:          v.RateSource,
				Value:             v.Value.String(),
				CostBasis:         nullString(v.CostBasis),
				UnrealizedPL:      nullString(v.UnrealizedPL),
				Status:            string(v.Status),
				Reason:            v.Reason,
			})
		}
	}
	return out
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
