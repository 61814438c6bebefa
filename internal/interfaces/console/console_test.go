package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/domain/model"
)

func snapshot() *model.Snapshot {
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	return model.NewSnapshot("s1", at, "USD", []model.Valuation{
		{HoldingID: "a", AssetClass: model.AssetCrypto, Symbol: "BTC", Quantity: decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(3000), PriceCurrency: "USD", Value: decimal.NewFromInt(3000), Status: model.StatusOK},
		{HoldingID: "b", AssetClass: model.AssetStock, Symbol: "AAPL", Quantity: decimal.NewFromInt(5),
			Value: decimal.Zero, Status: model.StatusMissing, Reason: "yahoo: timeout"},
		{HoldingID: "c", AssetClass: model.AssetCash, Symbol: "USD", Quantity: decimal.NewFromInt(1000),
			Value: decimal.NewFromInt(1000), Status: model.StatusOK},
	})
}

func TestAmount(t *testing.T) {
	if got := Amount(decimal.RequireFromString("1234.5"), "USD"); got != "$1,234.50" {
		t.Fatalf("expected $1,234.50, got %s", got)
	}
	if got := Amount(decimal.RequireFromString("1.005"), "XXY"); got != "1.01 XXY" {
		t.Fatalf("expected fallback format, got %s", got)
	}
}

func TestSnapshotMarkdown(t *testing.T) {
	md := SnapshotMarkdown(snapshot())
	for _, want := range []string{"# Net worth $4,000.00", "(partial)", "| crypto | $3,000.00 | 75.0% |", "**AAPL** (missing): yahoo: timeout"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestSnapshotMarkdownShowsUnrealizedPL(t *testing.T) {
	base := snapshot()
	vals := append([]model.Valuation(nil), base.Valuations...)
	vals[0].CostBasis = decimal.NewNullDecimal(decimal.NewFromInt(2500))
	vals[0].UnrealizedPL = decimal.NewNullDecimal(decimal.NewFromInt(500))
	md := SnapshotMarkdown(model.NewSnapshot(base.ID, base.TakenAt, "USD", vals))

	for _, want := range []string{"Unrealized P/L +$500.00 on cost $2,500.00", "| $3,000.00 | +$500.00 | ok |"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(SnapshotMarkdown(base), "Unrealized P/L") {
		t.Error("P/L line shown without any cost basis")
	}
}

func TestHistoryMarkdownShowsChange(t *testing.T) {
	first := snapshot()
	second := model.NewSnapshot("s2", first.TakenAt.Add(time.Hour), "USD", first.Valuations[:1])
	md := HistoryMarkdown([]*model.Snapshot{first, second}, "")
	if !strings.Contains(md, "-$1,000.00") {
		t.Fatalf("expected a negative change, got:\n%s", md)
	}
	if !strings.Contains(HistoryMarkdown(nil, model.AssetBond), "No snapshots.") {
		t.Fatal("expected empty history message")
	}
}

func TestSinkPrintsSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := NewSink(&buf).Publish(context.Background(), snapshot()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if !strings.Contains(buf.String(), "$4,000.00 partial, 1 missing") {
		t.Fatalf("unexpected line %q", buf.String())
	}
}

func TestPrintRaw(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(&buf, "# hi\n", true); err != nil {
		t.Fatalf("Print failed: %v", err)
	}
	if buf.String() != "# hi\n" {
		t.Fatalf("raw output changed: %q", buf.String())
	}
}
