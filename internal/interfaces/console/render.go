package console

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"networth/internal/domain/model"
)

// Print renders markdown for the terminal. raw writes the markdown as is.
func Print(w io.Writer, md string, raw bool) error {
	if raw {
		_, err := io.WriteString(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func SnapshotMarkdown(s *model.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Net worth %s\n\n", Amount(s.Total, s.ReportingCurrency))
	fmt.Fprintf(&b, "Taken %s, snapshot `%s`", s.TakenAt.Local().Format("2006-01-02 15:04:05"), s.ID)
	if s.Partial {
		b.WriteString(" **(partial)**")
	}
	b.WriteString("\n\n")
	if !s.CostBasis.IsZero() {
		fmt.Fprintf(&b, "Unrealized P/L %s on cost %s\n\n",
			signed(s.UnrealizedPL, s.ReportingCurrency), Amount(s.CostBasis, s.ReportingCurrency))
	}

	b.WriteString("| Category | Value | Share |\n|---|---:|---:|\n")
	for _, c := range model.AssetClasses {
		v, ok := s.CategoryTotals[c]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", c, Amount(v, s.ReportingCurrency), share(v, s.Total))
	}

	b.WriteString("\n## Holdings\n\n")
	b.WriteString("| Class | Symbol | Quantity | Price | Rate | Value | P/L | Status |\n|---|---|---:|---:|---:|---:|---:|---|\n")
	for _, v := range s.Valuations {
		price := "-"
		if !v.UnitPrice.IsZero() {
			price = v.UnitPrice.String() + " " + v.PriceCurrency
		}
		rate := "-"
		if !v.Rate.IsZero() && v.RateSource != "identity" {
			rate = v.Rate.String() + " (" + v.RateSource + ")"
		}
		pl := "-"
		if v.UnrealizedPL.Valid {
			pl = signed(v.UnrealizedPL.Decimal, s.ReportingCurrency)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			v.AssetClass, v.Symbol, v.Quantity, price, rate, Amount(v.Value, s.ReportingCurrency), pl, v.Status)
	}

	if len(s.Missing) > 0 {
		b.WriteString("\n## Missing or stale\n\n")
		for _, m := range s.Missing {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", m.Symbol, m.Status, m.Reason)
		}
	}
	return b.String()
}

// HistoryMarkdown lists snapshots oldest first with the change between
// consecutive totals.
func HistoryMarkdown(snaps []*model.Snapshot, category model.AssetClass) string {
	var b strings.Builder
	title := "History"
	if category != "" {
		title += " of " + string(category)
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if len(snaps) == 0 {
		b.WriteString("No snapshots.\n")
		return b.String()
	}
	b.WriteString("| Taken | Total | Change | Partial |\n|---|---:|---:|---|\n")
	var prev *model.Snapshot
	for _, s := range snaps {
		change := "-"
		if prev != nil {
			change = signed(s.Total.Sub(prev.Total), s.ReportingCurrency)
		}
		partial := ""
		if s.Partial {
			partial = "yes"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			s.TakenAt.Local().Format("2006-01-02 15:04"), Amount(s.Total, s.ReportingCurrency), change, partial)
		prev = s
	}
	return b.String()
}

func HoldingsMarkdown(list []model.Holding) string {
	var b strings.Builder
	b.WriteString("# Holdings\n\n")
	if len(list) == 0 {
		b.WriteString("No holdings.\n")
		return b.String()
	}
	sorted := append([]model.Holding(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].AssetClass != sorted[j].AssetClass {
			return sorted[i].AssetClass.Rank() < sorted[j].AssetClass.Rank()
		}
		return sorted[i].Symbol < sorted[j].Symbol
	})
	b.WriteString("| ID | Class | Symbol | Name | Quantity | Currency | Unit cost | Version |\n|---|---|---|---|---:|---|---:|---:|\n")
	for _, h := range sorted {
		id := h.ID
		if h.Archived {
			id += " (archived)"
		}
		cost := "-"
		if unit, ok := h.UnitCost(); ok {
			cost = unit.String()
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s | %s | %s | %s | %d |\n",
			id, h.AssetClass, h.Symbol, h.Name, h.Quantity, h.Currency, cost, h.Version)
	}
	return b.String()
}

// StatusMarkdown reports table sizes and the latest snapshot.
func StatusMarkdown(path string, counts map[string]int64, latest *model.Snapshot, mirrors []string) string {
	var b strings.Builder
	b.WriteString("# Store status\n\n")
	fmt.Fprintf(&b, "Database `%s`\n\n", path)
	b.WriteString("| Table | Rows |\n|---|---:|\n")
	tables := make([]string, 0, len(counts))
	for t := range counts {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Fprintf(&b, "| %s | %d |\n", t, counts[t])
	}
	if latest != nil {
		fmt.Fprintf(&b, "\nLatest snapshot `%s`, %s ago, %s\n",
			latest.ID, time.Since(latest.TakenAt).Round(time.Second), Amount(latest.Total, latest.ReportingCurrency))
	}
	if len(mirrors) > 0 {
		fmt.Fprintf(&b, "\nMirrors: %s\n", strings.Join(mirrors, ", "))
	}
	return b.String()
}

func share(part, total decimal.Decimal) string {
	if total.IsZero() {
		return "-"
	}
	return part.Div(total).Shift(2).StringFixed(1) + "%"
}

func signed(d decimal.Decimal, code string) string {
	switch {
	case d.IsPositive():
		return "+" + Amount(d, code)
	case d.IsNegative():
		return "-" + Amount(d.Abs(), code)
	}
	return Amount(d, code)
}
