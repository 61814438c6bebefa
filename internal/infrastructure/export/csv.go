package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes the header followed by rows.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file written by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no header")
	}
	for i, name := range records[0] {
		if name != Columns[i] {
			return nil, fmt.Errorf("unexpected column %d: %q, want %q", i, name, Columns[i])
		}
	}

	rows := make([]Row, 0, len(records)-1)
	for n, rec := range records[1:] {
		partial, err := strconv.ParseBool(rec[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: partial: %w", n+2, err)
		}
		version, err := strconv.ParseInt(rec[5], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: holding_version: %w", n+2, err)
		}
		rows = append(rows, Row{
			SnapshotID:        rec[0],
			TakenAt:           rec[1],
			ReportingCurrency: rec[2],
			Partial:           partial,
			HoldingID:         rec[4],
			HoldingVersion:    version,
			AssetClass:        rec[6],
			Symbol:            rec[7],
			Quantity:          rec[8],
			NativeCurrency:    rec[9],
			UnitPrice:         rec[10],
			PriceCurrency:     rec[11],
			QuoteSource:       rec[12],
			FxRate:            rec[13],
			FxSource:          rec[14],
			Value:             rec[15],
			CostBasis:         rec[16],
			UnrealizedPL:      rec[17],
			Status:            rec[18],
			Reason:            rec[19],
		})
	}
	return rows, nil
}

func (r Row) record() []string {
	return []string{
		r.SnapshotID, r.TakenAt, r.ReportingCurrency, strconv.FormatBool(r.Partial),
		r.HoldingID, strconv.FormatInt(r.HoldingVersion, 10), r.AssetClass, r.Symbol,
		r.Quantity, r.NativeCurrency, r.UnitPrice, r.PriceCurrency, r.QuoteSource,
		r.FxRate, r.FxSource, r.Value, r.CostBasis, r.UnrealizedPL, r.Status, r.Reason,
	}
}
