package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"networth/internal/application/port"
	"networth/internal/domain"
	"networth/internal/domain/model"
)

// Append commits the snapshot and all of its valuations in one transaction.
// Nothing becomes visible to readers unless every row was written.
func (r *Repo) Append(ctx context.Context, s *model.Snapshot) (string, error) {
	if err := s.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStoreWriteFailure, err)
	}
	if s.ReportingCurrency != r.reporting {
		return "", fmt.Errorf("%w: %w: snapshot in %s, store in %s",
			domain.ErrStoreWriteFailure, domain.ErrReportingCurrencyMismatch, s.ReportingCurrency, r.reporting)
	}
	if err := r.appendTx(ctx, s); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStoreWriteFailure, err)
	}
	return s.ID, nil
}

func (r *Repo) appendTx(ctx context.Context, s *model.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots(id, taken_ms, reporting_currency, total, partial, valuation_count, created_ms)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.TakenAt.UnixMilli(), s.ReportingCurrency, s.Total, s.Partial, len(s.Valuations), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", s.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO valuations(snapshot_id, position, holding_id, holding_version, asset_class, symbol, quantity,
			native_currency, unit_price, price_currency, value, quote_source, quote_ms,
			rate, rate_source, rate_ms, rate_fallback, rate_cached, cost_basis, unrealized_pl, status, reason, computed_ms)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, v := range s.Valuations {
		_, err := stmt.ExecContext(ctx,
			s.ID, i, v.HoldingID, v.HoldingVersion, string(v.AssetClass), v.Symbol, v.Quantity,
			v.NativeCurrency, v.UnitPrice, v.PriceCurrency, v.Value, v.QuoteSource, millis(v.QuoteAsOf),
			v.Rate, v.RateSource, millis(v.RateAsOf), v.RateFallback, v.RateCached, v.CostBasis, v.UnrealizedPL,
			string(v.Status), v.Reason, millis(v.ComputedAt))
		if err != nil {
			return fmt.Errorf("insert valuation %s/%d: %w", s.ID, i, err)
		}
	}
	return tx.Commit()
}

func (r *Repo) Latest(ctx context.Context) (*model.Snapshot, error) {
	snaps, err := r.querySnapshots(ctx, `SELECT id, taken_ms, reporting_currency FROM snapshots ORDER BY taken_ms DESC, rowid DESC LIMIT 1`)
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return snaps[0], nil
}

// GetSnapshot returns one snapshot by id, or nil when absent.
func (r *Repo) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	snaps, err := r.querySnapshots(ctx, `SELECT id, taken_ms, reporting_currency FROM snapshots WHERE id = ?`, id)
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return snaps[0], nil
}

func (r *Repo) History(ctx context.Context, q port.HistoryQuery) ([]*model.Snapshot, error) {
	var (
		where []string
		args  []any
	)
	if !q.Since.IsZero() {
		where = append(where, "taken_ms >= ?")
		args = append(args, q.Since.UnixMilli())
	}
	if !q.Until.IsZero() {
		where = append(where, "taken_ms <= ?")
		args = append(args, q.Until.UnixMilli())
	}
	query := `SELECT id, taken_ms, reporting_currency FROM snapshots`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY taken_ms ASC, rowid ASC"

	snaps, err := r.querySnapshots(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if q.Category == "" {
		return snaps, nil
	}
	out := make([]*model.Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if narrowed, ok := s.ForCategory(q.Category); ok {
			out = append(out, narrowed)
		}
	}
	return out, nil
}

type snapshotHeader struct {
	id       string
	takenMs  int64
	currency string
}

// querySnapshots loads headers first and valuations second; the single
// connection cannot serve a nested query while rows are open.
func (r *Repo) querySnapshots(ctx context.Context, query string, args ...any) ([]*model.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var headers []snapshotHeader
	for rows.Next() {
		var h snapshotHeader
		if err := rows.Scan(&h.id, &h.takenMs, &h.currency); err != nil {
			rows.Close()
			return nil, err
		}
		headers = append(headers, h)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*model.Snapshot, 0, len(headers))
	for _, h := range headers {
		vals, err := r.valuations(ctx, h.id)
		if err != nil {
			return nil, err
		}
		out = append(out, model.NewSnapshot(h.id, time.UnixMilli(h.takenMs).UTC(), h.currency, vals))
	}
	return out, nil
}

func (r *Repo) valuations(ctx context.Context, snapshotID string) ([]model.Valuation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT holding_id, holding_version, asset_class, symbol, quantity, native_currency, unit_price, price_currency,
			value, quote_source, quote_ms, rate, rate_source, rate_ms, rate_fallback, rate_cached,
			cost_basis, unrealized_pl, status, reason, computed_ms
		FROM valuations WHERE snapshot_id = ? ORDER BY position`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Valuation
	for rows.Next() {
		var (
			v                           model.Valuation
			class, status               string
			quoteMs, rateMs, computedMs int64
		)
		err := rows.Scan(&v.HoldingID, &v.HoldingVersion, &class, &v.Symbol, &v.Quantity, &v.NativeCurrency,
			&v.UnitPrice, &v.PriceCurrency, &v.Value, &v.QuoteSource, &quoteMs, &v.Rate, &v.RateSource, &rateMs,
			&v.RateFallback, &v.RateCached, &v.CostBasis, &v.UnrealizedPL, &status, &v.Reason, &computedMs)
		if err != nil {
			return nil, fmt.Errorf("scan valuation of %s: %w", snapshotID, err)
		}
		v.AssetClass = model.AssetClass(class)
		v.Status = model.ValuationStatus(status)
		v.QuoteAsOf = fromMillis(quoteMs)
		v.RateAsOf = fromMillis(rateMs)
		v.ComputedAt = fromMillis(computedMs)
		out = append(out, v)
	}
	return out, rows.Err()
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
