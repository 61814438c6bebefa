package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"networth/internal/domain/model"
)

// PutRate overwrites the last known rate for the pair.
func (r *Repo) PutRate(ctx context.Context, rate model.FxRate) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fx_rates(base, quote, rate, as_of_ms, source, updated_ms)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(base, quote) DO UPDATE SET
		  rate=excluded.rate,
		  as_of_ms=excluded.as_of_ms,
		  source=excluded.source,
		  updated_ms=excluded.updated_ms`,
		strings.ToUpper(rate.Base), strings.ToUpper(rate.Quote), rate.Rate, rate.AsOf.UnixMilli(), rate.Source, time.Now().UnixMilli())
	return err
}

func (r *Repo) GetRate(ctx context.Context, base, quote string) (model.FxRate, bool, error) {
	rate := model.FxRate{Base: strings.ToUpper(base), Quote: strings.ToUpper(quote)}
	var asOfMs int64
	err := r.db.QueryRowContext(ctx, `SELECT rate, as_of_ms, source FROM fx_rates WHERE base = ? AND quote = ?`,
		rate.Base, rate.Quote).Scan(&rate.Rate, &asOfMs, &rate.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FxRate{}, false, nil
	}
	if err != nil {
		return model.FxRate{}, false, err
	}
	rate.AsOf = time.UnixMilli(asOfMs).UTC()
	return rate, true, nil
}
