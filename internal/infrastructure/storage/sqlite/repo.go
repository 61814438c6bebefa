package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"networth/internal/application/port"
	"networth/internal/domain"
)

// Repo is the primary local store: holdings, snapshots with their
// valuations, and the last-known FX rate cache.
type Repo struct {
	db        *sql.DB
	reporting string
}

// New opens (or creates) the database at path. The first open records
// reportingCurrency; later opens with another currency fail with
// domain.ErrReportingCurrencyMismatch.
func New(path, reportingCurrency string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db, reporting: strings.ToUpper(reportingCurrency)}
	ctx := context.Background()
	if err := r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := r.ensureReportingCurrency(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) ReportingCurrency() string { return r.reporting }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
PRAGMA foreign_keys = ON;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS holdings (
  id TEXT NOT NULL,
  version INTEGER NOT NULL,
  asset_class TEXT NOT NULL,
  symbol TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  quantity TEXT NOT NULL,
  currency TEXT NOT NULL,
  acquisition TEXT,
  bond TEXT,
  archived INTEGER NOT NULL DEFAULT 0,
  created_ms INTEGER NOT NULL,
  PRIMARY KEY (id, version)
);
CREATE INDEX IF NOT EXISTS idx_holdings_class ON holdings(asset_class);

CREATE TABLE IF NOT EXISTS snapshots (
  id TEXT PRIMARY KEY,
  taken_ms INTEGER NOT NULL,
  reporting_currency TEXT NOT NULL,
  total TEXT NOT NULL,
  partial INTEGER NOT NULL,
  valuation_count INTEGER NOT NULL,
  created_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_taken ON snapshots(taken_ms);

CREATE TABLE IF NOT EXISTS valuations (
  snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
  position INTEGER NOT NULL,
  holding_id TEXT NOT NULL,
  holding_version INTEGER NOT NULL,
  asset_class TEXT NOT NULL,
  symbol TEXT NOT NULL,
  quantity TEXT NOT NULL,
  native_currency TEXT NOT NULL,
  unit_price TEXT NOT NULL,
  price_currency TEXT NOT NULL,
  value TEXT NOT NULL,
  quote_source TEXT NOT NULL DEFAULT '',
  quote_ms INTEGER NOT NULL DEFAULT 0,
  rate TEXT NOT NULL,
  rate_source TEXT NOT NULL DEFAULT '',
  rate_ms INTEGER NOT NULL DEFAULT 0,
  rate_fallback INTEGER NOT NULL DEFAULT 0,
  rate_cached INTEGER NOT NULL DEFAULT 0,
  cost_basis TEXT,
  unrealized_pl TEXT,
  status TEXT NOT NULL,
  reason TEXT NOT NULL DEFAULT '',
  computed_ms INTEGER NOT NULL,
  PRIMARY KEY (snapshot_id, position),
  FOREIGN KEY (holding_id, holding_version) REFERENCES holdings(id, version)
);
CREATE INDEX IF NOT EXISTS idx_valuations_holding ON valuations(holding_id);

CREATE TABLE IF NOT EXISTS fx_rates (
  base TEXT NOT NULL,
  quote TEXT NOT NULL,
  rate TEXT NOT NULL,
  as_of_ms INTEGER NOT NULL,
  source TEXT NOT NULL,
  updated_ms INTEGER NOT NULL,
  PRIMARY KEY (base, quote)
);

CREATE TRIGGER IF NOT EXISTS holdings_append_only_u BEFORE UPDATE ON holdings
BEGIN SELECT RAISE(ABORT, 'holdings are append-only'); END;
CREATE TRIGGER IF NOT EXISTS holdings_append_only_d BEFORE DELETE ON holdings
BEGIN SELECT RAISE(ABORT, 'holdings are append-only'); END;
CREATE TRIGGER IF NOT EXISTS snapshots_append_only_u BEFORE UPDATE ON snapshots
BEGIN SELECT RAISE(ABORT, 'snapshots are append-only'); END;
CREATE TRIGGER IF NOT EXISTS snapshots_append_only_d BEFORE DELETE ON snapshots
BEGIN SELECT RAISE(ABORT, 'snapshots are append-only'); END;
CREATE TRIGGER IF NOT EXISTS valuations_append_only_u BEFORE UPDATE ON valuations
BEGIN SELECT RAISE(ABORT, 'valuations are append-only'); END;
CREATE TRIGGER IF NOT EXISTS valuations_append_only_d BEFORE DELETE ON valuations
BEGIN SELECT RAISE(ABORT, 'valuations are append-only'); END;
`)
	return err
}

const settingBaseCurrency = "base_currency"

func (r *Repo) ensureReportingCurrency(ctx context.Context) error {
	var stored string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingBaseCurrency).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = r.db.ExecContext(ctx, `INSERT INTO settings(key, value) VALUES(?, ?)`, settingBaseCurrency, r.reporting)
		return err
	case err != nil:
		return err
	case stored != r.reporting:
		return fmt.Errorf("%w: store holds %s, configured %s", domain.ErrReportingCurrencyMismatch, stored, r.reporting)
	}
	return nil
}

// Counts returns the row count of every table, for the status report.
func (r *Repo) Counts(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, table := range []string{"holdings", "snapshots", "valuations", "fx_rates"} {
		var n int64
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		out[table] = n
	}
	return out, nil
}

var _ port.Store = (*Repo)(nil)
