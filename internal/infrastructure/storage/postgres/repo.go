package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"networth/internal/application/port"
	"networth/internal/domain/model"
)

// Repo mirrors committed snapshots into Postgres for reporting tools.
// It is a sink: the local SQLite store stays authoritative.
type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Name() string { return "postgres" }

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS snapshots (
  id TEXT PRIMARY KEY,
  taken_at TIMESTAMPTZ NOT NULL,
  reporting_currency TEXT NOT NULL,
  total NUMERIC NOT NULL,
  unrealized_pl NUMERIC NOT NULL DEFAULT 0,
  partial BOOLEAN NOT NULL,
  payload JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_taken ON snapshots(taken_at);

CREATE TABLE IF NOT EXISTS valuations (
  snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
  position INTEGER NOT NULL,
  holding_id TEXT NOT NULL,
  holding_version INTEGER NOT NULL,
  asset_class TEXT NOT NULL,
  symbol TEXT NOT NULL,
  value NUMERIC NOT NULL,
  cost_basis NUMERIC,
  unrealized_pl NUMERIC,
  status TEXT NOT NULL,
  PRIMARY KEY (snapshot_id, position)
);
`)
	return err
}

// Publish inserts the snapshot once; republishing the same id is a no-op.
func (r *Repo) Publish(ctx context.Context, s *model.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots(id, taken_at, reporting_currency, total, unrealized_pl, partial, payload)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		s.ID, s.TakenAt, s.ReportingCurrency, s.Total.String(), s.UnrealizedPL.String(), s.Partial, string(payload))
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", s.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tx.Commit()
	}

	for i, v := range s.Valuations {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO valuations(snapshot_id, position, holding_id, holding_version, asset_class, symbol,
				value, cost_basis, unrealized_pl, status)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			s.ID, i, v.HoldingID, v.HoldingVersion, string(v.AssetClass), v.Symbol,
			v.Value.String(), v.CostBasis, v.UnrealizedPL, string(v.Status))
		if err != nil {
			return fmt.Errorf("insert valuation %s/%d: %w", s.ID, i, err)
		}
	}
	return tx.Commit()
}

var _ port.Sink = (*Repo)(nil)
