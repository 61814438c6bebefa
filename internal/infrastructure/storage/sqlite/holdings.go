package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"networth/internal/domain"
	"networth/internal/domain/model"
)

const holdingColumns = `id, version, asset_class, symbol, name, quantity, currency, acquisition, bond, archived, created_ms`

// AppendHolding stores h as the next version of h.ID and sets h.Version.
func (r *Repo) AppendHolding(ctx context.Context, h *model.Holding) error {
	acq, err := marshalOptional(h.Acquisition)
	if err != nil {
		return err
	}
	bond, err := marshalOptional(h.Bond)
	if err != nil {
		return err
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM holdings WHERE id = ?`, h.ID).Scan(&version); err != nil {
		return err
	}
	version++

	_, err = tx.ExecContext(ctx, `INSERT INTO holdings(`+holdingColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, version, string(h.AssetClass), h.Symbol, h.Name, h.Quantity, h.Currency, acq, bond, h.Archived, h.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert holding %s v%d: %w", h.ID, version, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	h.Version = version
	return nil
}

func (r *Repo) GetHolding(ctx context.Context, id string) (*model.Holding, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+holdingColumns+` FROM holdings WHERE id = ? ORDER BY version DESC LIMIT 1`, id)
	h, err := scanHolding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrHoldingNotFound, id)
	}
	return h, err
}

// GetHoldingVersion returns one exact version.
func (r *Repo) GetHoldingVersion(ctx context.Context, id string, version int) (*model.Holding, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+holdingColumns+` FROM holdings WHERE id = ? AND version = ?`, id, version)
	h, err := scanHolding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s v%d", domain.ErrHoldingNotFound, id, version)
	}
	return h, err
}

func (r *Repo) ListHoldings(ctx context.Context, includeArchived bool) ([]model.Holding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+holdingColumns+` FROM holdings h
		WHERE version = (SELECT MAX(version) FROM holdings WHERE id = h.id)
		  AND (? OR archived = 0)
		ORDER BY asset_class, symbol, id`, includeArchived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHolding(s scanner) (*model.Holding, error) {
	var (
		h         model.Holding
		class     string
		acq, bond sql.NullString
		createdMs int64
	)
	if err := s.Scan(&h.ID, &h.Version, &class, &h.Symbol, &h.Name, &h.Quantity, &h.Currency, &acq, &bond, &h.Archived, &createdMs); err != nil {
		return nil, err
	}
	h.AssetClass = model.AssetClass(class)
	h.CreatedAt = time.UnixMilli(createdMs).UTC()
	if acq.Valid {
		h.Acquisition = new(model.Acquisition)
		if err := json.Unmarshal([]byte(acq.String), h.Acquisition); err != nil {
			return nil, fmt.Errorf("holding %s acquisition: %w", h.ID, err)
		}
	}
	if bond.Valid {
		h.Bond = new(model.BondMeta)
		if err := json.Unmarshal([]byte(bond.String), h.Bond); err != nil {
			return nil, fmt.Errorf("holding %s bond: %w", h.ID, err)
		}
	}
	return &h, nil
}

func marshalOptional[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
