package port

import (
	"context"
	"time"

	"networth/internal/domain/model"
)

// HoldingRepository stores holdings as append-only versions.
type HoldingRepository interface {
	// AppendHolding writes a new version; the repository assigns Version.
	AppendHolding(ctx context.Context, h *model.Holding) error
	// GetHolding returns the latest version of id.
	GetHolding(ctx context.Context, id string) (*model.Holding, error)
	// ListHoldings returns the latest version of every holding.
	ListHoldings(ctx context.Context, includeArchived bool) ([]model.Holding, error)
}

// HistoryQuery filters History. Zero values mean unbounded; bounds are inclusive.
type HistoryQuery struct {
	Category model.AssetClass
	Since    time.Time
	Until    time.Time
}

// SnapshotRepository is append-only: there is no update or delete path.
type SnapshotRepository interface {
	Append(ctx context.Context, s *model.Snapshot) (string, error)
	// Latest returns nil, nil on an empty store.
	Latest(ctx context.Context) (*model.Snapshot, error)
	// History returns snapshots ordered by TakenAt, most recent last.
	History(ctx context.Context, q HistoryQuery) ([]*model.Snapshot, error)
}

// FxCache keeps the last known rate per pair.
type FxCache interface {
	GetRate(ctx context.Context, base, quote string) (model.FxRate, bool, error)
	PutRate(ctx context.Context, r model.FxRate) error
}

// Store is the full local persistence surface.
type Store interface {
	HoldingRepository
	SnapshotRepository
	FxCache
	Close() error
}
