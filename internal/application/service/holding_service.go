package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"networth/internal/application/port"
	"networth/internal/domain"
	"networth/internal/domain/model"
	domainservice "networth/internal/domain/service"
)

// HoldingPatch carries the fields an edit changes. Nil fields keep the
// current value.
type HoldingPatch struct {
	AssetClass  *model.AssetClass  `json:"asset_class,omitempty"`
	Symbol      *string            `json:"symbol,omitempty"`
	Name        *string            `json:"name,omitempty"`
	Quantity    *decimal.Decimal   `json:"quantity,omitempty"`
	Currency    *string            `json:"currency,omitempty"`
	Acquisition *model.Acquisition `json:"acquisition,omitempty"`
	Bond        *model.BondMeta    `json:"bond,omitempty"`
}

// HoldingService is the validated write path for manual entries.
type HoldingService struct {
	repo  port.HoldingRepository
	now   func() time.Time
	newID func() string
}

func NewHoldingService(repo port.HoldingRepository) *HoldingService {
	return &HoldingService{repo: repo, now: time.Now, newID: uuid.NewString}
}

// Add validates h and stores it as version 1 of a new holding.
func (s *HoldingService) Add(ctx context.Context, h model.Holding) (*model.Holding, error) {
	domainservice.NormalizeHolding(&h)
	if err := domainservice.ValidateHolding(h); err != nil {
		return nil, err
	}
	h.ID = s.newID()
	h.Version = 0
	h.Archived = false
	h.CreatedAt = s.now().UTC()
	if err := s.repo.AppendHolding(ctx, &h); err != nil {
		return nil, fmt.Errorf("add holding: %w", err)
	}
	log.Info().Str("id", h.ID).Str("symbol", h.Symbol).Str("class", string(h.AssetClass)).Msg("holding added")
	return &h, nil
}

// Edit appends a new version of id with patch applied.
func (s *HoldingService) Edit(ctx context.Context, id string, patch HoldingPatch) (*model.Holding, error) {
	cur, err := s.repo.GetHolding(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Archived {
		return nil, fmt.Errorf("%w: holding %s is archived", domain.ErrInvalidHolding, id)
	}

	next := *cur
	if patch.AssetClass != nil {
		next.AssetClass = *patch.AssetClass
	}
	if patch.Symbol != nil {
		next.Symbol = *patch.Symbol
	}
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.Quantity != nil {
		next.Quantity = *patch.Quantity
	}
	if patch.Currency != nil {
		next.Currency = *patch.Currency
	}
	if patch.Acquisition != nil {
		next.Acquisition = patch.Acquisition
	}
	if patch.Bond != nil {
		next.Bond = patch.Bond
	}

	domainservice.NormalizeHolding(&next)
	if err := domainservice.ValidateHolding(next); err != nil {
		return nil, err
	}
	return s.appendVersion(ctx, next, "holding edited")
}

// Archive appends an archived version. Archived holdings are skipped by
// refreshes but remain referenced by older snapshots.
func (s *HoldingService) Archive(ctx context.Context, id string) (*model.Holding, error) {
	cur, err := s.repo.GetHolding(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Archived {
		return cur, nil
	}
	next := *cur
	next.Archived = true
	return s.appendVersion(ctx, next, "holding archived")
}

func (s *HoldingService) Get(ctx context.Context, id string) (*model.Holding, error) {
	return s.repo.GetHolding(ctx, id)
}

func (s *HoldingService) List(ctx context.Context, includeArchived bool) ([]model.Holding, error) {
	return s.repo.ListHoldings(ctx, includeArchived)
}

func (s *HoldingService) appendVersion(ctx context.Context, h model.Holding, msg string) (*model.Holding, error) {
	prev := h.Version
	h.CreatedAt = s.now().UTC()
	if err := s.repo.AppendHolding(ctx, &h); err != nil {
		return nil, fmt.Errorf("append holding %s: %w", h.ID, err)
	}
	log.Info().Str("id", h.ID).Int("from", prev).Int("to", h.Version).Msg(msg)
	return &h, nil
}
