package service

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth/internal/domain"
	"networth/internal/domain/model"
)

type memHoldings struct {
	mu       sync.Mutex
	versions map[string][]model.Holding
}

func newMemHoldings() *memHoldings { return &memHoldings{versions: make(map[string][]model.Holding)} }

func (m *memHoldings) AppendHolding(_ context.Context, h *model.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.Version = len(m.versions[h.ID]) + 1
	m.versions[h.ID] = append(m.versions[h.ID], *h)
	return nil
}

func (m *memHoldings) GetHolding(_ context.Context, id string) (*model.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs := m.versions[id]
	if len(vs) == 0 {
		return nil, domain.ErrHoldingNotFound
	}
	h := vs[len(vs)-1]
	return &h, nil
}

func (m *memHoldings) ListHoldings(_ context.Context, includeArchived bool) ([]model.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Holding
	for _, vs := range m.versions {
		h := vs[len(vs)-1]
		if h.Archived && !includeArchived {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func TestHoldingAddNormalizesAndValidates(t *testing.T) {
	svc := NewHoldingService(newMemHoldings())

	h, err := svc.Add(context.Background(), model.Holding{AssetClass: "Stock", Symbol: " aapl", Quantity: dec("3"), Currency: "usd"})
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID)
	assert.Equal(t, 1, h.Version)
	assert.Equal(t, "AAPL", h.Symbol)
	assert.Equal(t, "USD", h.Currency)

	_, err = svc.Add(context.Background(), model.Holding{AssetClass: "stock", Symbol: "AAPL", Quantity: dec("-1"), Currency: "USD"})
	assert.ErrorIs(t, err, domain.ErrInvalidHolding)
}

func TestHoldingEditAppendsVersion(t *testing.T) {
	repo := newMemHoldings()
	svc := NewHoldingService(repo)
	h, err := svc.Add(context.Background(), model.Holding{AssetClass: "crypto", Symbol: "BTC", Quantity: dec("1"), Currency: "PLN"})
	require.NoError(t, err)

	qty := dec("1.5")
	edited, err := svc.Edit(context.Background(), h.ID, HoldingPatch{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 2, edited.Version)
	assert.True(t, edited.Quantity.Equal(qty))
	assert.True(t, repo.versions[h.ID][0].Quantity.Equal(dec("1")), "version 1 is never rewritten")

	bad := dec("0")
	_, err = svc.Edit(context.Background(), h.ID, HoldingPatch{Quantity: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidHolding)
	assert.Len(t, repo.versions[h.ID], 2)

	_, err = svc.Edit(context.Background(), "nope", HoldingPatch{Quantity: &qty})
	assert.ErrorIs(t, err, domain.ErrHoldingNotFound)
}

func TestHoldingArchive(t *testing.T) {
	svc := NewHoldingService(newMemHoldings())
	h, err := svc.Add(context.Background(), model.Holding{AssetClass: "cash", Quantity: dec("100"), Currency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, "EUR", h.Symbol)

	archived, err := svc.Archive(context.Background(), h.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)
	assert.Equal(t, 2, archived.Version)

	again, err := svc.Archive(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Version, "archiving twice adds no version")

	active, _ := svc.List(context.Background(), false)
	assert.Empty(t, active)
	all, _ := svc.List(context.Background(), true)
	assert.Len(t, all, 1)

	qty := dec("5")
	_, err = svc.Edit(context.Background(), h.ID, HoldingPatch{Quantity: &qty})
	assert.ErrorIs(t, err, domain.ErrInvalidHolding)
}
