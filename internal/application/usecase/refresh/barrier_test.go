package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth/internal/application/port"
	"networth/internal/application/service"
	"networth/internal/domain"
	"networth/internal/domain/model"
	domainservice "networth/internal/domain/service"
)

// branch blocks one fetch branch until release is closed and records when
// it has entered and returned.
type branch struct {
	entered  chan struct{}
	once     sync.Once
	release  <-chan struct{}
	returned atomic.Bool
}

func newBranch(release <-chan struct{}) *branch {
	return &branch{entered: make(chan struct{}), release: release}
}

func (b *branch) wait(ctx context.Context) error {
	b.once.Do(func() { close(b.entered) })
	defer b.returned.Store(true)
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type blockingQuotes struct{ *branch }

func (q blockingQuotes) Name() string { return "yahoo" }

func (q blockingQuotes) FetchQuotes(ctx context.Context, symbols []string, currency string) (port.QuoteResult, error) {
	res := port.NewQuoteResult()
	if err := q.wait(ctx); err != nil {
		return res, err
	}
	for _, s := range symbols {
		res.Quotes[s] = model.Quote{Symbol: s, Currency: currency, Price: decimal.NewFromInt(50), AsOf: time.Now(), Source: "yahoo"}
	}
	return res, nil
}

type blockingFx struct{ *branch }

func (f blockingFx) Name() string { return "nbp" }

func (f blockingFx) Rate(ctx context.Context, base, quote string) (model.FxRate, error) {
	if err := f.wait(ctx); err != nil {
		return model.FxRate{}, err
	}
	return model.FxRate{Base: base, Quote: quote, Rate: decimal.NewFromInt(4), AsOf: time.Now(), Source: "nbp"}, nil
}

// observedEngine records whether both branches had returned when Value ran.
type observedEngine struct {
	*service.ValuationService
	quotes, fx  *branch
	valued      atomic.Bool
	barrierHeld atomic.Bool
}

func (e *observedEngine) Value(holdings []model.Holding, md domainservice.MarketData) *model.Snapshot {
	e.barrierHeld.Store(e.quotes.returned.Load() && e.fx.returned.Load())
	e.valued.Store(true)
	return e.ValuationService.Value(holdings, md)
}

func TestRefreshJoinsFetchBranchesBeforeValuing(t *testing.T) {
	release := make(chan struct{})
	quotes, fx := newBranch(release), newBranch(release)

	conv := service.NewFxConverter("PLN", []port.FxSource{blockingFx{fx}}, nil, service.FxOptions{})
	engine := &observedEngine{
		ValuationService: service.NewValuationService(conv, map[model.AssetClass]port.QuoteSource{
			model.AssetStock: blockingQuotes{quotes},
		}),
		quotes: quotes,
		fx:     fx,
	}
	holdings := staticHoldings{
		{ID: "b", Version: 1, AssetClass: model.AssetStock, Symbol: "B", Quantity: decimal.NewFromInt(5), Currency: "USD"},
		{ID: "c", Version: 1, AssetClass: model.AssetCash, Symbol: "PLN", Quantity: decimal.NewFromInt(1000), Currency: "PLN"},
	}
	store := &memSnapshots{}
	svc := NewService(ServiceDeps{Holdings: holdings, Snapshots: store, Engine: engine})

	type result struct {
		snap *model.Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := svc.Refresh(context.Background())
		done <- result{snap, err}
	}()

	// Both branches must be in flight at once; a sequential fetch would
	// never enter the second one while the first is blocked.
	for _, b := range []*branch{quotes, fx} {
		select {
		case <-b.entered:
		case <-time.After(2 * time.Second):
			close(release)
			t.Fatal("fetch branches did not run concurrently")
		}
	}
	assert.Equal(t, StateFetching, svc.Status().State)
	assert.False(t, engine.valued.Load(), "valuation started before the fetch barrier")

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrRefreshInProgress)

	close(release)
	res := <-done
	require.NoError(t, res.err)
	assert.True(t, engine.barrierHeld.Load(), "Value ran before every branch returned")
	assert.True(t, res.snap.Total.Equal(decimal.NewFromInt(2000)), "total %s", res.snap.Total)
	assert.False(t, res.snap.Partial)
	assert.Len(t, store.snaps, 1)
}
