package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"networth/internal/application/port"
	"networth/internal/domain"
	"networth/internal/domain/model"
	domainservice "networth/internal/domain/service"
)

type staticHoldings []model.Holding

func (s staticHoldings) AppendHolding(context.Context, *model.Holding) error { return nil }
func (s staticHoldings) GetHolding(context.Context, string) (*model.Holding, error) {
	return nil, domain.ErrHoldingNotFound
}
func (s staticHoldings) ListHoldings(context.Context, bool) ([]model.Holding, error) {
	return s, nil
}

type memSnapshots struct {
	mu    sync.Mutex
	snaps []*model.Snapshot
	err   error
}

func (m *memSnapshots) Append(ctx context.Context, s *model.Snapshot) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps = append(m.snaps, s)
	return s.ID, nil
}

func (m *memSnapshots) Latest(context.Context) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snaps) == 0 {
		return nil, nil
	}
	return m.snaps[len(m.snaps)-1], nil
}

func (m *memSnapshots) History(context.Context, port.HistoryQuery) ([]*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Snapshot(nil), m.snaps...), nil
}

// gateEngine blocks Fetch until release is closed, or ctx is done.
type gateEngine struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	calls   int
}

func newGateEngine() *gateEngine {
	return &gateEngine{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gateEngine) Fetch(ctx context.Context, _ []model.Holding) (domainservice.MarketData, error) {
	g.calls++
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return domainservice.NewMarketData(), nil
	case <-ctx.Done():
		return domainservice.NewMarketData(), ctx.Err()
	}
}

func (g *gateEngine) Value(holdings []model.Holding, md domainservice.MarketData) *model.Snapshot {
	return domainservice.NewValuer("PLN").Value("snap-"+time.Now().Format("150405.000000000"), holdings, md, time.Now())
}

type mockSink struct{ mock.Mock }

func (m *mockSink) Name() string { return "mock" }

func (m *mockSink) Publish(ctx context.Context, s *model.Snapshot) error {
	return m.Called(s.ID).Error(0)
}

func cash() staticHoldings {
	return staticHoldings{{ID: "c", Version: 1, AssetClass: model.AssetCash, Symbol: "PLN", Quantity: decimal.NewFromInt(1000), Currency: "PLN"}}
}

func openEngine() *gateEngine {
	g := newGateEngine()
	close(g.release)
	return g
}

func TestRefreshCommitsOneSnapshot(t *testing.T) {
	store := &memSnapshots{}
	sink := &mockSink{}
	sink.On("Publish", mock.Anything).Return(nil).Once()
	svc := NewService(ServiceDeps{Holdings: cash(), Snapshots: store, Engine: openEngine(), Sinks: []port.Sink{sink}})

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Total.Equal(decimal.NewFromInt(1000)))
	assert.Len(t, store.snaps, 1)
	sink.AssertExpectations(t)

	st := svc.Status()
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, snap.ID, st.LastSnapshotID)
	assert.Equal(t, "complete", st.LastOutcome)
}

func TestRefreshRejectsConcurrentRequest(t *testing.T) {
	store := &memSnapshots{}
	engine := newGateEngine()
	svc := NewService(ServiceDeps{Holdings: cash(), Snapshots: store, Engine: engine})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(context.Background())
		done <- err
	}()
	<-engine.entered
	assert.Equal(t, StateFetching, svc.Status().State)

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrRefreshInProgress)

	close(engine.release)
	require.NoError(t, <-done)
	assert.Len(t, store.snaps, 1, "the rejected request must not append")
	assert.Equal(t, 1, engine.calls)
}

func TestRefreshCancelledBeforeCommit(t *testing.T) {
	store := &memSnapshots{}
	engine := newGateEngine()
	svc := NewService(ServiceDeps{Holdings: cash(), Snapshots: store, Engine: engine})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-engine.entered
		cancel()
	}()
	_, err := svc.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.snaps)
	assert.Equal(t, StateIdle, svc.Status().State)
	assert.Equal(t, "cancelled", svc.Status().LastOutcome)
}

func TestRefreshStoreFailureKeepsPreviousLatest(t *testing.T) {
	store := &memSnapshots{}
	svc := NewService(ServiceDeps{Holdings: cash(), Snapshots: store, Engine: openEngine()})
	first, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	store.err = errors.New("disk full")
	_, err = svc.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreWriteFailure)

	latest, _ := store.Latest(context.Background())
	assert.Equal(t, first.ID, latest.ID)
	assert.Equal(t, StateFailed, svc.Status().State)
	assert.Equal(t, first.ID, svc.Status().LastSnapshotID)

	store.err = nil
	_, err = svc.Refresh(context.Background())
	assert.NoError(t, err, "a failed cycle does not block the next one")
}

func TestRefreshWithoutHoldingsFails(t *testing.T) {
	svc := NewService(ServiceDeps{Holdings: staticHoldings{}, Snapshots: &memSnapshots{}, Engine: openEngine()})

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoHoldings)
	assert.Equal(t, StateFailed, svc.Status().State)
}

func TestRefreshSinkFailureDoesNotUndoCommit(t *testing.T) {
	store := &memSnapshots{}
	sink := &mockSink{}
	sink.On("Publish", mock.Anything).Return(errors.New("redis down"))
	svc := NewService(ServiceDeps{Holdings: cash(), Snapshots: store, Engine: openEngine(), Sinks: []port.Sink{sink}})

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, store.snaps, 1)
}

func TestHistoryIsMonotonic(t *testing.T) {
	store := &memSnapshots{}
	svc := NewService(ServiceDeps{Holdings: cash(), Snapshots: store, Engine: openEngine()})
	for i := 0; i < 3; i++ {
		_, err := svc.Refresh(context.Background())
		require.NoError(t, err)
	}

	hist, _ := store.History(context.Background(), port.HistoryQuery{})
	require.Len(t, hist, 3)
	for i := 1; i < len(hist); i++ {
		assert.False(t, hist[i].TakenAt.Before(hist[i-1].TakenAt))
	}
	assert.Equal(t, 3, svc.Status().Completed)
}
