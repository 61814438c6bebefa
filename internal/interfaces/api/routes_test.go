package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth/internal/application/port"
	"networth/internal/application/service"
	"networth/internal/application/usecase/refresh"
	"networth/internal/domain"
	"networth/internal/domain/model"
	"networth/internal/infrastructure/export"
	sqliterepo "networth/internal/infrastructure/storage/sqlite"
)

var t0 = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type stubRefresher struct {
	snap *model.Snapshot
	err  error
}

func (s *stubRefresher) Refresh(context.Context) (*model.Snapshot, error) { return s.snap, s.err }

func (s *stubRefresher) Status() refresh.Status {
	return refresh.Status{State: refresh.StateIdle, Completed: 1}
}

type fixture struct {
	router    *gin.Engine
	repo      *sqliterepo.Repo
	refresher *stubRefresher
	exportDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo, err := sqliterepo.New(filepath.Join(t.TempDir(), "networth.db"), "PLN")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	f := &fixture{repo: repo, refresher: &stubRefresher{}, exportDir: t.TempDir()}
	f.router = SetupRouter(Deps{
		Snapshots: repo,
		Holdings:  service.NewHoldingService(repo),
		Export: service.NewExportService(repo, func(format string) (port.SnapshotWriter, error) {
			return export.NewWriter(format)
		}),
		Refresher: f.refresher,
		ExportDir: f.exportDir,
		Metrics:   true,
	})
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// seedCash stores version 1 of the holding cashSnapshot valuations cite.
func (f *fixture) seedCash(t *testing.T) {
	t.Helper()
	h := &model.Holding{ID: "cash", AssetClass: model.AssetCash, Symbol: "PLN", Quantity: decimal.NewFromInt(1), Currency: "PLN"}
	require.NoError(t, f.repo.AppendHolding(context.Background(), h))
}

func cashSnapshot(id string, at time.Time, value string) *model.Snapshot {
	v := decimal.RequireFromString(value)
	return model.NewSnapshot(id, at, "PLN", []model.Valuation{{
		HoldingID: "cash", HoldingVersion: 1, AssetClass: model.AssetCash, Symbol: "PLN",
		Quantity: v, NativeCurrency: "PLN", UnitPrice: decimal.NewFromInt(1), PriceCurrency: "PLN",
		Value: v, Rate: decimal.NewFromInt(1), RateSource: "identity", Status: model.StatusOK, ComputedAt: at,
	}})
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLatestEmptyAndPresent(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/snapshots/latest", "").Code)

	f.seedCash(t)
	_, err := f.repo.Append(context.Background(), cashSnapshot("s1", t0, "1000"))
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/api/snapshots/latest", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got model.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "s1", got.ID)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(1000)))
}

func TestHistoryFilters(t *testing.T) {
	f := newFixture(t)
	f.seedCash(t)
	ctx := context.Background()
	for i, v := range []string{"100", "200", "300"} {
		_, err := f.repo.Append(ctx, cashSnapshot("s"+v, t0.AddDate(0, 0, i), v))
		require.NoError(t, err)
	}

	w := f.do(http.MethodGet, "/api/snapshots?since=2026-03-03&until=2026-03-04", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Snapshots []model.Snapshot `json:"snapshots"`
		Count     int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "s200", body.Snapshots[0].ID)

	w = f.do(http.MethodGet, "/api/snapshots?category=crypto", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Count)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/snapshots?category=nft", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/snapshots?since=yesterday", "").Code)
}

func TestHoldingLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/holdings", `{"asset_class":"stock","symbol":"aapl","quantity":"3","currency":"usd"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created model.Holding
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "AAPL", created.Symbol)
	assert.Equal(t, 1, created.Version)

	w = f.do(http.MethodPut, "/api/holdings/"+created.ID, `{"quantity":"5"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var edited model.Holding
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &edited))
	assert.Equal(t, 2, edited.Version)
	assert.True(t, edited.Quantity.Equal(decimal.NewFromInt(5)))

	w = f.do(http.MethodDelete, "/api/holdings/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/holdings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)

	w = f.do(http.MethodGet, "/api/holdings?archived=true", "")
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestHoldingValidationErrors(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/holdings", `{"asset_class":"stock","symbol":"AAPL","quantity":"-1","currency":"USD"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/holdings", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, "/api/holdings/missing", `{"quantity":"1"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshStatusCodes(t *testing.T) {
	f := newFixture(t)

	f.refresher.snap = cashSnapshot("s1", t0, "10")
	w := f.do(http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusOK, w.Code)

	f.refresher.snap, f.refresher.err = nil, domain.ErrRefreshInProgress
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/refresh", "").Code)

	f.refresher.err = domain.ErrStoreWriteFailure
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodPost, "/api/refresh", "").Code)

	w = f.do(http.MethodGet, "/api/refresh/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"idle"`)
}

func TestExportStreamsAndCleansUp(t *testing.T) {
	f := newFixture(t)
	f.seedCash(t)
	_, err := f.repo.Append(context.Background(), cashSnapshot("s1", t0, "10"))
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/api/export?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "snapshot_id"))

	left, err := os.ReadDir(f.exportDir)
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/export?format=xlsx", "").Code)
}

func TestParseTime(t *testing.T) {
	end, err := ParseTime("2026-03-02", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 23, 59, 59, int(999*time.Millisecond), time.UTC), end)

	start, err := ParseTime("2026-03-02T10:00:00Z", false)
	require.NoError(t, err)
	assert.Equal(t, 10, start.Hour())

	zero, err := ParseTime("", false)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}
