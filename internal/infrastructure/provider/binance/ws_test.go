package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth/internal/domain"
)

func tickServer(t *testing.T, ticks ...string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stream", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, tick := range ticks {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tick)); err != nil {
				return
			}
		}
		// hold the connection until the client leaves
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestFetchQuotesSnapshot(t *testing.T) {
	srv := tickServer(t,
		`{"stream":"btcusdt@miniTicker","data":{"E":1772452800000,"s":"BTCUSDT","c":"65000.10"}}`,
		`{"stream":"ethusdt@miniTicker","data":{"E":1772452800000,"s":"ETHUSDT","c":"3400.5"}}`,
	)
	defer srv.Close()

	src := New(wsURL(srv), 2*time.Second, "usdt", "usd")
	res, err := src.FetchQuotes(context.Background(), []string{"BTC", "ETH", "USDT"}, "PLN")
	require.NoError(t, err)
	require.Empty(t, res.Missing)

	assert.Equal(t, "65000.1", res.Quotes["BTC"].Price.String())
	assert.Equal(t, "USD", res.Quotes["BTC"].Currency)
	assert.Equal(t, time.UnixMilli(1772452800000).UTC(), res.Quotes["ETH"].AsOf)
	assert.Equal(t, "1", res.Quotes["USDT"].Price.String())
}

func TestFetchQuotesTimeoutKeepsResolved(t *testing.T) {
	srv := tickServer(t, `{"stream":"btcusdt@miniTicker","data":{"s":"BTCUSDT","c":"65000"}}`)
	defer srv.Close()

	src := New(wsURL(srv), 300*time.Millisecond, "USDT", "USD")
	res, err := src.FetchQuotes(context.Background(), []string{"BTC", "DOGE"}, "USD")
	require.NoError(t, err)
	assert.Contains(t, res.Quotes, "BTC")
	assert.Contains(t, res.Missing["DOGE"], "no tick")
}

func TestFetchQuotesDialFailure(t *testing.T) {
	src := New("ws://127.0.0.1:1", 300*time.Millisecond, "USDT", "USD")
	_, err := src.FetchQuotes(context.Background(), []string{"BTC"}, "USD")
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
}

func TestBuildCombinedURL(t *testing.T) {
	u, err := buildCombinedURL("wss://stream.binance.com:9443", []string{"BTCUSDT"})
	require.NoError(t, err)
	assert.Equal(t, "wss://stream.binance.com:9443/stream?streams=btcusdt@miniTicker", u)
}
