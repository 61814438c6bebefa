// Package binance prices crypto holdings from a short-lived Binance
// websocket subscription to the miniTicker streams.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"networth/internal/application/port"
	"networth/internal/domain"
	"networth/internal/domain/model"
	"networth/internal/metrics"
)

const Name = "binance"

// Source takes one snapshot per call: it subscribes, waits for one tick per
// symbol or the timeout, and disconnects.
type Source struct {
	wsURL      string
	timeout    time.Duration
	quoteAsset string
	currency   string
	dialer     *websocket.Dialer
}

// New prices every symbol against quoteAsset and reports the price in
// currency, e.g. BTCUSDT treated as USD.
func New(wsURL string, timeout time.Duration, quoteAsset, currency string) *Source {
	return &Source{
		wsURL:      strings.TrimSpace(wsURL),
		timeout:    timeout,
		quoteAsset: strings.ToUpper(quoteAsset),
		currency:   strings.ToUpper(currency),
		dialer:     websocket.DefaultDialer,
	}
}

func (s *Source) Name() string { return Name }

type combined struct {
	Stream string  `json:"stream"`
	Data   miniMsg `json:"data"`
}

type miniMsg struct {
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

func (s *Source) FetchQuotes(ctx context.Context, symbols []string, _ string) (port.QuoteResult, error) {
	res := port.NewQuoteResult()

	// pair -> holding symbol
	pairs := make(map[string]string, len(symbols))
	for _, sym := range symbols {
		if strings.EqualFold(sym, s.quoteAsset) {
			res.Quotes[sym] = model.Quote{Symbol: sym, Currency: s.currency, Price: decimal.NewFromInt(1), AsOf: time.Now().UTC(), Source: Name}
			continue
		}
		pairs[strings.ToUpper(sym)+s.quoteAsset] = sym
	}
	if len(pairs) == 0 {
		return res, nil
	}

	streams := make([]string, 0, len(pairs))
	for p := range pairs {
		streams = append(streams, p)
	}
	wsURL, err := buildCombinedURL(s.wsURL, streams)
	if err != nil {
		return res, err
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, _, err := s.dialer.DialContext(cctx, wsURL, nil)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(Name, "error").Inc()
		return res, fmt.Errorf("%w: binance: dial: %w", domain.ErrSourceUnavailable, err)
	}
	defer conn.Close()
	metrics.ProviderRequests.WithLabelValues(Name, "ok").Inc()

	var (
		mu     sync.Mutex
		closed bool
	)
	err = readLoop(cctx, conn, func(b []byte) bool {
		var msg combined
		if e := json.Unmarshal(b, &msg); e != nil {
			log.Debug().Str("source", Name).Err(e).Msg("skip undecodable message")
			return false
		}
		sym, ok := pairs[strings.ToUpper(msg.Data.Symbol)]
		if !ok {
			return false
		}
		price, e := decimal.NewFromString(strings.TrimSpace(msg.Data.Close))
		if e != nil {
			return false
		}
		asOf := time.Now().UTC()
		if msg.Data.EventTime > 0 {
			asOf = time.UnixMilli(msg.Data.EventTime).UTC()
		}

		mu.Lock()
		defer mu.Unlock()
		if closed {
			return true
		}
		res.Quotes[sym] = model.Quote{Symbol: sym, Currency: s.currency, Price: price, AsOf: asOf, Source: Name}
		return len(res.Quotes) == len(symbols)
	})
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	mu.Lock()
	closed = true
	mu.Unlock()

	reason := "binance: no tick before timeout"
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		reason = "binance: " + err.Error()
	}
	res.MissAll(symbols, reason)
	return res, ctx.Err()
}

func buildCombinedURL(base string, pairs []string) (string, error) {
	if base == "" {
		return "", errors.New("binance ws_url empty")
	}
	streams := make([]string, 0, len(pairs))
	for _, p := range pairs {
		streams = append(streams, strings.ToLower(p)+"@miniTicker")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

// readLoop feeds messages to onMsg until it returns true, ctx ends or the
// connection fails. A nil return means onMsg reported completion.
func readLoop(ctx context.Context, conn *websocket.Conn, onMsg func([]byte) bool) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(dl)
	}

	pingTicker := time.NewTicker(25 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			if onMsg(b) {
				errCh <- nil
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}
