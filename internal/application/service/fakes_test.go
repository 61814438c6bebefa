package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/application/port"
	"networth/internal/domain"
	"networth/internal/domain/model"
)

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeFx struct {
	name  string
	rates map[string]model.FxRate
	err   error
	calls atomic.Int32
}

func (f *fakeFx) Name() string { return f.name }

func (f *fakeFx) Rate(ctx context.Context, base, quote string) (model.FxRate, error) {
	f.calls.Add(1)
	if f.err != nil {
		return model.FxRate{}, f.err
	}
	r, ok := f.rates[base+quote]
	if !ok {
		return model.FxRate{}, errors.New("pair not quoted")
	}
	return r, nil
}

type memCache struct {
	mu    sync.Mutex
	rates map[string]model.FxRate
}

func newMemCache() *memCache { return &memCache{rates: make(map[string]model.FxRate)} }

func (c *memCache) GetRate(_ context.Context, base, quote string) (model.FxRate, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rates[base+quote]
	return r, ok, nil
}

func (c *memCache) PutRate(_ context.Context, r model.FxRate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[r.Base+r.Quote] = r
	return nil
}

// fakeQuotes serves fixed prices; symbols listed in fail are reported missing.
type fakeQuotes struct {
	name     string
	currency string
	prices   map[string]string
	fail     map[string]string
	err      error
	block    chan struct{}
	calls    atomic.Int32
}

func (f *fakeQuotes) Name() string { return f.name }

func (f *fakeQuotes) FetchQuotes(ctx context.Context, symbols []string, currency string) (port.QuoteResult, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return port.QuoteResult{}, ctx.Err()
		}
	}
	if f.err != nil {
		return port.QuoteResult{}, f.err
	}
	res := port.NewQuoteResult()
	for _, s := range symbols {
		if reason, ok := f.fail[s]; ok {
			res.Missing[s] = reason
			continue
		}
		p, ok := f.prices[s]
		if !ok {
			res.Missing[s] = "unknown symbol"
			continue
		}
		cur := currency
		if f.currency != "" {
			cur = f.currency
		}
		res.Quotes[s] = model.Quote{Symbol: s, Currency: cur, Price: dec(p), AsOf: testNow, Source: f.name}
	}
	return res, nil
}

var errDown = errors.Join(domain.ErrSourceUnavailable, errors.New("connection refused"))
