package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"networth/internal/application/port"
	"networth/internal/domain/model"
)

// PerSymbol lifts a single-symbol PriceGetter into a batch QuoteSource.
// The whole batch shares one deadline; symbols unresolved when it fires
// are reported missing while resolved ones are kept.
type PerSymbol struct {
	getter      port.PriceGetter
	timeout     time.Duration
	concurrency int
}

func NewPerSymbol(g port.PriceGetter, timeout time.Duration, concurrency int) *PerSymbol {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &PerSymbol{getter: g, timeout: timeout, concurrency: concurrency}
}

func (p *PerSymbol) Name() string { return p.getter.Name() }

func (p *PerSymbol) FetchQuotes(ctx context.Context, symbols []string, currency string) (port.QuoteResult, error) {
	res := port.NewQuoteResult()
	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	for _, sym := range symbols {
		g.Go(func() error {
			if callCtx.Err() != nil {
				return nil
			}
			price, cur, asOf, err := p.getter.GetPrice(callCtx, sym, currency)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Missing[sym] = p.reason(callCtx, err)
				return nil
			}
			if cur == "" {
				cur = currency
			}
			if asOf.IsZero() {
				asOf = time.Now()
			}
			res.Quotes[sym] = model.Quote{Symbol: sym, Currency: cur, Price: price, AsOf: asOf, Source: p.getter.Name()}
			return nil
		})
	}
	_ = g.Wait()

	res.MissAll(symbols, fmt.Sprintf("%s: timed out after %s", p.Name(), p.timeout))
	return res, ctx.Err()
}

func (p *PerSymbol) reason(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("%s: timed out after %s", p.Name(), p.timeout)
	}
	return err.Error()
}
