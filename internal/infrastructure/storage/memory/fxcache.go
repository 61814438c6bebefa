package memory

import (
	"context"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"

	"networth/internal/application/port"
	"networth/internal/domain/model"
)

// FxCache keeps recently used rates in process and falls through to a
// durable cache. Writes go to the durable cache first.
type FxCache struct {
	c       *ristretto.Cache
	ttl     time.Duration
	backing port.FxCache
}

// NewFxCache sizes the cache by entry count; each rate costs 1.
// backing may be nil for a process-local cache.
func NewFxCache(entries int64, ttl time.Duration, backing port.FxCache) (*FxCache, error) {
	if entries <= 0 {
		entries = 256
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: entries * 10,
		MaxCost:     entries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &FxCache{c: c, ttl: ttl, backing: backing}, nil
}

func pairKey(base, quote string) string {
	return base + "/" + quote
}

func (f *FxCache) GetRate(ctx context.Context, base, quote string) (model.FxRate, bool, error) {
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)
	if v, ok := f.c.Get(pairKey(base, quote)); ok {
		if r, ok := v.(model.FxRate); ok {
			return r, true, nil
		}
	}
	if f.backing == nil {
		return model.FxRate{}, false, nil
	}
	r, ok, err := f.backing.GetRate(ctx, base, quote)
	if err != nil || !ok {
		return r, ok, err
	}
	f.set(r)
	return r, true, nil
}

func (f *FxCache) PutRate(ctx context.Context, r model.FxRate) error {
	r.Base, r.Quote = strings.ToUpper(r.Base), strings.ToUpper(r.Quote)
	if f.backing != nil {
		if err := f.backing.PutRate(ctx, r); err != nil {
			return err
		}
	}
	f.set(r)
	return nil
}

func (f *FxCache) set(r model.FxRate) {
	f.c.SetWithTTL(pairKey(r.Base, r.Quote), r, 1, f.ttl)
	f.c.Wait()
}

func (f *FxCache) Close() { f.c.Close() }

var _ port.FxCache = (*FxCache)(nil)
