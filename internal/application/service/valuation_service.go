package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"networth/internal/application/port"
	"networth/internal/domain/model"
	domainservice "networth/internal/domain/service"
	"networth/internal/metrics"
)

// ValuationService fetches market data for a set of holdings and values them.
type ValuationService struct {
	sources map[model.AssetClass]port.QuoteSource
	fx      *FxConverter
	valuer  *domainservice.Valuer
	now     func() time.Time
	newID   func() string
}

// NewValuationService routes each asset class to one quote source. Classes
// without a source are valued as missing when they need a quote.
func NewValuationService(fx *FxConverter, sources map[model.AssetClass]port.QuoteSource) *ValuationService {
	return &ValuationService{
		sources: sources,
		fx:      fx,
		valuer:  domainservice.NewValuer(fx.ReportingCurrency()),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (s *ValuationService) ReportingCurrency() string { return s.fx.ReportingCurrency() }

// ComputeSnapshot fetches and values in one call. It only fails when ctx is
// cancelled; missing data degrades single holdings.
func (s *ValuationService) ComputeSnapshot(ctx context.Context, holdings []model.Holding) (*model.Snapshot, error) {
	md, err := s.Fetch(ctx, holdings)
	if err != nil {
		return nil, err
	}
	return s.Value(holdings, md), nil
}

// Value is the pure valuation step over already fetched data.
func (s *ValuationService) Value(holdings []model.Holding, md domainservice.MarketData) *model.Snapshot {
	return s.valuer.Value(s.newID(), holdings, md, s.now())
}

// Fetch runs one branch per (class, currency) quote group and one per FX
// currency concurrently, and returns once every branch returned or timed out.
func (s *ValuationService) Fetch(ctx context.Context, holdings []model.Holding) (domainservice.MarketData, error) {
	md := domainservice.NewMarketData()
	var mu sync.Mutex

	groups := make(map[model.GroupKey][]string)
	currencies := make(map[string]struct{})
	for _, h := range holdings {
		if h.Archived {
			continue
		}
		if h.AssetClass.NeedsQuote() {
			k := h.GroupKey()
			if !contains(groups[k], h.Symbol) {
				groups[k] = append(groups[k], h.Symbol)
			}
		}
		if h.Currency != s.fx.ReportingCurrency() {
			currencies[h.Currency] = struct{}{}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for key, symbols := range groups {
		sort.Strings(symbols)
		g.Go(func() error {
			res := s.fetchGroup(gctx, key, symbols)
			mu.Lock()
			defer mu.Unlock()
			for sym, q := range res.Quotes {
				md.Quotes[domainservice.QuoteKey{Class: key.Class, Symbol: sym, Currency: key.Currency}] = q
			}
			for sym, reason := range res.Missing {
				md.QuoteErrors[domainservice.QuoteKey{Class: key.Class, Symbol: sym, Currency: key.Currency}] = reason
			}
			return nil
		})
	}
	for cur := range currencies {
		g.Go(func() error {
			r, err := s.fx.ToReporting(gctx, cur)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				md.RateErrors[cur] = err.Error()
				return nil
			}
			md.Rates[cur] = r
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return md, err
	}

	// Quotes may come back in a currency other than the holding's.
	for _, q := range md.Quotes {
		cur := q.Currency
		if cur == "" || cur == s.fx.ReportingCurrency() {
			continue
		}
		if _, ok := md.Rates[cur]; ok {
			continue
		}
		if _, ok := md.RateErrors[cur]; ok {
			continue
		}
		r, err := s.fx.ToReporting(ctx, cur)
		if err != nil {
			md.RateErrors[cur] = err.Error()
			continue
		}
		md.Rates[cur] = r
	}
	return md, ctx.Err()
}

func (s *ValuationService) fetchGroup(ctx context.Context, key model.GroupKey, symbols []string) port.QuoteResult {
	src, ok := s.sources[key.Class]
	if !ok || src == nil {
		res := port.NewQuoteResult()
		res.MissAll(symbols, "no quote source configured for "+string(key.Class))
		return res
	}

	start := time.Now()
	res, err := src.FetchQuotes(ctx, symbols, key.Currency)
	if res.Quotes == nil {
		res = port.NewQuoteResult()
	}
	if err != nil {
		res.MissAll(symbols, err.Error())
	}
	metrics.QuotesMissing.WithLabelValues(src.Name()).Add(float64(len(res.Missing)))

	ev := log.Info()
	if res.Status() != port.ResultSuccess {
		ev = log.Warn()
	}
	ev.Str("source", src.Name()).
		Str("class", string(key.Class)).
		Str("currency", key.Currency).
		Int("symbols", len(symbols)).
		Int("resolved", len(res.Quotes)).
		Int("missing", len(res.Missing)).
		Str("status", res.Status().String()).
		Dur("took", time.Since(start)).
		Msg("quotes fetched")
	return res
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
