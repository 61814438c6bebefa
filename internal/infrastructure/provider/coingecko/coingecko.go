// Package coingecko prices crypto holdings through the CoinGecko REST API.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"networth/internal/application/port"
	"networth/internal/domain/model"
	"networth/internal/infrastructure/provider"
)

const Name = "coingecko"

// knownIDs maps the most common tickers to CoinGecko coin ids.
var knownIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"USDT":  "tether",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"USDC":  "usd-coin",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"TRX":   "tron",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"LTC":   "litecoin",
	"SHIB":  "shiba-inu",
	"AVAX":  "avalanche-2",
}

// searchConcurrency bounds parallel /search lookups within one call.
const searchConcurrency = 4

type Source struct {
	client  *provider.Client
	baseURL string
	timeout time.Duration
	ids     map[string]string
	// resolved memoizes /search lookups, including misses as "".
	resolved *lru.Cache[string, string]
	now      func() time.Time
}

func New(baseURL, apiKey string, timeout time.Duration, perMinute int, extraIDs map[string]string, cacheSize int) (*Source, error) {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	memo, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(knownIDs)+len(extraIDs))
	for k, v := range knownIDs {
		ids[k] = v
	}
	for k, v := range extraIDs {
		ids[strings.ToUpper(k)] = v
	}

	client := provider.NewClient(Name, timeout, perMinute)
	if apiKey != "" {
		client.SetHeader("x-cg-demo-api-key", apiKey)
	}
	return &Source{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  timeout,
		ids:      ids,
		resolved: memo,
		now:      time.Now,
	}, nil
}

func (s *Source) Name() string { return Name }

// FetchQuotes prices every symbol under one deadline. Tickers with a known
// coin id are priced right away; the rest are looked up through /search in
// parallel and priced with a second /simple/price call. Symbols still
// unresolved when the deadline fires are missing with a timeout reason.
func (s *Source) FetchQuotes(ctx context.Context, symbols []string, currency string) (port.QuoteResult, error) {
	res := port.NewQuoteResult()
	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	known := make(map[string][]string)
	var unknown []string
	for _, sym := range symbols {
		id, ok := s.lookup(sym)
		switch {
		case !ok:
			unknown = append(unknown, sym)
		case id == "":
			res.Missing[sym] = "coingecko: unknown coin " + sym
		default:
			known[id] = append(known[id], sym)
		}
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	merge := func(part port.QuoteResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		for k, v := range part.Quotes {
			res.Quotes[k] = v
		}
		for k, v := range part.Missing {
			res.Missing[k] = v
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	g := new(errgroup.Group)
	if len(known) > 0 {
		g.Go(func() error {
			merge(s.price(callCtx, known, currency))
			return nil
		})
	}
	if len(unknown) > 0 {
		g.Go(func() error {
			found, misses := s.resolve(callCtx, unknown)
			part := port.NewQuoteResult()
			for sym, reason := range misses {
				part.Missing[sym] = reason
			}
			merge(part, nil)
			if len(found) > 0 {
				merge(s.price(callCtx, found, currency))
			}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	if callCtx.Err() != nil {
		res.MissAll(symbols, fmt.Sprintf("coingecko: timed out after %s", s.timeout))
		return res, nil
	}
	if len(errs) > 0 && len(res.Quotes) == 0 {
		return res, errors.Join(errs...)
	}
	return res, nil
}

// price runs one /simple/price call for the given coin ids. When it fails
// before the deadline, its symbols are missing with the call error.
func (s *Source) price(ctx context.Context, byID map[string][]string, currency string) (port.QuoteResult, error) {
	res := port.NewQuoteResult()
	vs := strings.ToLower(currency)

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", vs)
	q.Set("include_last_updated_at", "true")

	var body map[string]map[string]json.Number
	if err := s.client.GetJSON(ctx, s.baseURL+"/simple/price?"+q.Encode(), &body); err != nil {
		if ctx.Err() != nil {
			// left to the caller's timeout accounting
			return res, nil
		}
		for _, syms := range byID {
			for _, sym := range syms {
				res.Missing[sym] = err.Error()
			}
		}
		return res, err
	}

	for id, syms := range byID {
		prices, ok := body[id]
		price, err := decimal.Zero, error(nil)
		if ok {
			if n, has := prices[vs]; has {
				price, err = decimal.NewFromString(n.String())
			} else {
				ok = false
			}
		}
		for _, sym := range syms {
			switch {
			case !ok:
				res.Missing[sym] = fmt.Sprintf("coingecko: no %s price for %s", currency, id)
			case err != nil:
				res.Missing[sym] = fmt.Sprintf("coingecko: bad price for %s: %v", id, err)
			default:
				res.Quotes[sym] = model.Quote{
					Symbol:   sym,
					Currency: strings.ToUpper(currency),
					Price:    price,
					AsOf:     s.asOf(prices),
					Source:   Name,
				}
			}
		}
	}
	return res, nil
}

func (s *Source) asOf(prices map[string]json.Number) time.Time {
	if n, ok := prices["last_updated_at"]; ok {
		if sec, err := n.Int64(); err == nil && sec > 0 {
			return time.Unix(sec, 0).UTC()
		}
	}
	return s.now().UTC()
}

// lookup answers from the static table and the memo without any request.
// A memoized miss comes back as "", true.
func (s *Source) lookup(symbol string) (string, bool) {
	sym := strings.ToUpper(symbol)
	if id, ok := s.ids[sym]; ok {
		return id, true
	}
	return s.resolved.Get(sym)
}

// resolve looks up unknown tickers concurrently. Lookups cut short by the
// deadline are neither memoized nor reported; the caller times them out.
func (s *Source) resolve(ctx context.Context, symbols []string) (map[string][]string, map[string]string) {
	var mu sync.Mutex
	found := make(map[string][]string)
	misses := make(map[string]string)

	g := new(errgroup.Group)
	g.SetLimit(searchConcurrency)
	for _, sym := range symbols {
		g.Go(func() error {
			id, ok := s.coinID(ctx, sym)
			if !ok {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			if id == "" {
				misses[sym] = "coingecko: unknown coin " + sym
				return nil
			}
			found[id] = append(found[id], sym)
			return nil
		})
	}
	_ = g.Wait()
	return found, misses
}

// coinID resolves a ticker: the static table first, then a memoized
// /search lookup. A failed search falls back to the lower-cased ticker.
// ok is false when ctx expired before an answer.
func (s *Source) coinID(ctx context.Context, symbol string) (string, bool) {
	if id, ok := s.lookup(symbol); ok {
		return id, true
	}
	if ctx.Err() != nil {
		return "", false
	}
	sym := strings.ToUpper(symbol)

	id, err := s.search(ctx, sym)
	if err != nil {
		if ctx.Err() != nil {
			return "", false
		}
		log.Warn().Str("symbol", sym).Err(err).Msg("coingecko search failed")
		return strings.ToLower(sym), true
	}
	s.resolved.Add(sym, id)
	return id, true
}

type searchResponse struct {
	Coins []struct {
		ID     string `json:"id"`
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	} `json:"coins"`
}

func (s *Source) search(ctx context.Context, symbol string) (string, error) {
	var body searchResponse
	if err := s.client.GetJSON(ctx, s.baseURL+"/search?query="+url.QueryEscape(symbol), &body); err != nil {
		return "", err
	}
	for _, c := range body.Coins {
		if strings.EqualFold(c.Symbol, symbol) {
			return c.ID, nil
		}
	}
	return "", nil
}
