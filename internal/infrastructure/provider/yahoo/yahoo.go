// Package yahoo prices stocks and ETFs from the Yahoo Finance chart endpoint.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"networth/internal/domain"
	"networth/internal/infrastructure/provider"
)

const Name = "yahoo"

// Getter is a single-symbol price getter. Price and currency are read from
// the chart payload with configurable JSONPath expressions.
type Getter struct {
	client       *provider.Client
	baseURL      string
	pricePath    string
	currencyPath string
	timePath     string
}

func New(baseURL string, timeout time.Duration, perMinute int, pricePath, currencyPath string) *Getter {
	return &Getter{
		client:       provider.NewClient(Name, timeout, perMinute),
		baseURL:      strings.TrimRight(baseURL, "/"),
		pricePath:    pricePath,
		currencyPath: currencyPath,
		timePath:     "$.chart.result[0].meta.regularMarketTime",
	}
}

func (g *Getter) Name() string { return Name }

// GetPrice returns the last market price in the listing currency, which
// may differ from the requested one; the FX layer converts it.
func (g *Getter) GetPrice(ctx context.Context, symbol, _ string) (decimal.Decimal, string, time.Time, error) {
	addr := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", g.baseURL, url.PathEscape(symbol))
	body, err := g.client.Get(ctx, addr)
	if err != nil {
		if provider.IsNotFound(err) {
			return decimal.Zero, "", time.Time{}, fmt.Errorf("yahoo: unknown symbol %s", symbol)
		}
		return decimal.Zero, "", time.Time{}, err
	}

	var jobj any
	if err := json.Unmarshal(body, &jobj); err != nil {
		return decimal.Zero, "", time.Time{}, fmt.Errorf("%w: yahoo: decode %s: %w", domain.ErrSourceUnavailable, symbol, err)
	}

	pv, err := get(g.pricePath, jobj)
	if err != nil {
		return decimal.Zero, "", time.Time{}, fmt.Errorf("yahoo: no price for %s: %w", symbol, err)
	}
	price, err := toDecimal(pv)
	if err != nil {
		return decimal.Zero, "", time.Time{}, fmt.Errorf("yahoo: price for %s: %w", symbol, err)
	}

	var currency string
	if cv, err := get(g.currencyPath, jobj); err == nil {
		if raw, ok := cv.(string); ok {
			// London listings quote in pence.
			if raw == "GBp" {
				price = price.Div(decimal.NewFromInt(100))
			}
			currency = strings.ToUpper(raw)
		}
	}
	if currency == "" {
		return decimal.Zero, "", time.Time{}, fmt.Errorf("yahoo: no currency for %s", symbol)
	}

	asOf := time.Now().UTC()
	if tv, err := get(g.timePath, jobj); err == nil {
		if sec, ok := tv.(float64); ok && sec > 0 {
			asOf = time.Unix(int64(sec), 0).UTC()
		}
	}
	return price, currency, asOf, nil
}

// get evaluates path and keeps the first answer when jsonpath returns a list.
func get(path string, jobj any) (any, error) {
	v, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, errors.New("empty result")
		}
		v = list[0]
	}
	if v == nil {
		return nil, errors.New("null value")
	}
	return v, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), nil
	case string:
		return decimal.NewFromString(strings.ReplaceAll(x, ",", "."))
	default:
		return decimal.Zero, fmt.Errorf("not a number: %v", v)
	}
}
