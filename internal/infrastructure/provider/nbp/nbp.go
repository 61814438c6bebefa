// Package nbp reads mid rates published by the National Bank of Poland.
// Every rate is quoted against PLN; other pairs are crossed through PLN.
package nbp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/domain/model"
	"networth/internal/infrastructure/provider"
)

const (
	Name = "nbp"
	home = "PLN"
)

// tables are tried in order: A covers the majors, B the rest.
var tables = []string{"A", "B"}

type Source struct {
	client  *provider.Client
	baseURL string
}

func New(baseURL string, timeout time.Duration, perMinute int) *Source {
	return &Source{
		client:  provider.NewClient(Name, timeout, perMinute),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *Source) Name() string { return Name }

type ratesResponse struct {
	Table string `json:"table"`
	Code  string `json:"code"`
	Rates []struct {
		No            string      `json:"no"`
		EffectiveDate string      `json:"effectiveDate"`
		Mid           json.Number `json:"mid"`
	} `json:"rates"`
}

func (s *Source) Rate(ctx context.Context, base, quote string) (model.FxRate, error) {
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)
	out := model.FxRate{Base: base, Quote: quote, Source: Name}

	switch {
	case base == quote:
		return model.Identity(base, time.Now()), nil
	case quote == home:
		mid, asOf, err := s.mid(ctx, base)
		if err != nil {
			return model.FxRate{}, err
		}
		out.Rate, out.AsOf = mid, asOf
	case base == home:
		mid, asOf, err := s.mid(ctx, quote)
		if err != nil {
			return model.FxRate{}, err
		}
		out.Rate, out.AsOf = decimal.NewFromInt(1).Div(mid), asOf
	default:
		b, bAt, err := s.mid(ctx, base)
		if err != nil {
			return model.FxRate{}, err
		}
		q, qAt, err := s.mid(ctx, quote)
		if err != nil {
			return model.FxRate{}, err
		}
		out.Rate = b.Div(q)
		out.AsOf = bAt
		if qAt.Before(bAt) {
			out.AsOf = qAt
		}
	}
	return out, nil
}

// mid returns how many PLN one unit of code is worth.
func (s *Source) mid(ctx context.Context, code string) (decimal.Decimal, time.Time, error) {
	for _, table := range tables {
		var body ratesResponse
		url := fmt.Sprintf("%s/exchangerates/rates/%s/%s/?format=json", s.baseURL, table, strings.ToLower(code))
		err := s.client.GetJSON(ctx, url, &body)
		if provider.IsNotFound(err) {
			continue
		}
		if err != nil {
			return decimal.Zero, time.Time{}, err
		}
		if len(body.Rates) == 0 {
			continue
		}
		r := body.Rates[len(body.Rates)-1]
		mid, err := decimal.NewFromString(r.Mid.String())
		if err != nil {
			return decimal.Zero, time.Time{}, fmt.Errorf("nbp: bad mid %q for %s: %w", r.Mid, code, err)
		}
		if !mid.IsPositive() {
			return decimal.Zero, time.Time{}, fmt.Errorf("nbp: non-positive mid %s for %s", mid, code)
		}
		asOf, err := time.Parse(time.DateOnly, r.EffectiveDate)
		if err != nil {
			asOf = time.Now().UTC()
		}
		return mid, asOf, nil
	}
	return decimal.Zero, time.Time{}, fmt.Errorf("nbp: %s not published in tables %s", code, strings.Join(tables, ", "))
}
