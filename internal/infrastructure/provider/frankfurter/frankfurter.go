// Package frankfurter reads ECB reference rates from the Frankfurter API.
package frankfurter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/domain/model"
	"networth/internal/infrastructure/provider"
)

const Name = "frankfurter"

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

type latestResponse struct {
	Base  string                 `json:"base"`
	Date  string                 `json:"date"`
	Rates map[string]json.Number `json:"rates"`
}

func (s *Source) Rate(ctx context.Context, base, quote string) (model.FxRate, error) {
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)
	q := url.Values{}
	q.Set("from", base)
	q.Set("to", quote)

	var body latestResponse
	if err := s.client.GetJSON(ctx, s.baseURL+"/latest?"+q.Encode(), &body); err != nil {
		if provider.IsNotFound(err) {
			return model.FxRate{}, fmt.Errorf("frankfurter: %s/%s not quoted", base, quote)
		}
		return model.FxRate{}, err
	}
	n, ok := body.Rates[quote]
	if !ok {
		return model.FxRate{}, fmt.Errorf("frankfurter: %s/%s not quoted", base, quote)
	}
	rate, err := decimal.NewFromString(n.String())
	if err != nil {
		return model.FxRate{}, fmt.Errorf("frankfurter: bad rate %q: %w", n, err)
	}
	asOf, err := time.Parse(time.DateOnly, body.Date)
	if err != nil {
		asOf = time.Now().UTC()
	}
	return model.FxRate{Base: base, Quote: quote, Rate: rate, AsOf: asOf, Source: Name}, nil
}
