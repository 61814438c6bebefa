// Package static serves manually configured FX rates. It is meant to rank
// last in the chain, after every live source.
package static

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/domain/model"
)

const Name = "static"

type Source struct {
	rates map[string]decimal.Decimal
	now   func() time.Time
}

// New parses rates keyed "BASE/QUOTE".
func New(rates map[string]string) (*Source, error) {
	s := &Source{rates: make(map[string]decimal.Decimal, len(rates)), now: time.Now}
	for pair, v := range rates {
		base, quote, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(pair)), "/")
		if !ok {
			return nil, fmt.Errorf("static: bad pair %q", pair)
		}
		r, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("static: rate for %s: %w", pair, err)
		}
		if !r.IsPositive() {
			return nil, fmt.Errorf("static: rate for %s must be positive", pair)
		}
		s.rates[base+"/"+quote] = r
	}
	return s, nil
}

func (s *Source) Name() string { return Name }

// Rate serves a configured pair or the inverse of one.
func (s *Source) Rate(_ context.Context, base, quote string) (model.FxRate, error) {
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)
	out := model.FxRate{Base: base, Quote: quote, AsOf: s.now().UTC(), Source: Name}
	if r, ok := s.rates[base+"/"+quote]; ok {
		out.Rate = r
		return out, nil
	}
	if r, ok := s.rates[quote+"/"+base]; ok {
		out.Rate = decimal.NewFromInt(1).Div(r)
		return out, nil
	}
	return model.FxRate{}, fmt.Errorf("static: no rate configured for %s/%s", base, quote)
}
