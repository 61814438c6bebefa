package yahoo

import (
	"networth/internal/application/port"
	"networth/internal/infrastructure/config"
	"networth/internal/infrastructure/provider"
)

func init() {
	provider.RegisterQuote(Name, func(cfg *config.Config) (port.QuoteSource, error) {
		c := cfg.Providers.Yahoo
		g := New(c.BaseURL, c.Timeout, c.RequestsPerMinute, c.PricePath, c.CurrencyPath)
		return provider.NewPerSymbol(g, c.Timeout, c.Concurrency), nil
	})
}
