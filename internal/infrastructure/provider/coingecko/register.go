package coingecko

import (
	"networth/internal/application/port"
	"networth/internal/infrastructure/config"
	"networth/internal/infrastructure/provider"
)

func init() {
	provider.RegisterQuote(Name, func(cfg *config.Config) (port.QuoteSource, error) {
		c := cfg.Providers.CoinGecko
		return New(c.BaseURL, c.APIKey, c.Timeout, c.RequestsPerMinute, c.IDs, c.CacheSize)
	})
}
