package binance

import (
	"networth/internal/application/port"
	"networth/internal/infrastructure/config"
	"networth/internal/infrastructure/provider"
)

func init() {
	provider.RegisterQuote(Name, func(cfg *config.Config) (port.QuoteSource, error) {
		c := cfg.Providers.Binance
		return New(c.WsURL, c.Timeout, c.QuoteAsset, c.Currency), nil
	})
}
