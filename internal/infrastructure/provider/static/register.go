package static

import (
	"networth/internal/application/port"
	"networth/internal/infrastructure/config"
	"networth/internal/infrastructure/provider"
)

func init() {
	provider.RegisterFx(Name, func(cfg *config.Config) (port.FxSource, error) {
		return New(cfg.Providers.Static.Rates)
	})
}
