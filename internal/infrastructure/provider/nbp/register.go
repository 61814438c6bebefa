package nbp

import (
	"networth/internal/application/port"
	"networth/internal/infrastructure/config"
	"networth/internal/infrastructure/provider"
)

func init() {
	provider.RegisterFx(Name, func(cfg *config.Config) (port.FxSource, error) {
		c := cfg.Providers.NBP
		return New(c.BaseURL, c.Timeout, c.RequestsPerMinute), nil
	})
}
