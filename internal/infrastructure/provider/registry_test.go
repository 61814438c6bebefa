package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth/internal/domain/model"
	"networth/internal/infrastructure/config"
	"networth/internal/infrastructure/provider"
	_ "networth/internal/infrastructure/provider/binance"
	_ "networth/internal/infrastructure/provider/coingecko"
	_ "networth/internal/infrastructure/provider/frankfurter"
	_ "networth/internal/infrastructure/provider/nbp"
	_ "networth/internal/infrastructure/provider/static"
	_ "networth/internal/infrastructure/provider/yahoo"
)

func TestBuildFromDefaults(t *testing.T) {
	cfg := config.Default()

	sources, err := provider.QuoteSources(cfg)
	require.NoError(t, err)
	assert.Equal(t, "coingecko", sources[model.AssetCrypto].Name())
	assert.Equal(t, "yahoo", sources[model.AssetStock].Name())
	assert.Same(t, sources[model.AssetStock], sources[model.AssetETF], "one source instance per name")

	chain, err := provider.FxChain(cfg)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, "nbp", chain[0].Name())
	assert.Equal(t, "static", chain[2].Name())
}

func TestUnknownSource(t *testing.T) {
	cfg := config.Default()
	cfg.Routing = map[string]string{"crypto": "kraken"}
	_, err := provider.QuoteSources(cfg)
	assert.Error(t, err)
}

func TestRegistered(t *testing.T) {
	quotes, fx := provider.Registered()
	assert.Equal(t, []string{"binance", "coingecko", "yahoo"}, quotes)
	assert.Equal(t, []string{"frankfurter", "nbp", "static"}, fx)
}
