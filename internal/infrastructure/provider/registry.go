package provider

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"networth/internal/application/port"
	"networth/internal/domain/model"
	"networth/internal/infrastructure/config"
)

// QuoteFactory builds a quote source from the full configuration.
type QuoteFactory func(cfg *config.Config) (port.QuoteSource, error)

// FxFactory builds an FX source from the full configuration.
type FxFactory func(cfg *config.Config) (port.FxSource, error)

var (
	quoteRegistry = make(map[string]QuoteFactory)
	fxRegistry    = make(map[string]FxFactory)
)

// RegisterQuote is called from the init of each adapter package.
func RegisterQuote(name string, factory QuoteFactory) {
	if factory == nil {
		log.Warn().Str("source", name).Msg("invalid quote source factory")
		return
	}
	if _, exists := quoteRegistry[name]; exists {
		log.Warn().Str("source", name).Msg("quote source factory already registered, overwriting")
	}
	quoteRegistry[name] = factory
}

// RegisterFx is called from the init of each adapter package.
func RegisterFx(name string, factory FxFactory) {
	if factory == nil {
		log.Warn().Str("source", name).Msg("invalid fx source factory")
		return
	}
	if _, exists := fxRegistry[name]; exists {
		log.Warn().Str("source", name).Msg("fx source factory already registered, overwriting")
	}
	fxRegistry[name] = factory
}

// Registered lists the names of every registered source.
func Registered() (quotes, fx []string) {
	for n := range quoteRegistry {
		quotes = append(quotes, n)
	}
	for n := range fxRegistry {
		fx = append(fx, n)
	}
	sort.Strings(quotes)
	sort.Strings(fx)
	return quotes, fx
}

// QuoteSources builds one source per name used in cfg.Routing and maps
// every routed asset class to it.
func QuoteSources(cfg *config.Config) (map[model.AssetClass]port.QuoteSource, error) {
	built := make(map[string]port.QuoteSource)
	out := make(map[model.AssetClass]port.QuoteSource, len(cfg.Routing))
	for class, name := range cfg.Routing {
		src, ok := built[name]
		if !ok {
			factory, found := quoteRegistry[name]
			if !found {
				return nil, fmt.Errorf("quote source %q is not registered", name)
			}
			var err error
			if src, err = factory(cfg); err != nil {
				return nil, fmt.Errorf("build quote source %s: %w", name, err)
			}
			built[name] = src
		}
		out[model.AssetClass(class)] = src
	}
	return out, nil
}

// FxChain builds the ranked FX chain in cfg.FX.Chain order.
func FxChain(cfg *config.Config) ([]port.FxSource, error) {
	chain := make([]port.FxSource, 0, len(cfg.FX.Chain))
	for _, name := range cfg.FX.Chain {
		factory, ok := fxRegistry[name]
		if !ok {
			return nil, fmt.Errorf("fx source %q is not registered", name)
		}
		src, err := factory(cfg)
		if err != nil {
			return nil, fmt.Errorf("build fx source %s: %w", name, err)
		}
		chain = append(chain, src)
	}
	return chain, nil
}
