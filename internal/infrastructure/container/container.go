package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	appcontainer "networth/internal/application/container"
	"networth/internal/application/port"
	"networth/internal/application/service"
	"networth/internal/infrastructure/config"
	"networth/internal/infrastructure/export"
	"networth/internal/infrastructure/provider"
	"networth/internal/infrastructure/storage/composite"
	"networth/internal/infrastructure/storage/memory"
	pgrepo "networth/internal/infrastructure/storage/postgres"
	redisrepo "networth/internal/infrastructure/storage/redis"
	sqliterepo "networth/internal/infrastructure/storage/sqlite"

	// adapters register themselves
	_ "networth/internal/infrastructure/provider/binance"
	_ "networth/internal/infrastructure/provider/coingecko"
	_ "networth/internal/infrastructure/provider/frankfurter"
	_ "networth/internal/infrastructure/provider/nbp"
	_ "networth/internal/infrastructure/provider/static"
	_ "networth/internal/infrastructure/provider/yahoo"
)

const mirrorTimeout = 10 * time.Second

// Container owns every infrastructure resource and the application layer
// built on top of them.
type Container struct {
	cfg         *config.Config
	sqliteRepo  *sqliterepo.Repo
	fxCache     *memory.FxCache
	mirrors     []port.Sink
	app         *appcontainer.Container
	closeOnce   sync.Once
	closerChain []func() error
}

// New opens storage only. Commands that read the store do not need the
// network providers; call WithEngine before using the refresh path.
func New(cfg *config.Config) (*Container, error) {
	c := &Container{cfg: cfg}
	if err := c.initSQLite(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("sqlite init failed: %w", err)
	}
	c.app = appcontainer.New(c.deps(nil))
	return c, nil
}

// NewWithEngine opens storage, mirrors and the provider chain.
func NewWithEngine(cfg *config.Config) (*Container, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.initMirrors(); err != nil {
		_ = c.Close()
		return nil, err
	}
	valuation, err := c.initEngine()
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.app = appcontainer.New(c.deps(valuation))
	return c, nil
}

func (c *Container) deps(valuation *service.ValuationService) appcontainer.Deps {
	var sinks []port.Sink
	if len(c.mirrors) > 0 {
		sinks = append(sinks, composite.New(mirrorTimeout, c.mirrors...))
	}
	return appcontainer.Deps{
		Store:     c.sqliteRepo,
		Valuation: valuation,
		Writers: func(format string) (port.SnapshotWriter, error) {
			return export.NewWriter(format)
		},
		Sinks: sinks,
	}
}

func (c *Container) initSQLite() error {
	repo, err := sqliterepo.New(c.cfg.Storage.SQLite.Path, c.cfg.Reporting.Currency)
	if err != nil {
		return err
	}
	c.sqliteRepo = repo
	c.closerChain = append(c.closerChain, func() error {
		log.Debug().Msg("closing sqlite connection")
		return repo.Close()
	})
	log.Debug().
		Str("path", c.cfg.Storage.SQLite.Path).
		Str("currency", repo.ReportingCurrency()).
		Msg("sqlite initialized")
	return nil
}

// initMirrors connects the optional mirrors. A mirror that cannot be
// reached at start is skipped with a warning; it never blocks the store.
func (c *Container) initMirrors() error {
	if pg := c.cfg.Storage.Postgres; pg.Enabled {
		repo, err := pgrepo.New(pg.DSN)
		if err != nil {
			log.Warn().Err(err).Msg("postgres mirror disabled")
		} else {
			c.mirrors = append(c.mirrors, repo)
			c.closerChain = append(c.closerChain, repo.Close)
			log.Info().Msg("postgres mirror initialized")
		}
	}

	if rc := c.cfg.Storage.Redis; rc.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			log.Warn().Err(err).Str("addr", rc.Addr).Msg("redis mirror disabled")
		} else {
			repo := redisrepo.New(rdb, rc.Prefix, rc.TTL, rc.StreamMaxLen)
			c.mirrors = append(c.mirrors, repo)
			c.closerChain = append(c.closerChain, repo.Close)
			log.Info().Str("addr", rc.Addr).Int("db", rc.DB).Msg("redis mirror initialized")
		}
	}
	return nil
}

func (c *Container) initEngine() (*service.ValuationService, error) {
	cache, err := memory.NewFxCache(c.cfg.FX.CacheEntries, c.cfg.FX.MaxStale, c.sqliteRepo)
	if err != nil {
		return nil, fmt.Errorf("fx cache init failed: %w", err)
	}
	c.fxCache = cache
	c.closerChain = append(c.closerChain, func() error {
		cache.Close()
		return nil
	})

	chain, err := provider.FxChain(c.cfg)
	if err != nil {
		return nil, err
	}
	sources, err := provider.QuoteSources(c.cfg)
	if err != nil {
		return nil, err
	}

	conv := service.NewFxConverter(c.cfg.Reporting.Currency, chain, cache, service.FxOptions{
		MaxSourceAge:      c.cfg.FX.MaxSourceAge,
		MaxStale:          c.cfg.FX.MaxStale,
		PreferCacheWithin: c.cfg.FX.PreferCacheWithin,
	})

	routed := make(map[string]string, len(sources))
	for class, src := range sources {
		routed[string(class)] = src.Name()
	}
	log.Info().
		Strs("fx_chain", c.cfg.FX.Chain).
		Interface("routing", routed).
		Msg("valuation engine ready")
	return service.NewValuationService(conv, sources), nil
}

func (c *Container) Config() *config.Config { return c.cfg }

func (c *Container) App() *appcontainer.Container { return c.app }

func (c *Container) SQLiteRepo() *sqliterepo.Repo { return c.sqliteRepo }

// Mirrors lists the names of the connected mirrors.
func (c *Container) Mirrors() []string {
	out := make([]string, 0, len(c.mirrors))
	for _, m := range c.mirrors {
		out = append(out, m.Name())
	}
	return out
}

// Close releases all resources in reverse order of creation.
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Debug().Msg("container closed")
	})
	return err
}
