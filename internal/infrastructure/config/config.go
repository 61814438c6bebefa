package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"github.com/rs/zerolog"

	"networth/internal/domain/model"
	domainservice "networth/internal/domain/service"
)

type Config struct {
	App struct {
		LogLevel string `toml:"log_level"`
	} `toml:"app"`

	Reporting struct {
		Currency string `toml:"currency"`
	} `toml:"reporting"`

	Refresh struct {
		Interval time.Duration `toml:"interval"`
		OnStart  bool          `toml:"on_start"`
	} `toml:"refresh"`

	FX FXConfig `toml:"fx"`

	Providers Providers `toml:"providers"`

	// Routing maps an asset class to the quote source pricing it.
	Routing map[string]string `toml:"routing"`

	Storage Storage `toml:"storage"`

	HTTP struct {
		Addr         string   `toml:"addr"`
		AllowOrigins []string `toml:"allow_origins"`
	} `toml:"http"`

	Metrics struct {
		Enabled bool `toml:"enabled"`
	} `toml:"metrics"`
}

type FXConfig struct {
	// Chain ranks the FX sources; the first is the primary.
	Chain             []string      `toml:"chain"`
	MaxSourceAge      time.Duration `toml:"max_source_age"`
	MaxStale          time.Duration `toml:"max_stale"`
	PreferCacheWithin time.Duration `toml:"prefer_cache_within"`
	CacheEntries      int64         `toml:"cache_entries"`
}

type Providers struct {
	CoinGecko   CoinGecko   `toml:"coingecko"`
	Binance     Binance     `toml:"binance"`
	Yahoo       Yahoo       `toml:"yahoo"`
	NBP         HTTPSource  `toml:"nbp"`
	Frankfurter HTTPSource  `toml:"frankfurter"`
	Static      StaticRates `toml:"static"`
}

// HTTPSource is the part every REST provider shares.
type HTTPSource struct {
	BaseURL           string        `toml:"base_url"`
	Timeout           time.Duration `toml:"timeout"`
	RequestsPerMinute int           `toml:"requests_per_minute"`
}

type CoinGecko struct {
	HTTPSource
	APIKey string `toml:"api_key"`
	// IDs extends the built-in symbol to coin id table.
	IDs       map[string]string `toml:"ids"`
	CacheSize int               `toml:"cache_size"`
}

type Binance struct {
	WsURL      string        `toml:"ws_url"`
	Timeout    time.Duration `toml:"timeout"`
	QuoteAsset string        `toml:"quote_asset"`
	// Currency is what QuoteAsset is treated as when valuing.
	Currency string `toml:"currency"`
}

type Yahoo struct {
	HTTPSource
	PricePath    string `toml:"price_path"`
	CurrencyPath string `toml:"currency_path"`
	Concurrency  int    `toml:"concurrency"`
}

// StaticRates are manual fixed rates keyed "BASE/QUOTE".
type StaticRates struct {
	Rates map[string]string `toml:"rates"`
}

type Storage struct {
	SQLite struct {
		Path string `toml:"path"`
	} `toml:"sqlite"`

	Postgres struct {
		Enabled bool   `toml:"enabled"`
		DSN     string `toml:"dsn"`
	} `toml:"postgres"`

	Redis struct {
		Enabled      bool          `toml:"enabled"`
		Addr         string        `toml:"addr"`
		Password     string        `toml:"password"`
		DB           int           `toml:"db"`
		Prefix       string        `toml:"prefix"`
		StreamMaxLen int64         `toml:"stream_max_len"`
		TTL          time.Duration `toml:"ttl"`
	} `toml:"redis"`
}

// envOverrides are secrets and deployment knobs that win over the file.
type envOverrides struct {
	PostgresDSN     string `env:"NETWORTH_PG_DSN"`
	RedisPassword   string `env:"NETWORTH_REDIS_PASSWORD"`
	CoinGeckoAPIKey string `env:"NETWORTH_COINGECKO_API_KEY"`
	DBPath          string `env:"NETWORTH_DB_PATH"`
	HTTPAddr        string `env:"NETWORTH_HTTP_ADDR"`
	LogLevel        string `env:"NETWORTH_LOG_LEVEL"`
}

var (
	QuoteSources = []string{"coingecko", "binance", "yahoo"}
	FxSources    = []string{"nbp", "frankfurter", "static"}
)

// Load reads path, applies environment overrides and defaults, and
// validates the result. A missing file at an empty path yields defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default is the configuration used without a file.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.PostgresDSN != "" {
		cfg.Storage.Postgres.DSN = o.PostgresDSN
	}
	if o.RedisPassword != "" {
		cfg.Storage.Redis.Password = o.RedisPassword
	}
	if o.CoinGeckoAPIKey != "" {
		cfg.Providers.CoinGecko.APIKey = o.CoinGeckoAPIKey
	}
	if o.DBPath != "" {
		cfg.Storage.SQLite.Path = o.DBPath
	}
	if o.HTTPAddr != "" {
		cfg.HTTP.Addr = o.HTTPAddr
	}
	if o.LogLevel != "" {
		cfg.App.LogLevel = o.LogLevel
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.Reporting.Currency == "" {
		cfg.Reporting.Currency = "PLN"
	}
	cfg.Reporting.Currency = strings.ToUpper(strings.TrimSpace(cfg.Reporting.Currency))
	if cfg.Refresh.Interval <= 0 {
		cfg.Refresh.Interval = time.Hour
	}

	fx := &cfg.FX
	if len(fx.Chain) == 0 {
		fx.Chain = []string{"nbp", "frankfurter", "static"}
	}
	if fx.MaxSourceAge <= 0 {
		fx.MaxSourceAge = 120 * time.Hour
	}
	if fx.MaxStale <= 0 {
		fx.MaxStale = 7 * 24 * time.Hour
	}
	if fx.CacheEntries <= 0 {
		fx.CacheEntries = 1024
	}

	p := &cfg.Providers
	httpDefaults(&p.CoinGecko.HTTPSource, "https://api.coingecko.com/api/v3", 10*time.Second, 25)
	if p.CoinGecko.CacheSize <= 0 {
		p.CoinGecko.CacheSize = 512
	}
	httpDefaults(&p.Yahoo.HTTPSource, "https://query1.finance.yahoo.com", 10*time.Second, 60)
	if p.Yahoo.PricePath == "" {
		p.Yahoo.PricePath = "$.chart.result[0].meta.regularMarketPrice"
	}
	if p.Yahoo.CurrencyPath == "" {
		p.Yahoo.CurrencyPath = "$.chart.result[0].meta.currency"
	}
	if p.Yahoo.Concurrency <= 0 {
		p.Yahoo.Concurrency = 4
	}
	httpDefaults(&p.NBP, "https://api.nbp.pl/api", 10*time.Second, 0)
	httpDefaults(&p.Frankfurter, "https://api.frankfurter.app", 10*time.Second, 0)
	if p.Binance.WsURL == "" {
		p.Binance.WsURL = "wss://stream.binance.com:9443"
	}
	if p.Binance.Timeout <= 0 {
		p.Binance.Timeout = 10 * time.Second
	}
	if p.Binance.QuoteAsset == "" {
		p.Binance.QuoteAsset = "USDT"
	}
	if p.Binance.Currency == "" {
		p.Binance.Currency = "USD"
	}

	if cfg.Routing == nil {
		cfg.Routing = map[string]string{
			string(model.AssetCrypto): "coingecko",
			string(model.AssetStock):  "yahoo",
			string(model.AssetETF):    "yahoo",
		}
	}

	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/networth.db"
	}
	r := &cfg.Storage.Redis
	if r.Addr == "" {
		r.Addr = "localhost:6379"
	}
	if r.Prefix == "" {
		r.Prefix = "networth"
	}
	if r.StreamMaxLen <= 0 {
		r.StreamMaxLen = 1000
	}

	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = "127.0.0.1:8080"
	}
	if len(cfg.HTTP.AllowOrigins) == 0 {
		cfg.HTTP.AllowOrigins = []string{"http://localhost:3000"}
	}
}

func httpDefaults(s *HTTPSource, url string, timeout time.Duration, perMin int) {
	if s.BaseURL == "" {
		s.BaseURL = url
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	if s.Timeout <= 0 {
		s.Timeout = timeout
	}
	if s.RequestsPerMinute <= 0 {
		s.RequestsPerMinute = perMin
	}
}

func validate(cfg *Config) error {
	if _, err := zerolog.ParseLevel(cfg.App.LogLevel); err != nil {
		return fmt.Errorf("app.log_level: %w", err)
	}
	if !domainservice.KnownCurrency(cfg.Reporting.Currency) {
		return fmt.Errorf("reporting.currency %q is not an ISO 4217 code", cfg.Reporting.Currency)
	}

	chain := make([]string, 0, len(cfg.FX.Chain))
	for _, name := range cfg.FX.Chain {
		n := strings.ToLower(strings.TrimSpace(name))
		if !contains(FxSources, n) {
			return fmt.Errorf("fx.chain: unknown source %q", name)
		}
		chain = append(chain, n)
	}
	cfg.FX.Chain = chain
	if cfg.FX.PreferCacheWithin > cfg.FX.MaxStale {
		return errors.New("fx.prefer_cache_within exceeds fx.max_stale")
	}

	routing := make(map[string]string, len(cfg.Routing))
	for class, src := range cfg.Routing {
		c := model.AssetClass(strings.ToLower(strings.TrimSpace(class)))
		if !c.Valid() || !c.NeedsQuote() {
			return fmt.Errorf("routing: %q is not a quoted asset class", class)
		}
		s := strings.ToLower(strings.TrimSpace(src))
		if !contains(QuoteSources, s) {
			return fmt.Errorf("routing.%s: unknown quote source %q", class, src)
		}
		routing[string(c)] = s
	}
	cfg.Routing = routing

	for pair, rate := range cfg.Providers.Static.Rates {
		base, quote, ok := strings.Cut(pair, "/")
		if !ok || len(base) != 3 || len(quote) != 3 {
			return fmt.Errorf("providers.static.rates: bad pair %q, want BASE/QUOTE", pair)
		}
		if strings.TrimSpace(rate) == "" {
			return fmt.Errorf("providers.static.rates.%s is empty", pair)
		}
	}

	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
		return errors.New("storage.redis.addr empty but enabled")
	}
	return nil
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
