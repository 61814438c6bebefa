package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"

	"networth/internal/application/port"
	"networth/internal/domain/model"
	"networth/internal/infrastructure/config"
	"networth/internal/infrastructure/container"
	"networth/internal/infrastructure/logger"
	"networth/internal/interfaces/api"
)

const defaultConfigPath = "configs/config.toml"

var globals struct {
	configPath string
	logLevel   string
}

// open loads the configuration, installs the logger and builds the
// container. engine also builds providers and mirrors.
func open(engine bool) (*container.Container, error) {
	path := globals.configPath
	if path == "" && config.Exists(defaultConfigPath) {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.Setup(globals.logLevel)
		return nil, fmt.Errorf("load config %q: %w", path, err)
	}
	level := cfg.App.LogLevel
	if globals.logLevel != "" {
		level = globals.logLevel
	}
	logger.Setup(level)
	log.Debug().Str("config", path).Str("currency", cfg.Reporting.Currency).Msg("config loaded")

	if engine {
		return container.NewWithEngine(cfg)
	}
	return container.New(cfg)
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

func usage(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitUsageError
}

// historyFlags are shared by history and export.
type historyFlags struct {
	category string
	since    string
	until    string
}

func (h *historyFlags) query() (port.HistoryQuery, error) {
	var q port.HistoryQuery
	if c := strings.ToLower(strings.TrimSpace(h.category)); c != "" {
		q.Category = model.AssetClass(c)
		if !q.Category.Valid() {
			return q, fmt.Errorf("unknown category %q", h.category)
		}
	}
	var err error
	if q.Since, err = api.ParseTime(h.since, false); err != nil {
		return q, err
	}
	if q.Until, err = api.ParseTime(h.until, true); err != nil {
		return q, err
	}
	if !q.Since.IsZero() && !q.Until.IsZero() && q.Until.Before(q.Since) {
		return q, fmt.Errorf("until %s is before since %s", q.Until.Format(time.DateOnly), q.Since.Format(time.DateOnly))
	}
	return q, nil
}
