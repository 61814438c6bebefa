package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"networth/internal/interfaces/api"
	"networth/internal/interfaces/console"
)

type serveCmd struct {
	addr     string
	noSched  bool
	print    bool
	interval time.Duration
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API and the scheduled refresh" }
func (*serveCmd) Usage() string {
	return `networth serve [-addr host:port] [-interval 1h] [-no-schedule]

  Serves the JSON API, /metrics and /health, and refreshes on the
  configured interval until interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "listen address (overrides http.addr)")
	f.DurationVar(&c.interval, "interval", 0, "refresh interval (overrides refresh.interval)")
	f.BoolVar(&c.noSched, "no-schedule", false, "serve only; refresh on demand through the API")
	f.BoolVar(&c.print, "print", false, "print a summary line to stdout after every refresh")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctr, err := open(true)
	if err != nil {
		return fail(err)
	}
	defer ctr.Close()

	cfg := ctr.Config()
	addr := cfg.HTTP.Addr
	if c.addr != "" {
		addr = c.addr
	}
	interval := cfg.Refresh.Interval
	if c.interval > 0 {
		interval = c.interval
	}

	exportDir := filepath.Join(os.TempDir(), "networth-export")
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return fail(err)
	}

	app := ctr.App()
	if c.print {
		app.AddSink(console.NewSink(os.Stdout))
	}
	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(api.Deps{
		Snapshots:    app.Store(),
		Holdings:     app.HoldingService(),
		Export:       app.ExportService(),
		Refresher:    app.Refresh(),
		ExportDir:    exportDir,
		AllowOrigins: cfg.HTTP.AllowOrigins,
		Metrics:      cfg.Metrics.Enabled,
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Strs("mirrors", ctr.Mirrors()).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if !c.noSched {
		g.Go(func() error {
			err := app.Refresh().Run(gctx, interval, cfg.Refresh.OnStart)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fail(err)
	}
	log.Info().Msg("server exited")
	return subcommands.ExitSuccess
}
