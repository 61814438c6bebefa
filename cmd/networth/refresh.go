package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/google/subcommands"

	"networth/internal/interfaces/console"
)

type refreshCmd struct {
	timeout time.Duration
	raw     bool
	asJSON  bool
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "fetch prices and rates and commit a new snapshot" }
func (*refreshCmd) Usage() string {
	return `networth refresh [-timeout 2m] [-raw] [-json]

  Values every active holding and appends a snapshot to the store.
  Holdings whose quote or rate cannot be fetched are valued at zero and
  the snapshot is flagged partial.
`
}

func (c *refreshCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.timeout, "timeout", 2*time.Minute, "abort the refresh after this long")
	f.BoolVar(&c.raw, "raw", false, "print markdown without terminal styling")
	f.BoolVar(&c.asJSON, "json", false, "print the snapshot as JSON")
}

func (c *refreshCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctr, err := open(true)
	if err != nil {
		return fail(err)
	}
	defer ctr.Close()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	snap, err := ctr.App().Refresh().Refresh(ctx)
	if err != nil {
		return fail(err)
	}

	if c.asJSON {
		return printJSON(snap)
	}
	if err := console.Print(os.Stdout, console.SnapshotMarkdown(snap), c.raw); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
