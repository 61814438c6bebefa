package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"networth/internal/interfaces/console"
)

type latestCmd struct {
	raw    bool
	asJSON bool
}

func (*latestCmd) Name() string     { return "latest" }
func (*latestCmd) Synopsis() string { return "display the most recent snapshot" }
func (*latestCmd) Usage() string {
	return `networth latest [-raw] [-json]

  Displays the last committed snapshot without contacting any provider.
`
}

func (c *latestCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "print markdown without terminal styling")
	f.BoolVar(&c.asJSON, "json", false, "print the snapshot as JSON")
}

func (c *latestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctr, err := open(false)
	if err != nil {
		return fail(err)
	}
	defer ctr.Close()

	snap, err := ctr.App().Store().Latest(ctx)
	if err != nil {
		return fail(err)
	}
	if snap == nil {
		return fail(errors.New("no snapshots yet, run `networth refresh` first"))
	}
	if c.asJSON {
		return printJSON(snap)
	}
	if err := console.Print(os.Stdout, console.SnapshotMarkdown(snap), c.raw); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type historyCmd struct {
	historyFlags
	raw    bool
	asJSON bool
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list snapshots over a time range" }
func (*historyCmd) Usage() string {
	return `networth history [-category <class>] [-since <date>] [-until <date>] [-raw] [-json]

  Lists snapshots oldest first. With -category each snapshot is narrowed
  to that asset class and snapshots without it are left out.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.category, "category", "", "asset class (crypto, stock, etf, bond, cash)")
	f.StringVar(&c.since, "since", "", "inclusive start (YYYY-MM-DD or RFC3339)")
	f.StringVar(&c.until, "until", "", "inclusive end (YYYY-MM-DD or RFC3339)")
	f.BoolVar(&c.raw, "raw", false, "print markdown without terminal styling")
	f.BoolVar(&c.asJSON, "json", false, "print snapshots as JSON")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	q, err := c.query()
	if err != nil {
		return usage(err)
	}
	ctr, err := open(false)
	if err != nil {
		return fail(err)
	}
	defer ctr.Close()

	snaps, err := ctr.App().Store().History(ctx, q)
	if err != nil {
		return fail(err)
	}
	if c.asJSON {
		return printJSON(snaps)
	}
	if err := console.Print(os.Stdout, console.HistoryMarkdown(snaps, q.Category), c.raw); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type exportCmd struct {
	historyFlags
	format string
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write snapshot history to csv or parquet" }
func (*exportCmd) Usage() string {
	return `networth export [-format csv|parquet] [-o <file or dir>] [-category <class>] [-since <date>] [-until <date>]

  Writes one row per holding per snapshot. Without -o the file is created
  in the current directory with a timestamped name.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "format", "csv", "csv or parquet")
	f.StringVar(&c.output, "o", "", "output file or directory")
	f.StringVar(&c.category, "category", "", "asset class filter")
	f.StringVar(&c.since, "since", "", "inclusive start")
	f.StringVar(&c.until, "until", "", "inclusive end")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	q, err := c.query()
	if err != nil {
		return usage(err)
	}
	ctr, err := open(false)
	if err != nil {
		return fail(err)
	}
	defer ctr.Close()

	out, err := ctr.App().ExportService().Export(ctx, c.format, c.output, q)
	if err != nil {
		return fail(err)
	}
	defer out.Close()
	fmt.Println(out.Name())
	return subcommands.ExitSuccess
}

func printJSON(v any) subcommands.ExitStatus {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
