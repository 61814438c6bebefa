package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"networth/internal/interfaces/console"
)

type statusCmd struct {
	raw bool
}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "report store tables and the latest snapshot" }
func (*statusCmd) Usage() string {
	return `networth status [-raw]
`
}

func (c *statusCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "print markdown without terminal styling")
}

func (c *statusCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctr, err := open(false)
	if err != nil {
		return fail(err)
	}
	defer ctr.Close()

	repo := ctr.SQLiteRepo()
	counts, err := repo.Counts(ctx)
	if err != nil {
		return fail(err)
	}
	latest, err := repo.Latest(ctx)
	if err != nil {
		return fail(err)
	}
	md := console.StatusMarkdown(ctr.Config().Storage.SQLite.Path, counts, latest, ctr.Mirrors())
	if err := console.Print(os.Stdout, md, c.raw); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
