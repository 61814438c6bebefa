package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "")
	}
	for _, c := range adminCommands {
		commander.Register(c, "admin")
	}

	flag.StringVar(&globals.configPath, "config", "", "path to config.toml (defaults to configs/config.toml when present)")
	flag.StringVar(&globals.logLevel, "log-level", "", "override app.log_level (debug, info, warn, error)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}

var commands = []subcommands.Command{
	&refreshCmd{},
	&latestCmd{},
	&historyCmd{},
	&exportCmd{},
	&holdingCmd{},
	&serveCmd{},
}

var adminCommands = []subcommands.Command{
	&statusCmd{},
}
