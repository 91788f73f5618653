// Command journal records and inspects trades in the local journal database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/aristath/tradejournal/internal/cli"
	"github.com/aristath/tradejournal/internal/config"
	"github.com/aristath/tradejournal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(int(subcommands.ExitFailure))
	}

	// Logs go to stderr so command output stays pipeable
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
		Output: os.Stderr,
	})

	rt := cli.NewRuntime(cfg, log)
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	cli.Register(commander, rt)

	flag.Parse()
	status := commander.Execute(context.Background())

	if err := rt.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close journal database")
	}
	os.Exit(int(status))
}
