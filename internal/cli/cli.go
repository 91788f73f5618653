// Package cli implements the journal command line subcommands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/aristath/tradejournal/internal/config"
	"github.com/aristath/tradejournal/internal/di"
)

// Runtime is shared by all subcommands. The container is wired on first use
// so that "help" never touches the database.
type Runtime struct {
	Config *config.Config
	Log    zerolog.Logger
	Out    io.Writer
	Err    io.Writer

	container *di.Container
	jobs      *di.JobInstances
}

// NewRuntime creates a runtime writing to stdout and stderr
func NewRuntime(cfg *config.Config, log zerolog.Logger) *Runtime {
	return &Runtime{Config: cfg, Log: log, Out: os.Stdout, Err: os.Stderr}
}

func (rt *Runtime) open(ctx context.Context) (*di.Container, error) {
	if rt.container != nil {
		return rt.container, nil
	}
	container, jobs, err := di.Wire(ctx, rt.Config, rt.Log)
	if err != nil {
		return nil, err
	}
	rt.container, rt.jobs = container, jobs
	return container, nil
}

// Close releases the database connection if one was opened
func (rt *Runtime) Close() error {
	if rt.container == nil {
		return nil
	}
	err := rt.container.Close()
	rt.container, rt.jobs = nil, nil
	return err
}

// fail reports err and returns ExitFailure
func (rt *Runtime) fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(rt.Err, "Error:", err)
	return subcommands.ExitFailure
}

func (rt *Runtime) usageError(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(rt.Err, "Error: "+format+"\n", args...)
	return subcommands.ExitUsageError
}

func (rt *Runtime) table() *tabwriter.Writer {
	return tabwriter.NewWriter(rt.Out, 0, 0, 2, ' ', 0)
}

// Commands returns every subcommand bound to rt
func Commands(rt *Runtime) []subcommands.Command {
	return []subcommands.Command{
		&buyCmd{rt: rt},
		&sellCmd{rt: rt},
		&noteCmd{rt: rt},
		&listCmd{rt: rt},
		&availableCmd{rt: rt},
		&summaryCmd{rt: rt},
		&exportCmd{rt: rt},
		&seedCmd{rt: rt},
		&migrateCmd{rt: rt},
		&backupCmd{rt: rt},
	}
}

// Register adds the built-in and journal subcommands to commander
func Register(commander *subcommands.Commander, rt *Runtime) {
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	for _, c := range Commands(rt) {
		group := "journal"
		switch c.Name() {
		case "migrate", "backup", "seed":
			group = "maintenance"
		}
		commander.Register(c, group)
	}
}
