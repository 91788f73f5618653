package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"

	"github.com/aristath/tradejournal/internal/database"
	"github.com/aristath/tradejournal/internal/reliability"
)

type migrateCmd struct {
	rt       *Runtime
	to       int
	rollback bool
	status   bool
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply or roll back schema migrations" }
func (*migrateCmd) Usage() string {
	return `journal migrate [-to <version>]
journal migrate -rollback -to <version>
journal migrate -status

  Moves the journal schema to the requested version. Without -to, applies
  every pending migration.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.to, "to", 0, "Target schema version (0 = latest when migrating up).")
	f.BoolVar(&c.rollback, "rollback", false, "Roll back down to -to.")
	f.BoolVar(&c.status, "status", false, "Print the current and latest schema version.")
}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.to < 0 {
		return c.rt.usageError("-to must not be negative")
	}

	// Opened directly: the connection manager would migrate to latest on open
	mc := c.rt.Config.ManagerConfig()
	path := database.NewManager(mc, nil, c.rt.Log).Path()
	db, err := database.New(database.Config{
		Path:    path,
		Profile: database.ProfileLedger,
		Driver:  mc.Driver,
		Name:    mc.Name,
	})
	if err != nil {
		return c.rt.fail(err)
	}
	defer db.Close()

	migrator := database.NewMigrator(db.Conn())
	before, err := migrator.CurrentVersion(ctx)
	if err != nil {
		return c.rt.fail(err)
	}

	switch {
	case c.status:
		fmt.Fprintf(c.rt.Out, "Schema version %d (latest %d)\n", before, migrator.Latest())
		return subcommands.ExitSuccess
	case c.rollback:
		err = migrator.Rollback(ctx, c.to)
	default:
		err = migrator.Migrate(ctx, c.to)
	}
	if err != nil {
		return c.rt.fail(err)
	}

	after, err := migrator.CurrentVersion(ctx)
	if err != nil {
		return c.rt.fail(err)
	}
	fmt.Fprintf(c.rt.Out, "Schema version %d -> %d\n", before, after)
	return subcommands.ExitSuccess
}

type backupCmd struct {
	rt     *Runtime
	list   bool
	verify string
}

func (*backupCmd) Name() string     { return "backup" }
func (*backupCmd) Synopsis() string { return "create, list or verify database backups" }
func (*backupCmd) Usage() string {
	return `journal backup
journal backup -list
journal backup -verify <file>

  Without flags writes a verified backup to BACKUP_DIR, uploads it when
  BACKUP_S3_BUCKET is set and rotates old copies.
`
}

func (c *backupCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.list, "list", false, "List local backups, newest first.")
	f.StringVar(&c.verify, "verify", "", "Check that a backup file opens and passes an integrity check.")
}

func (c *backupCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.verify != "" {
		if err := reliability.VerifyBackup(ctx, c.rt.Config.DBDriver, c.verify); err != nil {
			return c.rt.fail(err)
		}
		fmt.Fprintf(c.rt.Out, "%s is a valid journal backup\n", c.verify)
		return subcommands.ExitSuccess
	}

	container, err := c.rt.open(ctx)
	if err != nil {
		return c.rt.fail(err)
	}

	if c.list {
		backups, err := container.Backups.ListBackups(container.Manager.Name())
		if err != nil {
			return c.rt.fail(err)
		}
		w := c.rt.table()
		fmt.Fprintln(w, "FILE\tTAKEN\tSIZE")
		for _, b := range backups {
			fmt.Fprintf(w, "%s\t%s\t%s\n", b.Filename, humanize.Time(b.Timestamp), humanize.Bytes(uint64(b.SizeBytes)))
		}
		_ = w.Flush()
		return subcommands.ExitSuccess
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	info, err := container.Backups.CreateBackup(ctx)
	if err != nil {
		return c.rt.fail(err)
	}

	fmt.Fprintf(c.rt.Out, "Wrote %s (%s, sha256 %s)\n", info.Path, humanize.Bytes(uint64(info.SizeBytes)), info.Checksum)
	if info.Uploaded {
		fmt.Fprintf(c.rt.Out, "Uploaded as %s\n", info.Key)
	}
	return subcommands.ExitSuccess
}
