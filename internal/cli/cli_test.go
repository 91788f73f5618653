package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tradejournal/internal/config"
	"github.com/aristath/tradejournal/internal/database"
	"github.com/aristath/tradejournal/internal/modules/journal"
)

type harness struct {
	rt  *Runtime
	out *bytes.Buffer
	err *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DataDir:  dir,
		DBName:   database.DefaultName,
		DBDriver: database.DriverModernc,
		Port:     8001,
		Maintenance: &config.MaintenanceConfig{
			BackupDir:  filepath.Join(dir, "backups"),
			BackupKeep: 3,
		},
	}

	h := &harness{out: &bytes.Buffer{}, err: &bytes.Buffer{}}
	h.rt = &Runtime{Config: cfg, Log: zerolog.Nop(), Out: h.out, Err: h.err}
	t.Cleanup(func() { _ = h.rt.Close() })
	return h
}

// run executes one command line and closes the database afterwards, as the binary does
func (h *harness) run(t *testing.T, args ...string) subcommands.ExitStatus {
	t.Helper()
	h.out.Reset()
	h.err.Reset()

	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	commander := subcommands.NewCommander(fs, "journal")
	Register(commander, h.rt)

	require.NoError(t, fs.Parse(args))
	status := commander.Execute(context.Background())
	require.NoError(t, h.rt.Close())
	return status
}

var idPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

func (h *harness) recordBuy(t *testing.T, args ...string) string {
	t.Helper()
	require.Equal(t, subcommands.ExitSuccess, h.run(t, append([]string{"buy"}, args...)...), h.err.String())
	id := idPattern.FindString(h.out.String())
	require.NotEmpty(t, id)
	return id
}

func TestBuySellFlow(t *testing.T) {
	h := newHarness(t)

	id := h.recordBuy(t, "-symbol", "aapl", "-d", "2024-03-01", "-q", "10", "-p", "150", "-note", "first lot")
	assert.Contains(t, h.out.String(), "AAPL 10 @ 150 on 2024-03-01")

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "sell", "-buy", id, "-d", "2024-04-01", "-q", "4", "-p", "170"))
	assert.Contains(t, h.out.String(), "Recorded sell")

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "available"))
	assert.Regexp(t, id+`\s+AAPL\s+2024-03-01\s+10\s+6\s+150`, h.out.String())

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "list"))
	assert.Contains(t, h.out.String(), "first lot")

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "list", id))
	assert.Contains(t, h.out.String(), "2024-04-01")

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "summary"))
	assert.Regexp(t, `AAPL\s+6\s+150\.0000\s+900\.00\s+680\.00\s+80\.00`, h.out.String())
}

func TestSellRejected(t *testing.T) {
	h := newHarness(t)
	id := h.recordBuy(t, "-symbol", "MSFT", "-d", "2024-01-02", "-q", "2", "-p", "400")

	assert.Equal(t, subcommands.ExitFailure, h.run(t, "sell", "-buy", id, "-d", "2024-02-01", "-q", "3", "-p", "410"))
	assert.Contains(t, h.err.String(), "exceeds available quantity")

	assert.Equal(t, subcommands.ExitFailure, h.run(t, "sell", "-buy", "missing", "-d", "2024-02-01", "-q", "1", "-p", "410"))
	assert.Contains(t, h.err.String(), "not found")
}

func TestBuyValidation(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, subcommands.ExitUsageError, h.run(t, "buy", "-symbol", "X", "-d", "01/02/2024", "-q", "1", "-p", "1"))
	assert.Equal(t, subcommands.ExitFailure, h.run(t, "buy", "-symbol", "X", "-d", "2024-01-02", "-q", "0", "-p", "1"))
	assert.Contains(t, h.err.String(), "quantity")
}

func TestNote(t *testing.T) {
	h := newHarness(t)
	id := h.recordBuy(t, "-symbol", "NVDA", "-d", "2024-05-01", "-q", "1", "-p", "900")

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "note", id, "earnings play"))
	require.Equal(t, subcommands.ExitSuccess, h.run(t, "list"))
	assert.Contains(t, h.out.String(), "earnings play")

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "note", "-clear", id))
	require.Equal(t, subcommands.ExitSuccess, h.run(t, "list"))
	assert.NotContains(t, h.out.String(), "earnings play")

	assert.Equal(t, subcommands.ExitUsageError, h.run(t, "note", id))
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, subcommands.ExitSuccess, h.run(t, "seed"))

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "export"))
	var snap journal.Snapshot
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &snap))
	require.Len(t, snap.Buys, 1)
	assert.Equal(t, "NET", snap.Buys[0].Symbol)

	file := filepath.Join(t.TempDir(), "journal.msgpack")
	require.Equal(t, subcommands.ExitSuccess, h.run(t, "export", "-f", "msgpack", "-o", file))

	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := journal.DecodeSnapshot(f, journal.FormatMsgpack)
	require.NoError(t, err)
	assert.Len(t, decoded.Buys, 1)

	assert.Equal(t, subcommands.ExitUsageError, h.run(t, "export", "-f", "xml"))
}

func TestMigrate(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "migrate", "-status"))
	assert.Contains(t, h.out.String(), "Schema version 0")

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "migrate", "-to", "1"))
	assert.Contains(t, h.out.String(), "0 -> 1")

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "migrate"))
	require.Equal(t, subcommands.ExitSuccess, h.run(t, "migrate", "-rollback", "-to", "0"))
	assert.Regexp(t, `\d -> 0`, h.out.String())

	assert.Equal(t, subcommands.ExitUsageError, h.run(t, "migrate", "-to", "-1"))
}

func TestBackup(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, subcommands.ExitSuccess, h.run(t, "seed"))

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "backup"), h.err.String())
	path := regexp.MustCompile(`Wrote (\S+)`).FindStringSubmatch(h.out.String())
	require.Len(t, path, 2)
	assert.FileExists(t, path[1])

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "backup", "-list"))
	assert.Contains(t, h.out.String(), filepath.Base(path[1]))

	require.Equal(t, subcommands.ExitSuccess, h.run(t, "backup", "-verify", path[1]))
	assert.Equal(t, subcommands.ExitFailure, h.run(t, "backup", "-verify", filepath.Join(t.TempDir(), "nope.db")))
}
