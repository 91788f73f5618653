package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/aristath/tradejournal/internal/modules/journal"
)

type buyCmd struct {
	rt       *Runtime
	symbol   string
	date     string
	quantity float64
	price    float64
	note     string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a buy" }
func (*buyCmd) Usage() string {
	return `journal buy -symbol <symbol> -q <quantity> -p <price> [-d <date>] [-note <text>]

  Records a purchase. The date defaults to today.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "Ticker symbol.")
	f.StringVar(&c.date, "d", "", "Buy date (YYYY-MM-DD). Defaults to today.")
	f.Float64Var(&c.quantity, "q", 0, "Quantity bought.")
	f.Float64Var(&c.price, "p", 0, "Price per unit.")
	f.StringVar(&c.note, "note", "", "Optional note.")
}

func (c *buyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	date, err := parseDateFlag(c.date)
	if err != nil {
		return c.rt.usageError("%v", err)
	}

	container, err := c.rt.open(ctx)
	if err != nil {
		return c.rt.fail(err)
	}

	in := journal.BuyInput{
		Symbol:   c.symbol,
		BuyDate:  date,
		Quantity: c.quantity,
		BuyPrice: c.price,
	}
	if c.note != "" {
		in.Note = &c.note
	}

	buy, err := container.Journal.RecordBuy(ctx, in)
	if err != nil {
		return c.rt.fail(err)
	}

	fmt.Fprintf(c.rt.Out, "Recorded buy %s: %s %g @ %g on %s\n",
		buy.ID, buy.Symbol, buy.Quantity, buy.BuyPrice, buy.BuyDate.Format(journal.DateLayout))
	return subcommands.ExitSuccess
}

type sellCmd struct {
	rt       *Runtime
	buyID    string
	date     string
	quantity float64
	price    float64
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record a sell against a buy" }
func (*sellCmd) Usage() string {
	return `journal sell -buy <buy id> -q <quantity> -p <price> [-d <date>]

  Records a sale of part or all of a buy's remaining quantity.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.buyID, "buy", "", "Id of the buy being sold.")
	f.StringVar(&c.date, "d", "", "Sell date (YYYY-MM-DD). Defaults to today.")
	f.Float64Var(&c.quantity, "q", 0, "Quantity sold.")
	f.Float64Var(&c.price, "p", 0, "Price per unit.")
}

func (c *sellCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	date, err := parseDateFlag(c.date)
	if err != nil {
		return c.rt.usageError("%v", err)
	}

	container, err := c.rt.open(ctx)
	if err != nil {
		return c.rt.fail(err)
	}

	sell, err := container.Journal.RecordSell(ctx, journal.SellInput{
		BuyID:     c.buyID,
		SellDate:  date,
		Quantity:  c.quantity,
		SellPrice: c.price,
	})
	if err != nil {
		return c.rt.fail(err)
	}

	fmt.Fprintf(c.rt.Out, "Recorded sell %s: %g @ %g on %s\n",
		sell.ID, sell.Quantity, sell.SellPrice, sell.SellDate.Format(journal.DateLayout))
	return subcommands.ExitSuccess
}

type noteCmd struct {
	rt    *Runtime
	clear bool
}

func (*noteCmd) Name() string     { return "note" }
func (*noteCmd) Synopsis() string { return "set or clear the note on a buy" }
func (*noteCmd) Usage() string {
	return `journal note <buy id> <text>
journal note -clear <buy id>
`
}

func (c *noteCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.clear, "clear", false, "Remove the note.")
}

func (c *noteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var note *string
	switch {
	case c.clear && f.NArg() == 1:
	case !c.clear && f.NArg() == 2:
		text := f.Arg(1)
		note = &text
	default:
		return c.rt.usageError("expected a buy id and a note, or -clear and a buy id")
	}

	container, err := c.rt.open(ctx)
	if err != nil {
		return c.rt.fail(err)
	}

	buy, err := container.Journal.UpdateBuyNote(ctx, f.Arg(0), note)
	if err != nil {
		return c.rt.fail(err)
	}
	fmt.Fprintf(c.rt.Out, "Updated note on %s (%s)\n", buy.ID, buy.Symbol)
	return subcommands.ExitSuccess
}

type listCmd struct {
	rt    *Runtime
	sells bool
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list buys, or the sells of one buy" }
func (*listCmd) Usage() string {
	return `journal list [-sells] [<buy id>]

  Without arguments lists all buys, newest buy date first.
  With a buy id lists the sells recorded against it. -sells lists every sell.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.sells, "sells", false, "List every sell instead of buys.")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		return c.rt.usageError("at most one buy id")
	}

	container, err := c.rt.open(ctx)
	if err != nil {
		return c.rt.fail(err)
	}

	if f.NArg() == 1 || c.sells {
		var sells []journal.Sell
		if f.NArg() == 1 {
			if _, err := container.Journal.GetBuy(ctx, f.Arg(0)); err != nil {
				return c.rt.fail(err)
			}
			sells, err = container.Journal.ListSells(ctx, f.Arg(0))
		} else {
			sells, err = container.Journal.ListAllSells(ctx)
		}
		if err != nil {
			return c.rt.fail(err)
		}
		c.printSells(sells)
		return subcommands.ExitSuccess
	}

	buys, err := container.Journal.ListBuys(ctx)
	if err != nil {
		return c.rt.fail(err)
	}

	w := c.rt.table()
	fmt.Fprintln(w, "ID\tSYMBOL\tDATE\tQUANTITY\tPRICE\tNOTE")
	for _, b := range buys {
		note := ""
		if b.Note != nil {
			note = *b.Note
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%s\n",
			b.ID, b.Symbol, b.BuyDate.Format(journal.DateLayout), b.Quantity, b.BuyPrice, note)
	}
	_ = w.Flush()
	return subcommands.ExitSuccess
}

func (c *listCmd) printSells(sells []journal.Sell) {
	w := c.rt.table()
	fmt.Fprintln(w, "ID\tBUY\tDATE\tQUANTITY\tPRICE")
	for _, s := range sells {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\n",
			s.ID, s.BuyID, s.SellDate.Format(journal.DateLayout), s.Quantity, s.SellPrice)
	}
	_ = w.Flush()
}

type availableCmd struct {
	rt *Runtime
}

func (*availableCmd) Name() string     { return "available" }
func (*availableCmd) Synopsis() string { return "list buys with quantity left to sell" }
func (*availableCmd) Usage() string {
	return `journal available
`
}

func (*availableCmd) SetFlags(*flag.FlagSet) {}

func (c *availableCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := c.rt.open(ctx)
	if err != nil {
		return c.rt.fail(err)
	}

	lots, err := container.Journal.ListAvailableForSell(ctx)
	if err != nil {
		return c.rt.fail(err)
	}

	w := c.rt.table()
	fmt.Fprintln(w, "ID\tSYMBOL\tDATE\tBOUGHT\tAVAILABLE\tPRICE")
	for _, l := range lots {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%g\n",
			l.BuyID, l.Symbol, l.BuyDate.Format(journal.DateLayout), l.Quantity, l.AvailableQuantity, l.BuyPrice)
	}
	_ = w.Flush()
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	rt *Runtime
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show per-symbol positions and realized P&L" }
func (*summaryCmd) Usage() string {
	return `journal summary
`
}

func (*summaryCmd) SetFlags(*flag.FlagSet) {}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := c.rt.open(ctx)
	if err != nil {
		return c.rt.fail(err)
	}

	summaries, err := container.Journal.Summary(ctx)
	if err != nil {
		return c.rt.fail(err)
	}

	w := c.rt.table()
	fmt.Fprintln(w, "SYMBOL\tHELD\tAVG COST\tOPEN COST\tPROCEEDS\tREALIZED P&L")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%g\t%.4f\t%.2f\t%.2f\t%.2f\n",
			s.Symbol, s.QuantityHeld, s.AverageBuyPrice, s.OpenCost, s.Proceeds, s.RealizedPnL)
	}
	_ = w.Flush()
	return subcommands.ExitSuccess
}

type exportCmd struct {
	rt     *Runtime
	format string
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write a snapshot of all buys and sells" }
func (*exportCmd) Usage() string {
	return `journal export [-f json|msgpack] [-o <file>]

  Writes every buy and sell. Output goes to stdout unless -o is given.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "f", "json", "Snapshot format (json or msgpack).")
	f.StringVar(&c.output, "o", "", "Output file.")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) (status subcommands.ExitStatus) {
	format, err := journal.ParseFormat(c.format)
	if err != nil {
		return c.rt.usageError("%v", err)
	}

	container, err := c.rt.open(ctx)
	if err != nil {
		return c.rt.fail(err)
	}

	snap, err := container.Journal.Snapshot(ctx)
	if err != nil {
		return c.rt.fail(err)
	}

	out := c.rt.Out
	if c.output != "" {
		file, err := os.Create(c.output)
		if err != nil {
			return c.rt.fail(err)
		}
		defer func() {
			if err := file.Close(); err != nil {
				status = c.rt.fail(err)
			}
		}()
		out = file
	}

	if err := journal.EncodeSnapshot(out, snap, format); err != nil {
		return c.rt.fail(err)
	}
	return subcommands.ExitSuccess
}

type seedCmd struct {
	rt *Runtime
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "record a sample buy for trying out the journal" }
func (*seedCmd) Usage() string {
	return `journal seed
`
}

func (*seedCmd) SetFlags(*flag.FlagSet) {}

func (c *seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := c.rt.open(ctx)
	if err != nil {
		return c.rt.fail(err)
	}

	buy, err := container.Journal.SeedSample(ctx)
	if err != nil {
		return c.rt.fail(err)
	}
	fmt.Fprintf(c.rt.Out, "Seeded sample buy %s (%s)\n", buy.ID, buy.Symbol)
	return subcommands.ExitSuccess
}

// parseDateFlag parses a YYYY-MM-DD flag value, defaulting to today
func parseDateFlag(value string) (time.Time, error) {
	if value == "" {
		return journal.CalendarDate(time.Now()), nil
	}
	return journal.ParseDate(value)
}
