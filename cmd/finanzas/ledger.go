package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/models"
	"github.com/luisfhm/finanzas/internal/services/ledger"
)

// entryFlags binds the editable transaction fields to a flag set.
type entryFlags struct {
	date, class, ticker, quantity, price string
	operation, venue, sector, fee, manual string
}

func (e *entryFlags) register(f *flag.FlagSet) {
	f.StringVar(&e.date, "date", "", "Trade date (YYYY-MM-DD, default today)")
	f.StringVar(&e.class, "type", "", "Asset class: Acción/ETF, Cripto, CETES, Inmueble, Otro")
	f.StringVar(&e.ticker, "ticker", "", "Instrument ticker")
	f.StringVar(&e.quantity, "qty", "", "Quantity")
	f.StringVar(&e.price, "price", "", "Unit purchase price")
	f.StringVar(&e.operation, "op", "Compra", "Operation: Compra or Venta")
	f.StringVar(&e.venue, "venue", "", "Broker or platform")
	f.StringVar(&e.sector, "sector", "", "Sector (detected for equities when empty)")
	f.StringVar(&e.fee, "fee", "0", "Fee percent")
	f.StringVar(&e.manual, "manual", "", "Manual unit price for instruments without a live quote")
}

func (e *entryFlags) raw() models.RawEntry {
	return models.RawEntry{
		Date:        e.date,
		AssetClass:  e.class,
		Ticker:      e.ticker,
		Quantity:    e.quantity,
		UnitPrice:   e.price,
		Operation:   e.operation,
		Venue:       e.venue,
		Sector:      e.sector,
		FeePercent:  e.fee,
		ManualPrice: e.manual,
	}
}

// overlay copies the explicitly set flags of f onto raw.
func (e *entryFlags) overlay(f *flag.FlagSet, raw models.RawEntry) models.RawEntry {
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "date":
			raw.Date = e.date
		case "type":
			raw.AssetClass = e.class
		case "ticker":
			raw.Ticker = e.ticker
		case "qty":
			raw.Quantity = e.quantity
		case "price":
			raw.UnitPrice = e.price
		case "op":
			raw.Operation = e.operation
		case "venue":
			raw.Venue = e.venue
		case "sector":
			raw.Sector = e.sector
		case "fee":
			raw.FeePercent = e.fee
		case "manual":
			raw.ManualPrice = e.manual
		}
	})
	return raw
}

type addCmd struct {
	entry entryFlags
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "Record a purchase or sale" }
func (*addCmd) Usage() string {
	return `add -type Cripto -ticker BTC -qty 0.5 -price 1000000 [-op Venta] [-venue GBM] [-fee 0.25] [-manual 1200]:
  Validate and append a transaction to the ledger.
`
}
func (c *addCmd) SetFlags(f *flag.FlagSet) { c.entry.register(f) }

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, user, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	raw := c.entry.raw()
	if raw.Date == "" {
		raw.Date = time.Now().Format(ledger.DateLayout)
	}
	if !a.PriceService.Online(ctx) {
		fmt.Fprintln(os.Stderr, "warning: price providers unreachable; the entry is saved and valued later")
	}

	tx, err := a.PortfolioService.AddEntry(ctx, user, raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Added %s %s %s %s @ %s (id %s)\n",
		tx.Operation.Label(), tx.Quantity, tx.Ticker, tx.AssetClass.Label(),
		common.FormatMoney(tx.UnitPrice, a.Config.BaseCurrency), tx.ID)
	return subcommands.ExitSuccess
}

type editCmd struct {
	entry entryFlags
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "Replace fields of a recorded transaction" }
func (*editCmd) Usage() string {
	return `edit [flags] <id>:
  Overwrite the given fields of a transaction. Unset flags keep the stored value.
`
}
func (c *editCmd) SetFlags(f *flag.FlagSet) { c.entry.register(f) }

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "error: edit takes exactly one transaction id")
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)

	a, user, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	txs, err := a.PortfolioService.List(ctx, user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	var current *models.Transaction
	for i := range txs {
		if txs[i].ID == id {
			current = &txs[i]
			break
		}
	}
	if current == nil {
		fmt.Fprintf(os.Stderr, "error: transaction %s not found\n", id)
		return subcommands.ExitFailure
	}

	raw := c.entry.overlay(f, ledger.ToRaw(*current))
	tx, err := a.PortfolioService.EditEntry(ctx, user, id, raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Updated %s: %s %s %s\n", tx.ID, tx.Operation.Label(), tx.Quantity, tx.Ticker)
	return subcommands.ExitSuccess
}

type deleteCmd struct{}

func (*deleteCmd) Name() string             { return "delete" }
func (*deleteCmd) Synopsis() string         { return "Remove a transaction" }
func (*deleteCmd) Usage() string            { return "delete <id>...:\n  Remove the given transactions.\n" }
func (*deleteCmd) SetFlags(f *flag.FlagSet) {}

func (*deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "error: delete needs at least one transaction id")
		return subcommands.ExitUsageError
	}
	a, user, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	for _, id := range f.Args() {
		if err := a.PortfolioService.DeleteEntry(ctx, user, id); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Deleted %s\n", id)
	}
	return subcommands.ExitSuccess
}

type listCmd struct {
	raw bool
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "Show the recorded transactions" }
func (*listCmd) Usage() string    { return "list [-raw]:\n  Print the ledger in insertion order.\n" }
func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "Print plain markdown")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, user, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	txs, err := a.PortfolioService.List(ctx, user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(transactionsTable(txs, a.Config.BaseCurrency), c.raw)
	return subcommands.ExitSuccess
}

func transactionsTable(txs []models.Transaction, currency string) string {
	if len(txs) == 0 {
		return "No transactions recorded.\n"
	}
	var b strings.Builder
	b.WriteString("| ID | Date | Type | Ticker | Op | Quantity | Price | Venue | Sector | Fee % | Manual |\n")
	b.WriteString("|---|---|---|---|---|--:|--:|---|---|--:|--:|\n")
	for _, tx := range txs {
		manual := ""
		if tx.ManualPrice.Valid {
			manual = common.FormatMoney(tx.ManualPrice.Decimal, currency)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			tx.ID, tx.Date.Format(ledger.DateLayout), tx.AssetClass.Label(), tx.Ticker,
			tx.Operation.Label(), tx.Quantity, common.FormatMoney(tx.UnitPrice, currency),
			tx.Venue, tx.Sector, tx.FeePercent, manual)
	}
	return b.String()
}

type importCmd struct{}

func (*importCmd) Name() string             { return "import" }
func (*importCmd) Synopsis() string         { return "Load transactions from a CSV ledger" }
func (*importCmd) Usage() string            { return "import <file.csv>:\n  Validate every row, then store them. Nothing is written on error.\n" }
func (*importCmd) SetFlags(f *flag.FlagSet) {}

func (*importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "error: import takes exactly one file")
		return subcommands.ExitUsageError
	}
	file, err := os.Open(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer file.Close()

	a, user, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	n, err := a.PortfolioService.Import(ctx, user, file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Imported %d transactions\n", n)
	return subcommands.ExitSuccess
}

type exportCmd struct {
	valued bool
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "Write the ledger as CSV" }
func (*exportCmd) Usage() string {
	return "export [-valued] [-o file.csv]:\n  Write the ledger to stdout or a file. -valued fills the current price and value columns.\n"
}
func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.valued, "valued", false, "Include current price, value and gain/loss columns")
	f.StringVar(&c.output, "o", "", "Output file (default stdout)")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, user, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	w := os.Stdout
	if c.output != "" {
		out, err := os.Create(c.output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return subcommands.ExitFailure
		}
		defer out.Close()
		w = out
	}
	if err := a.PortfolioService.Export(ctx, user, w, c.valued); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
