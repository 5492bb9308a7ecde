package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/models"
	"github.com/luisfhm/finanzas/internal/services/ledger"
)

type valueCmd struct {
	rows bool
	raw  bool
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "Value the portfolio at current prices" }
func (*valueCmd) Usage() string {
	return `value [-rows] [-raw]:
  Resolve current prices and print positions and totals in the base currency.
  Tickers without a live quote are listed; record a price with set-price.
`
}
func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.rows, "rows", false, "Also print every valued transaction")
	f.BoolVar(&c.raw, "raw", false, "Print plain markdown")
}

func (c *valueCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, user, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	val, err := a.PortfolioService.Value(ctx, user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}

	md := valuationMarkdown(val, c.rows)
	if a.PriceService.UsingFallbackRate() {
		md += fmt.Sprintf("\n_USD amounts converted at the fallback rate %v._\n", a.Config.Pricing.FallbackUSDRate)
	}
	printMarkdown(md, c.raw)
	return subcommands.ExitSuccess
}

func valuationMarkdown(val *models.Valuation, withRows bool) string {
	cur := val.BaseCurrency
	money := func(d decimal.NullDecimal) string {
		if !d.Valid {
			return "pending"
		}
		return common.FormatMoney(d.Decimal, cur)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolio %s (%s)\n\n", val.UserID, val.AsOf.Format(ledger.DateLayout))
	if len(val.Rows) == 0 {
		b.WriteString("No transactions recorded.\n")
		return b.String()
	}

	b.WriteString("| Type | Sector | Ticker | Quantity | Cost | Value | Gain/Loss | Fees |\n")
	b.WriteString("|---|---|---|--:|--:|--:|--:|--:|\n")
	for _, p := range val.Positions {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			p.Key.AssetClass.Label(), p.Key.Sector, p.Key.Ticker, p.Totals.Quantity,
			common.FormatMoney(p.Totals.CostBasis, cur), money(p.MarketValue()), money(p.GainLoss()),
			common.FormatMoney(p.Totals.Fees, cur))
	}

	t := val.Total
	fmt.Fprintf(&b, "\n**Cost:** %s  \n**Value:** %s  \n**Gain/Loss:** %s  \n**Fees:** %s\n",
		common.FormatMoney(t.CostBasis, cur), common.FormatMoney(t.MarketValue, cur),
		common.FormatMoney(t.GainLoss, cur), common.FormatMoney(t.Fees, cur))

	if withRows {
		b.WriteString("\n## Transactions\n\n| ID | Date | Ticker | Quantity | Price | Source | Value | Gain/Loss |\n")
		b.WriteString("|---|---|---|--:|--:|---|--:|--:|\n")
		for _, r := range val.Rows {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
				r.ID, r.Date.Format(ledger.DateLayout), r.Ticker, r.SignedQuantity(),
				money(r.CurrentPrice), r.Source, money(r.MarketValue), money(r.GainLoss))
		}
	}

	if !val.Complete() {
		fmt.Fprintf(&b, "\n**Pending prices:** %s. Totals exclude these; record them with `set-price TICKER=PRICE`.\n",
			strings.Join(val.Pending, ", "))
	}
	return b.String()
}

type setPriceCmd struct{}

func (*setPriceCmd) Name() string     { return "set-price" }
func (*setPriceCmd) Synopsis() string { return "Record manual prices for instruments without a live quote" }
func (*setPriceCmd) Usage() string {
	return `set-price TICKER=PRICE...:
  Store a manual unit price on every transaction of each ticker, then revalue.
`
}
func (*setPriceCmd) SetFlags(f *flag.FlagSet) {}

func (*setPriceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	prices, err := parsePrices(f.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, user, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	ids, err := a.PortfolioService.SetManualPrices(ctx, user, prices)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v (updated %d transactions before failing)\n", err, len(ids))
		return subcommands.ExitFailure
	}
	fmt.Printf("Updated %d transactions\n", len(ids))

	val, err := a.PortfolioService.Value(ctx, user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Portfolio value: %s\n", common.FormatMoney(val.Total.MarketValue, val.BaseCurrency))
	if !val.Complete() {
		fmt.Printf("Still pending: %s\n", strings.Join(val.Pending, ", "))
	}
	return subcommands.ExitSuccess
}

// parsePrices reads TICKER=PRICE arguments. Tickers are normalized and a
// repeated ticker keeps the last price.
func parsePrices(args []string) (map[string]decimal.Decimal, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no prices given")
	}
	prices := make(map[string]decimal.Decimal, len(args))
	for _, arg := range args {
		ticker, value, ok := strings.Cut(arg, "=")
		ticker = ledger.NormalizeTicker(ticker)
		if !ok || ticker == "" {
			return nil, fmt.Errorf("expected TICKER=PRICE, got %q", arg)
		}
		price, present, err := ledger.ParseAmount(value)
		if err != nil || !present {
			return nil, fmt.Errorf("bad price for %s: %q", ticker, value)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("price for %s must be positive", ticker)
		}
		prices[ticker] = price
	}
	return prices, nil
}

type simulateCmd struct {
	days    int
	classes string
	raw     bool
}

func (*simulateCmd) Name() string     { return "simulate" }
func (*simulateCmd) Synopsis() string { return "Replay holdings against recent daily closes" }
func (*simulateCmd) Usage() string {
	return `simulate [-days 30] [-class equity,crypto] [-raw]:
  Print the daily portfolio value over the lookback window.
`
}
func (c *simulateCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 30, "Lookback window in days")
	f.StringVar(&c.classes, "class", "", "Comma separated asset classes to include (default all with live prices)")
	f.BoolVar(&c.raw, "raw", false, "Print plain markdown")
}

func (c *simulateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	classes, err := parseClasses(c.classes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, user, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	ts, err := a.PortfolioService.Simulate(ctx, user, c.days, classes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(seriesMarkdown(ts), c.raw)
	return subcommands.ExitSuccess
}

func parseClasses(s string) ([]models.AssetClass, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var classes []models.AssetClass
	for _, part := range strings.Split(s, ",") {
		class, err := models.ParseAssetClass(part)
		if err != nil {
			return nil, err
		}
		classes = append(classes, class)
	}
	return classes, nil
}

func seriesMarkdown(ts *models.TimeSeries) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Simulation %s to %s\n\n", ts.From.Format(ledger.DateLayout), ts.To.Format(ledger.DateLayout))
	if ts.Empty() {
		b.WriteString("No price history available for the selected holdings.\n")
	} else {
		b.WriteString("| Date | Value |\n|---|--:|\n")
		for _, p := range ts.Points {
			fmt.Fprintf(&b, "| %s | %s |\n", p.Date.Format(ledger.DateLayout), common.FormatMoney(p.Total, ts.Currency))
		}
	}
	if len(ts.Skipped) > 0 {
		skipped := make([]string, 0, len(ts.Skipped))
		for _, s := range ts.Skipped {
			skipped = append(skipped, fmt.Sprintf("%s (%s)", s.Ticker, s.Reason))
		}
		sort.Strings(skipped)
		fmt.Fprintf(&b, "\n**Skipped:** %s\n", strings.Join(skipped, ", "))
	}
	return b.String()
}
