// Command finanzas records investment transactions and values the portfolio
// in the base currency.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var (
	configPath = flag.String("config", "", "Path to finanzas.toml (default: FINANZAS_CONFIG, then finanzas.toml next to the binary)")
	userFlag   = flag.String("user", "", "Ledger owner (default: default_user from config)")
)

func main() {
	completion().Complete(path.Base(os.Args[0]))

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&versionCmd{}, "")

	commander.Register(&addCmd{}, "ledger")
	commander.Register(&editCmd{}, "ledger")
	commander.Register(&deleteCmd{}, "ledger")
	commander.Register(&listCmd{}, "ledger")
	commander.Register(&importCmd{}, "ledger")
	commander.Register(&exportCmd{}, "ledger")

	commander.Register(&valueCmd{}, "valuation")
	commander.Register(&setPriceCmd{}, "valuation")
	commander.Register(&simulateCmd{}, "valuation")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
