package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/luisfhm/finanzas/internal/app"
	"github.com/luisfhm/finanzas/internal/common"
)

type versionCmd struct {
	short bool
}

func (*versionCmd) Name() string     { return "version" }
func (*versionCmd) Synopsis() string { return "Print version and active configuration" }
func (*versionCmd) Usage() string    { return "version [-short]:\n  Print build information.\n" }
func (c *versionCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.short, "short", false, "Print only the version string")
}

func (c *versionCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.short {
		fmt.Println(common.GetFullVersion())
		return subcommands.ExitSuccess
	}
	cfg, err := common.LoadConfig(app.ResolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return subcommands.ExitFailure
	}
	common.PrintBanner(os.Stdout, cfg)
	return subcommands.ExitSuccess
}
