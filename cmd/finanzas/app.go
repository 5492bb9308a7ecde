package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"

	"github.com/luisfhm/finanzas/internal/app"
)

// openApp builds the application from the global flags and returns it with
// the effective user.
func openApp(ctx context.Context) (*app.App, string, error) {
	a, err := app.NewApp(ctx, *configPath)
	if err != nil {
		return nil, "", err
	}
	user := *userFlag
	if user == "" {
		user = a.Config.DefaultUser
	}
	return a, user, nil
}

// printMarkdown renders md for the terminal, or prints it as is when raw.
func printMarkdown(md string, raw bool) {
	if raw {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Fprintf(os.Stderr, "warning: markdown rendering failed: %v\n", err)
	fmt.Print(md)
}
