package main

import (
	"context"
	"os"

	"github.com/fatih/color"

	"dreams/internal/cli"
	"dreams/internal/ctl"
)

func main() {
	cli.LoadEnvFile()

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := ctl.NewRootCommand(ctl.Options{}).ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
