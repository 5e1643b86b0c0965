// Package ctl implements dreamctl, a terminal client for the dream journal API.
package ctl

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"dreams/internal/config"
	"dreams/internal/journal"
	"dreams/internal/journal/remote"
)

// Options configures the root command. A nil Store is replaced by a remote
// client built from the --api and --timeout flags.
type Options struct {
	Store journal.Store
	Out   io.Writer
	Now   func() time.Time
}

type rootState struct {
	opts    Options
	apiURL  string
	timeout time.Duration
	color   string

	store   journal.Store
	printer *Printer
}

// NewRootCommand builds the dreamctl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cfg := config.Load()
	st := &rootState{opts: opts}

	root := &cobra.Command{
		Use:           "dreamctl",
		Short:         "Browse and edit the dream journal from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.init()
		},
	}
	root.SetOut(opts.Out)

	pf := root.PersistentFlags()
	pf.StringVar(&st.apiURL, "api", cfg.RemoteAPIURL, "base URL of the dreams server (REMOTE_API_URL)")
	pf.DurationVar(&st.timeout, "timeout", cfg.RemoteTimeout, "request timeout")
	pf.StringVar(&st.color, "color", string(ColorAuto), "colorize output: auto, always or never")

	root.AddCommand(
		newCalendarCommand(st),
		newEmotionsCommand(st),
		newFindCommand(st),
		newShowCommand(st),
		newAddCommand(st),
		newEditCommand(st),
		newDeleteCommand(st),
	)
	return root
}

func (st *rootState) init() error {
	mode := ColorMode(st.color)
	switch mode {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid --color %q: must be auto, always or never", st.color)
	}
	st.printer = NewPrinter(st.opts.Out, mode)

	if st.opts.Store != nil {
		st.store = st.opts.Store
		return nil
	}
	cfg := &config.Config{RemoteAPIURL: st.apiURL, RemoteTimeout: st.timeout}
	if err := cfg.ValidateClient(); err != nil {
		return err
	}
	client, err := remote.New(st.apiURL, st.timeout)
	if err != nil {
		return err
	}
	st.store = client
	return nil
}

func (st *rootState) ctx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid dream id %q", arg)
	}
	return id, nil
}
