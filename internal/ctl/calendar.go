package ctl

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dreams/internal/core"
)

type monthFlags struct {
	year  int
	month int
}

func (f *monthFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.year, "year", 0, "year to show (default: current year)")
	cmd.Flags().IntVar(&f.month, "month", 0, "month to show, 1-12 (default: current month)")
}

// resolve fills unset values from now and rejects months outside 1..12.
func (f *monthFlags) resolve(st *rootState) (int, int, error) {
	now := st.opts.Now()
	year, month := f.year, f.month
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
	}
	return year, month, nil
}

func newCalendarCommand(st *rootState) *cobra.Command {
	mf := &monthFlags{}
	var emotion string

	cmd := &cobra.Command{
		Use:     "calendar",
		Aliases: []string{"cal"},
		Short:   "Show a month with the days that have a dream",
		Example: `
dreamctl calendar
dreamctl calendar --year 2024 --month 2 --emotion fear
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := mf.resolve(st)
			if err != nil {
				return err
			}
			records, err := st.store.ListMonth(st.ctx(cmd), year, month)
			if err != nil {
				return fmt.Errorf("list %04d-%02d: %w", year, month, err)
			}
			grid, err := core.BuildGrid(year, month-1, records, strings.TrimSpace(emotion), st.opts.Now())
			if err != nil {
				return err
			}
			st.printer.Calendar(grid)
			return nil
		},
	}
	mf.bind(cmd)
	cmd.Flags().StringVar(&emotion, "emotion", "", "only mark dreams carrying this emotion")
	return cmd
}

func newEmotionsCommand(st *rootState) *cobra.Command {
	mf := &monthFlags{}
	cmd := &cobra.Command{
		Use:   "emotions",
		Short: "List the emotions recorded in a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := mf.resolve(st)
			if err != nil {
				return err
			}
			records, err := st.store.ListMonth(st.ctx(cmd), year, month)
			if err != nil {
				return fmt.Errorf("list %04d-%02d: %w", year, month, err)
			}
			st.printer.Emotions(core.EmotionIndex(records))
			return nil
		},
	}
	mf.bind(cmd)
	return cmd
}

func newFindCommand(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "find <emotion>",
		Short: "List every dream carrying an emotion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := st.store.ListByEmotion(st.ctx(cmd), args[0])
			if err != nil {
				return fmt.Errorf("find %q: %w", args[0], err)
			}
			if len(records) == 0 {
				return fmt.Errorf("no dreams found with emotion %q", args[0])
			}
			st.printer.List(records)
			return nil
		},
	}
}
