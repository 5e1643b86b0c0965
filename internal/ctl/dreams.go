package ctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"dreams/internal/core"
)

// dreamFlags binds command line flags to the fields of a dream form.
type dreamFlags struct {
	form     core.FormState
	emotions string
}

func (f *dreamFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.form.Name, "name", "", "short title of the dream")
	fs.StringVar(&f.form.DreamDate, "date", "", "date of the dream, YYYY-MM-DD (add defaults to today)")
	fs.StringVar(&f.form.Description, "description", "", "free text")
	fs.BoolVar(&f.form.Lucidity, "lucid", false, "the dream was lucid")
	fs.BoolVar(&f.form.Recurring, "recurring", false, "the dream is recurring")
	fs.StringVar(&f.form.SleepDuration, "sleep", "", "hours slept")
	fs.StringVar(&f.form.RoomTemp, "room-temp", "", "room temperature")
	fs.StringVar(&f.form.StressBeforeSleep, "stress", "", "stress before sleep, 1-10")
	fs.StringVar(&f.emotions, "emotions", "", "comma separated emotion tags")
}

// apply copies the flags the user set onto base.
func (f *dreamFlags) apply(cmd *cobra.Command, base core.FormState) core.FormState {
	setters := map[string]func(){
		"name":        func() { base.Name = f.form.Name },
		"date":        func() { base.DreamDate = f.form.DreamDate },
		"description": func() { base.Description = f.form.Description },
		"lucid":       func() { base.Lucidity = f.form.Lucidity },
		"recurring":   func() { base.Recurring = f.form.Recurring },
		"sleep":       func() { base.SleepDuration = f.form.SleepDuration },
		"room-temp":   func() { base.RoomTemp = f.form.RoomTemp },
		"stress":      func() { base.StressBeforeSleep = f.form.StressBeforeSleep },
		"emotions":    func() { base.Emotions = core.ParseEmotionList(f.emotions) },
	}
	for name, set := range setters {
		if cmd.Flags().Changed(name) {
			set()
		}
	}
	return base
}

func encodePayload(form core.FormState) (core.DreamPayload, error) {
	p, err := core.Encode(form)
	if err != nil {
		return core.DreamPayload{}, err
	}
	if err := p.Validate(); err != nil {
		return core.DreamPayload{}, err
	}
	return p, nil
}

func newShowCommand(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one dream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rec, err := st.store.GetDream(st.ctx(cmd), id)
			if err != nil {
				return err
			}
			st.printer.Dream(rec)
			return nil
		},
	}
}

func newAddCommand(st *rootState) *cobra.Command {
	df := &dreamFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new dream",
		Example: `
dreamctl add --name "Flying" --emotions "joy, awe" --sleep 7.5
dreamctl add --name "Exam" --date 2024-02-10 --stress 8 --recurring
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := core.FormState{
				DreamDate: st.opts.Now().Format(core.DateLayout),
				Emotions:  []string{},
			}
			payload, err := encodePayload(df.apply(cmd, base))
			if err != nil {
				return err
			}
			rec, err := st.store.CreateDream(st.ctx(cmd), payload)
			if err != nil {
				return fmt.Errorf("create dream: %w", err)
			}
			st.printer.Messagef("Created dream %d", rec.ID)
			st.printer.Dream(rec)
			return nil
		},
	}
	df.bind(cmd)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newEditCommand(st *rootState) *cobra.Command {
	df := &dreamFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a dream; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := st.ctx(cmd)
			rec, err := st.store.GetDream(ctx, id)
			if err != nil {
				return err
			}
			payload, err := encodePayload(df.apply(cmd, core.Decode(rec)))
			if err != nil {
				return err
			}
			updated, err := st.store.UpdateDream(ctx, id, payload)
			if err != nil {
				return fmt.Errorf("update dream: %w", err)
			}
			st.printer.Messagef("Updated dream %d", updated.ID)
			st.printer.Dream(updated)
			return nil
		},
	}
	df.bind(cmd)
	return cmd
}

func newDeleteCommand(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a dream",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rec, err := st.store.DeleteDream(st.ctx(cmd), id)
			if err != nil {
				return err
			}
			st.printer.Messagef("Deleted dream %d (%s)", rec.ID, rec.Name)
			return nil
		},
	}
}
