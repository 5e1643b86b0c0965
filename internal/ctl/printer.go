package ctl

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"dreams/internal/core"
)

// ColorMode selects when the printer emits ANSI escapes.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

const calendarWidth = len("Su Mo Tu We Th Fr Sa")

// Printer renders dreams and calendars for the terminal.
type Printer struct {
	out io.Writer

	title      *color.Color
	plain      *color.Color
	dream      *color.Color
	today      *color.Color
	todayDream *color.Color
	label      *color.Color
	warn       *color.Color
}

func NewPrinter(out io.Writer, mode ColorMode) *Printer {
	p := &Printer{
		out:        out,
		title:      color.New(color.FgWhite, color.Italic),
		plain:      color.New(color.Faint),
		dream:      color.New(color.Bold),
		today:      color.New(color.Underline),
		todayDream: color.New(color.Bold, color.Underline),
		label:      color.New(color.FgCyan),
		warn:       color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.title, p.plain, p.dream, p.today, p.todayDream, p.label, p.warn} {
		switch mode {
		case ColorAlways:
			c.EnableColor()
		case ColorNever:
			c.DisableColor()
		}
	}
	return p
}

// Calendar prints a month grid. Days with a dream are bold and today is underlined.
func (p *Printer) Calendar(g core.MonthGrid) {
	heading := fmt.Sprintf("%s %d", g.Month, g.Year)
	mid := (calendarWidth - len(heading)) / 2
	if mid < 0 {
		mid = 0
	}
	p.title.Fprintf(p.out, "%s%s\n", strings.Repeat(" ", mid), heading)
	fmt.Fprintln(p.out, "Su Mo Tu We Th Fr Sa")

	for i, c := range g.Cells {
		if i > 0 {
			if i%7 == 0 {
				fmt.Fprint(p.out, "\n")
			} else {
				fmt.Fprint(p.out, " ")
			}
		}
		if c.Empty() {
			fmt.Fprint(p.out, "  ")
			continue
		}
		p.dayColor(c).Fprintf(p.out, "%2d", c.Day)
	}
	fmt.Fprint(p.out, "\n\n")

	summary := fmt.Sprintf("%d dream", g.DreamCount)
	if g.DreamCount != 1 {
		summary += "s"
	}
	if g.Filter != "" {
		summary += fmt.Sprintf(" with emotion %q", g.Filter)
	}
	fmt.Fprintln(p.out, summary)
	if len(g.Skipped) > 0 {
		p.warn.Fprintf(p.out, "%d skipped: unreadable date\n", len(g.Skipped))
	}
	if len(g.Emotions) > 0 {
		p.label.Fprint(p.out, "Emotions: ")
		fmt.Fprintln(p.out, core.JoinEmotions(g.Emotions))
	}
}

func (p *Printer) dayColor(c core.Cell) *color.Color {
	switch {
	case c.IsToday && c.HasDream:
		return p.todayDream
	case c.IsToday:
		return p.today
	case c.HasDream:
		return p.dream
	default:
		return p.plain
	}
}

// Dream prints every field of a record.
func (p *Printer) Dream(r core.DreamRecord) {
	f := core.Decode(r)
	p.dream.Fprintf(p.out, "#%d %s\n", r.ID, r.Name)
	p.field("Date", f.DreamDate)
	p.field("Lucid", yesNo(f.Lucidity))
	p.field("Recurring", yesNo(f.Recurring))
	p.field("Sleep (h)", f.SleepDuration)
	p.field("Room temp", f.RoomTemp)
	p.field("Stress", f.StressBeforeSleep)
	p.field("Emotions", f.EmotionsText())
	if strings.TrimSpace(r.Description) != "" {
		fmt.Fprintf(p.out, "\n%s\n", r.Description)
	}
}

func (p *Printer) field(name, value string) {
	if value == "" {
		value = "-"
	}
	p.label.Fprintf(p.out, "  %-10s ", name+":")
	fmt.Fprintln(p.out, value)
}

// List prints one line per dream.
func (p *Printer) List(records []core.DreamRecord) {
	for _, r := range records {
		date := "????-??-??"
		if r.DreamDate != nil {
			date = *r.DreamDate
		}
		p.label.Fprintf(p.out, "%5d ", r.ID)
		fmt.Fprintf(p.out, "%s  %s", date, r.Name)
		if len(r.Emotions) > 0 {
			p.plain.Fprintf(p.out, "  [%s]", core.JoinEmotions(r.Emotions))
		}
		fmt.Fprintln(p.out)
	}
}

// Emotions prints one tag per line.
func (p *Printer) Emotions(tags []string) {
	if len(tags) == 0 {
		p.warn.Fprintln(p.out, "no emotions recorded")
		return
	}
	for _, t := range tags {
		fmt.Fprintln(p.out, t)
	}
}

// Messagef prints a one-line status message.
func (p *Printer) Messagef(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
