package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/qagentic/qagentic-go/types"
	"github.com/qagentic/qagentic-go/ui"
)

// ConsoleSink prints a run banner, one line per reported test, and a summary
// panel. It is purely presentational and carries no state between calls.
type ConsoleSink struct {
	out  io.Writer
	rich bool
}

// NewConsoleSink writes to out (os.Stdout when nil). Rich mode renders the
// banner and summary as styled tables and colors the per-test glyphs.
func NewConsoleSink(out io.Writer, rich bool) *ConsoleSink {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleSink{out: out, rich: rich}
}

func (s *ConsoleSink) Name() string { return "console" }

// StartRun prints the run banner.
func (s *ConsoleSink) StartRun(run *types.TestRunResult) error {
	if s.rich {
		t := table.NewWriter()
		t.SetOutputMirror(s.out)
		t.SetTitle("QAgentic Test Run")
		t.AppendRow(table.Row{"Project", run.ProjectName})
		t.AppendRow(table.Row{"Environment", run.Environment})
		t.SetStyle(table.StyleColoredBright)
		t.Render()
		return nil
	}

	fmt.Fprintf(s.out, "\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(s.out, "QAgentic Test Run - %s\n", run.ProjectName)
	fmt.Fprintf(s.out, "Environment: %s\n", run.Environment)
	fmt.Fprintf(s.out, "%s\n\n", strings.Repeat("=", 60))
	return nil
}

// ReportTest prints one glyph line, plus a truncated error excerpt and the
// step tree when the test did not pass.
func (s *ConsoleSink) ReportTest(test *types.TestResult) error {
	glyph, color := statusGlyph(test.Status)

	if s.rich {
		fmt.Fprintf(s.out, "  %s %s\n", color.Sprint(glyph), test.Name)
		if test.ErrorMessage != "" {
			excerpt := text.Colors{text.FgRed, text.Faint}.Sprint(truncateError(test.ErrorMessage))
			fmt.Fprintf(s.out, "    %s\n", excerpt)
		}
	} else {
		fmt.Fprintf(s.out, "  %s %s\n", glyph, test.Name)
		if test.ErrorMessage != "" {
			fmt.Fprintf(s.out, "    Error: %s\n", truncateError(test.ErrorMessage))
		}
	}

	// Steps are only worth the screen space when something went wrong.
	if test.Status == types.StatusFailed || test.Status == types.StatusBroken {
		s.writeSteps(test.Steps, 1, nil)
	}
	return nil
}

// writeSteps renders a step tree with box-drawing prefixes, one line per
// step, recursing into children.
func (s *ConsoleSink) writeSteps(steps []*types.Step, depth int, parentIsLast []bool) {
	for i, step := range steps {
		isLast := i == len(steps)-1
		prefix := ui.BuildTreePrefix(depth, isLast, parentIsLast)
		glyph, color := statusGlyph(step.Status)
		if s.rich {
			glyph = color.Sprint(glyph)
		}

		line := fmt.Sprintf("    %s%s %s", prefix, glyph, step.Name)
		if step.Error != "" {
			line += ": " + truncateError(step.Error)
		}
		fmt.Fprintln(s.out, line)

		s.writeSteps(step.Children, depth+1, append(parentIsLast, isLast))
	}
}

// EndRun prints the run summary panel with counts and pass rate.
func (s *ConsoleSink) EndRun(run *types.TestRunResult) error {
	if s.rich {
		icon := "✗"
		if run.IsSuccessful() {
			icon = "✓"
		}

		t := table.NewWriter()
		t.SetOutputMirror(s.out)
		t.SetTitle(fmt.Sprintf("%s Test Run Complete", icon))
		t.AppendHeader(table.Row{"Status", "Count"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Name: "Count", Align: text.AlignRight},
		})
		t.AppendRow(table.Row{"Passed", run.Passed})
		t.AppendRow(table.Row{"Failed", run.Failed})
		t.AppendRow(table.Row{"Broken", run.Broken})
		t.AppendRow(table.Row{"Skipped", run.Skipped})
		t.AppendSeparator()
		t.AppendRow(table.Row{"Pass Rate", fmt.Sprintf("%.1f%%", run.PassRate())})
		t.AppendRow(table.Row{"Duration", formatDuration(run.Duration())})
		t.AppendFooter(table.Row{"Total", run.Total})

		if run.IsSuccessful() {
			t.SetStyle(table.StyleColoredBlackOnGreenWhite)
		} else {
			t.SetStyle(table.StyleColoredBlackOnRedWhite)
		}
		t.Render()
		return nil
	}

	const width = 46
	icon := "✗"
	if run.IsSuccessful() {
		icon = "✓"
	}

	var b strings.Builder
	b.WriteString(ui.BuildBoxHeader(fmt.Sprintf("%s Test Run Complete", icon), width))
	b.WriteString(ui.BuildBoxLine(fmt.Sprintf("Passed    %d", run.Passed), width))
	b.WriteString(ui.BuildBoxLine(fmt.Sprintf("Failed    %d", run.Failed), width))
	b.WriteString(ui.BuildBoxLine(fmt.Sprintf("Broken    %d", run.Broken), width))
	b.WriteString(ui.BuildBoxLine(fmt.Sprintf("Skipped   %d", run.Skipped), width))
	b.WriteString(ui.BuildBoxLine(fmt.Sprintf("Total     %d", run.Total), width))
	b.WriteString(ui.BuildBoxLine(fmt.Sprintf("Pass rate %.1f%%", run.PassRate()), width))
	b.WriteString(ui.BuildBoxLine("Duration  "+formatDuration(run.Duration()), width))
	b.WriteString(ui.BuildBoxFooter(width))
	fmt.Fprintf(s.out, "\n%s\n", b.String())
	return nil
}

// statusGlyph returns the one-character marker and color for a status line.
func statusGlyph(status types.Status) (string, text.Colors) {
	switch status {
	case types.StatusPassed:
		return "✓", text.Colors{text.FgGreen}
	case types.StatusFailed:
		return "✗", text.Colors{text.FgRed}
	case types.StatusBroken:
		return "!", text.Colors{text.FgYellow}
	case types.StatusSkipped:
		return "○", text.Colors{text.FgBlue}
	default:
		return "?", text.Colors{text.FgWhite}
	}
}

const errorExcerptLen = 100

func truncateError(msg string) string {
	if len(msg) > errorExcerptLen {
		return msg[:errorExcerptLen] + "..."
	}
	return msg
}
