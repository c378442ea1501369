package pipeline

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Progress receives run progress. File is called before a file is
// analyzed and Done after its records were aggregated.
type Progress interface {
	Start(state RunState)
	File(index int, state RunState, name string)
	Done(state RunState)
	Finish(state RunState)
}

// NopProgress discards everything.
type NopProgress struct{}

func (NopProgress) Start(RunState) {}

func (NopProgress) File(int, RunState, string) {}

func (NopProgress) Done(RunState) {}

func (NopProgress) Finish(RunState) {}

// ConsolePrinter writes one line per file and the running totals.
type ConsolePrinter struct {
	w                io.Writer
	cyan, green, red func(...any) string
	yellow           func(...any) string
}

// NewConsolePrinter writes to w, colored when useColors is set.
func NewConsolePrinter(w io.Writer, useColors bool) *ConsolePrinter {
	p := &ConsolePrinter{w: w, cyan: fmt.Sprint, green: fmt.Sprint, red: fmt.Sprint, yellow: fmt.Sprint}
	if useColors {
		p.cyan = color.New(color.FgCyan).SprintFunc()
		p.green = color.New(color.FgGreen).SprintFunc()
		p.red = color.New(color.FgRed, color.Bold).SprintFunc()
		p.yellow = color.New(color.FgYellow).SprintFunc()
	}
	return p
}

// AutoPrinter writes to w, colored only when w is a terminal.
func AutoPrinter(w io.Writer) *ConsolePrinter {
	f, ok := w.(*os.File)
	return NewConsolePrinter(w, ok && term.IsTerminal(int(f.Fd())))
}

func (p *ConsolePrinter) Start(s RunState) {
	fmt.Fprintf(p.w, "%s %d file(s) to analyze (run %s)\n", p.cyan("codeaudit:"), s.Total, s.RunID)
}

func (p *ConsolePrinter) File(index int, s RunState, name string) {
	fmt.Fprintf(p.w, "%s %s\n", p.cyan(fmt.Sprintf("[%d/%d]", index, s.Total)), name)
}

func (p *ConsolePrinter) Done(s RunState) {
	fmt.Fprintf(p.w, "        %s metrics, %s issues so far\n", p.green(s.Metrics), p.yellow(s.Issues))
}

func (p *ConsolePrinter) Finish(s RunState) {
	fmt.Fprintf(p.w, "%s %d/%d file(s) processed, %d metric row(s), %d issue row(s)",
		p.cyan("codeaudit:"), s.Processed, s.Total, s.Metrics, s.Issues)
	if s.Failed > 0 || s.Skipped > 0 {
		fmt.Fprintf(p.w, ", %s", p.red(fmt.Sprintf("%d failed, %d unreadable", s.Failed, s.Skipped)))
	}
	if s.Cached > 0 {
		fmt.Fprintf(p.w, ", %d from cache", s.Cached)
	}
	fmt.Fprintln(p.w)
}
