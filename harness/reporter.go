package harness

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Reporter receives case progress events.
type Reporter interface {
	CaseStarted(name string)
	CaseFinished(result CaseResult)
	CaseSkipped(name string, reason string)
}

// ConsoleReporter prints case progress in a human readable form.
type ConsoleReporter struct {
	out  io.Writer
	pass *color.Color
	fail *color.Color
	skip *color.Color
}

// NewConsoleReporter creates a reporter writing to out.
//
// Colors follow the fatih/color terminal detection unless noColor is set.
func NewConsoleReporter(out io.Writer, noColor bool) *ConsoleReporter {
	m := &ConsoleReporter{
		out:  out,
		pass: color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
		skip: color.New(color.FgYellow),
	}
	if noColor {
		m.pass.DisableColor()
		m.fail.DisableColor()
		m.skip.DisableColor()
	}
	return m
}

func (m *ConsoleReporter) CaseStarted(name string) {
	fmt.Fprintf(m.out, "[%s]\n", name)
}

func (m *ConsoleReporter) CaseFinished(result CaseResult) {
	if result.Err == nil {
		fmt.Fprintf(m.out, "  %s %s (%s)\n", m.pass.Sprint("PASS"), result.Name, result.Duration)
		return
	}

	fmt.Fprintf(m.out, "  %s %s (%s)\n", m.fail.Sprint("FAIL"), result.Name, result.Duration)
	for _, line := range strings.Split(result.Err.Error(), "\n") {
		fmt.Fprintf(m.out, "    %s\n", line)
	}
}

func (m *ConsoleReporter) CaseSkipped(name string, reason string) {
	fmt.Fprintf(m.out, "  %s %s (%s)\n", m.skip.Sprint("SKIP"), name, reason)
}

// Summary prints the totals of the run.
func (m *ConsoleReporter) Summary(results Results) {
	skipped := 0
	for _, r := range results.Cases {
		if r.Skipped {
			skipped++
		}
	}
	passed := len(results.Cases) - skipped - len(results.Failures)

	fmt.Fprintln(m.out)
	fmt.Fprintf(m.out, "%d passed, %d failed, %d skipped\n", passed, len(results.Failures), skipped)
	for _, r := range results.Failures {
		fmt.Fprintf(m.out, "  %s %s: %v\n", m.fail.Sprint("FAILED"), r.Name, r.Err)
	}
}
