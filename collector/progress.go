package collector

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// Verbosity levels understood by NewProgressIndicator
const (
	VerbosityQuiet   = 0
	VerbosityDots    = 1
	VerbosityVerbose = 2
)

// ProgressIndicator interface for UI updates
type ProgressIndicator interface {
	StartTest(tc types.TestCase)
	CompleteTest(outcome types.TestOutcome)
	CompleteRun(report *types.RunReport)
}

// NewProgressIndicator returns the indicator matching the verbosity level
func NewProgressIndicator(verbosity int, w io.Writer) ProgressIndicator {
	switch {
	case verbosity <= VerbosityQuiet || w == nil:
		return NewNoOpProgressIndicator()
	case verbosity == VerbosityDots:
		return &dotsProgressIndicator{w: w}
	default:
		return &verboseProgressIndicator{w: w}
	}
}

// noOpProgressIndicator provides a no-op implementation of ProgressIndicator
type noOpProgressIndicator struct{}

// NewNoOpProgressIndicator creates a progress indicator that does nothing
func NewNoOpProgressIndicator() ProgressIndicator {
	return &noOpProgressIndicator{}
}

func (n *noOpProgressIndicator) StartTest(tc types.TestCase)            {}
func (n *noOpProgressIndicator) CompleteTest(outcome types.TestOutcome) {}
func (n *noOpProgressIndicator) CompleteRun(report *types.RunReport)    {}

// dotsProgressIndicator writes one character per completed test
type dotsProgressIndicator struct {
	w io.Writer
}

func (d *dotsProgressIndicator) StartTest(tc types.TestCase) {}

func (d *dotsProgressIndicator) CompleteTest(outcome types.TestOutcome) {
	fmt.Fprint(d.w, statusChar(outcome.Status))
}

func (d *dotsProgressIndicator) CompleteRun(report *types.RunReport) {
	writeRunFooter(d.w, report)
}

// verboseProgressIndicator writes one line per test
type verboseProgressIndicator struct {
	w io.Writer
}

func (v *verboseProgressIndicator) StartTest(tc types.TestCase) {
	fmt.Fprintf(v.w, "%s ... ", tc.Name)
	if tc.Description != "" {
		fmt.Fprintf(v.w, "(%s) ", tc.Description)
	}
}

func (v *verboseProgressIndicator) CompleteTest(outcome types.TestOutcome) {
	switch outcome.Status {
	case types.TestStatusPass:
		fmt.Fprintln(v.w, "ok")
	case types.TestStatusFail:
		fmt.Fprintln(v.w, "FAIL")
	case types.TestStatusError:
		fmt.Fprintln(v.w, "ERROR")
	case types.TestStatusSkip:
		fmt.Fprintf(v.w, "skipped %q\n", firstLine(outcome.Trace))
	}
}

func (v *verboseProgressIndicator) CompleteRun(report *types.RunReport) {
	writeRunFooter(v.w, report)
}

func writeRunFooter(w io.Writer, report *types.RunReport) {
	fmt.Fprintf(w, "\nRan %d tests\nTime Elapsed: %s\n", report.Stats.Total, report.WallClockTime().Round(time.Millisecond))

	if !report.Status().IsFailure() {
		fmt.Fprintln(w, "OK")
		return
	}
	var parts []string
	if report.Stats.Failed > 0 {
		parts = append(parts, fmt.Sprintf("failures=%d", report.Stats.Failed))
	}
	if report.Stats.Errored > 0 {
		parts = append(parts, fmt.Sprintf("errors=%d", report.Stats.Errored))
	}
	fmt.Fprintf(w, "FAILED (%s)\n", strings.Join(parts, ", "))
}

// statusChar returns the single character written by the dots indicator
func statusChar(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "."
	case types.TestStatusFail:
		return "F"
	case types.TestStatusError:
		return "E"
	case types.TestStatusSkip:
		return "S"
	default:
		return "?"
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		return s[:idx]
	}
	return s
}
