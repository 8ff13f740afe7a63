package types

import (
	"fmt"
	"strings"
	"time"
)

// RunReport is the aggregate of a whole run.
// It is built by the collector and must be treated as read-only once finalized.
type RunReport struct {
	RunID       string
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Suites      []*SuiteResult
	Stats       Stats

	suiteIndex   map[string]int
	descriptions map[string]string // Descriptions of suites not created yet
	finalized    bool
}

// NewRunReport creates an empty report started at startTime
func NewRunReport(runID, title, description string, startTime time.Time) *RunReport {
	return &RunReport{
		RunID:       runID,
		Title:       title,
		Description: description,
		StartTime:   startTime,
		Suites:      make([]*SuiteResult, 0),
		suiteIndex:  make(map[string]int),
	}
}

// Suite returns the named suite, creating it at the end of the list on first use
func (r *RunReport) Suite(name string) *SuiteResult {
	if r.suiteIndex == nil {
		r.suiteIndex = make(map[string]int)
	}
	if idx, ok := r.suiteIndex[name]; ok {
		return r.Suites[idx]
	}
	suite := NewSuiteResult(name)
	if desc, ok := r.descriptions[name]; ok {
		suite.Description = desc
		delete(r.descriptions, name)
	}
	r.suiteIndex[name] = len(r.Suites)
	r.Suites = append(r.Suites, suite)
	return suite
}

// DescribeSuite sets the description of the named suite. A suite that has no
// outcomes yet picks it up when its first outcome arrives, so suite order
// stays first-encountered.
func (r *RunReport) DescribeSuite(name, description string) {
	if idx, ok := r.suiteIndex[name]; ok {
		r.Suites[idx].Description = description
		return
	}
	if r.descriptions == nil {
		r.descriptions = make(map[string]string)
	}
	r.descriptions[name] = description
}

// AddOutcome appends an outcome to its suite and updates the overall counts
func (r *RunReport) AddOutcome(outcome TestOutcome) {
	r.Suite(outcome.Case.Suite).Append(outcome)
	r.Stats.Add(outcome.Status, outcome.Duration)
}

// Finalize stamps the end time. Calling it more than once has no effect.
func (r *RunReport) Finalize(endTime time.Time) {
	if r.finalized {
		return
	}
	r.EndTime = endTime
	r.finalized = true
}

// Finalized reports whether the run has ended
func (r *RunReport) Finalized() bool {
	return r.finalized
}

// WallClockTime returns the time between run start and end
func (r *RunReport) WallClockTime() time.Duration {
	if r.EndTime.IsZero() || r.EndTime.Before(r.StartTime) {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Status returns the overall run status
func (r *RunReport) Status() TestStatus {
	return r.Stats.Status()
}

// Outcomes returns every outcome in suite order
func (r *RunReport) Outcomes() []TestOutcome {
	all := make([]TestOutcome, 0, r.Stats.Total)
	for _, suite := range r.Suites {
		all = append(all, suite.Outcomes...)
	}
	return all
}

// FailedOutcomes returns the outcomes with fail or error status, in suite order
func (r *RunReport) FailedOutcomes() []TestOutcome {
	var failed []TestOutcome
	for _, suite := range r.Suites {
		for _, o := range suite.Outcomes {
			if o.Status.IsFailure() {
				failed = append(failed, o)
			}
		}
	}
	return failed
}

// String returns a one-line summary of the run
func (r *RunReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %d tests, %d passed, %d failed, %d errors, %d skipped",
		r.RunID, r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Stats.Errored, r.Stats.Skipped)
	if wall := r.WallClockTime(); wall > 0 {
		fmt.Fprintf(&b, " in %s", wall.Round(time.Millisecond))
	}
	return b.String()
}
