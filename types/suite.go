package types

import "time"

// Stats contains aggregated counts for a group of outcomes
type Stats struct {
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Errored  int           `json:"errored"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"` // Sum of outcome durations
}

// Add tallies a single outcome
func (s *Stats) Add(status TestStatus, d time.Duration) {
	s.Total++
	s.Duration += d

	switch status {
	case TestStatusPass:
		s.Passed++
	case TestStatusFail:
		s.Failed++
	case TestStatusSkip:
		s.Skipped++
	case TestStatusError:
		s.Errored++
	}
}

// Merge adds the counts of other into s
func (s *Stats) Merge(other Stats) {
	s.Total += other.Total
	s.Passed += other.Passed
	s.Failed += other.Failed
	s.Errored += other.Errored
	s.Skipped += other.Skipped
	s.Duration += other.Duration
}

// Count returns the number of outcomes with the given status
func (s Stats) Count(status TestStatus) int {
	switch status {
	case TestStatusPass:
		return s.Passed
	case TestStatusFail:
		return s.Failed
	case TestStatusSkip:
		return s.Skipped
	case TestStatusError:
		return s.Errored
	}
	return 0
}

// PassRate returns the percentage of passed outcomes, 0 when empty
func (s Stats) PassRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total) * 100
}

// Status derives an overall status from the counts.
// Failures take priority over skips; an empty group passes.
func (s Stats) Status() TestStatus {
	if s.Failed > 0 || s.Errored > 0 {
		return TestStatusFail
	}
	if s.Total > 0 && s.Skipped == s.Total {
		return TestStatusSkip
	}
	return TestStatusPass
}

// SuiteResult groups the outcomes of one suite in execution order
type SuiteResult struct {
	Name        string
	Description string // Optional one-line summary shown next to the name
	Outcomes    []TestOutcome
	Stats       Stats
}

// NewSuiteResult creates an empty suite
func NewSuiteResult(name string) *SuiteResult {
	return &SuiteResult{
		Name:     name,
		Outcomes: make([]TestOutcome, 0),
	}
}

// Append adds an outcome to the end of the suite and updates the counts
func (s *SuiteResult) Append(outcome TestOutcome) {
	s.Outcomes = append(s.Outcomes, outcome)
	s.Stats.Add(outcome.Status, outcome.Duration)
}

// DisplayName returns the name, followed by the description if one is set
func (s *SuiteResult) DisplayName() string {
	if s.Description == "" {
		return s.Name
	}
	return s.Name + ": " + s.Description
}

// Status returns the derived suite status
func (s *SuiteResult) Status() TestStatus {
	return s.Stats.Status()
}
