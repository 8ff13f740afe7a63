package types

import (
	"fmt"
	"strings"
	"time"
)

// TestStatus represents the possible states of a test execution
type TestStatus string

const (
	TestStatusPass  TestStatus = "pass"
	TestStatusFail  TestStatus = "fail"
	TestStatusSkip  TestStatus = "skip"
	TestStatusError TestStatus = "error"
)

// AllStatuses lists the statuses in the order they are displayed
var AllStatuses = []TestStatus{TestStatusPass, TestStatusFail, TestStatusError, TestStatusSkip}

// IsValid reports whether s is one of the known statuses
func (s TestStatus) IsValid() bool {
	switch s {
	case TestStatusPass, TestStatusFail, TestStatusSkip, TestStatusError:
		return true
	}
	return false
}

// IsFailure reports whether s counts against the run (fail or error)
func (s TestStatus) IsFailure() bool {
	return s == TestStatusFail || s == TestStatusError
}

// TestCase identifies one executable test
type TestCase struct {
	Suite       string // Suite the test belongs to
	Name        string // Qualified name, e.g. "pkg/foo.TestBar" or "TestBar/sub"
	Description string // Optional one-line description
}

// ShortName returns the name with the "<suite>." qualifier removed.
// For suite "math", "math.TestAdd/negative" becomes "TestAdd/negative".
func (tc TestCase) ShortName() string {
	if tc.Suite != "" {
		if short := strings.TrimPrefix(tc.Name, tc.Suite+"."); short != "" {
			return short
		}
	}
	return tc.Name
}

// DisplayName returns the short name, followed by the description if one is set
func (tc TestCase) DisplayName() string {
	if tc.Description == "" {
		return tc.ShortName()
	}
	return fmt.Sprintf("%s: %s", tc.ShortName(), tc.Description)
}

// TestOutcome captures the outcome of a single executed test case.
// It is created when the test ends and is not modified afterwards.
type TestOutcome struct {
	Case            TestCase
	Status          TestStatus
	Duration        time.Duration
	Output          string // Captured stdout/stderr
	OutputTruncated bool   // Whether Output only holds the tail of what was written
	Trace           string // Failure/error diagnostic, or the skip reason
}

// HasDetail reports whether the outcome carries text worth showing in a detail view
func (o TestOutcome) HasDetail() bool {
	return o.Trace != "" || o.Output != ""
}

// ParseTestNameHierarchy splits a Go test name such as "TestX/case/inner" on
// "/", dropping empty elements. depth is 0 for a top-level test.
func ParseTestNameHierarchy(testName string) (depth int, path []string) {
	if testName == "" {
		return 0, []string{}
	}

	cleanPath := make([]string, 0, strings.Count(testName, "/")+1)
	for _, element := range strings.Split(testName, "/") {
		if element != "" {
			cleanPath = append(cleanPath, element)
		}
	}

	if len(cleanPath) == 0 {
		return 0, []string{}
	}

	return len(cleanPath) - 1, cleanPath
}
