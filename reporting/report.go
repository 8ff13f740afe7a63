package reporting

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// Defaults used when neither the run nor the options carry a title or description
const (
	DefaultTitle       = "Unit Test Report"
	DefaultDescription = "Unit Test Report Description"
)

// ReportTestItem represents a single test case in the report
type ReportTestItem struct {
	ID          string           `json:"id"`   // Element ID, e.g. "pt1.1" or "ft2.3"
	Name        string           `json:"name"` // Display name, description appended
	FullName    string           `json:"fullName"`
	Suite       string           `json:"suite"`
	Description string           `json:"description,omitempty"`
	Status      types.TestStatus `json:"status"`
	Duration    time.Duration    `json:"duration"`

	Trace           string `json:"trace,omitempty"`  // Kept verbatim
	Output          string `json:"output,omitempty"` // ANSI escape codes removed
	OutputTruncated bool   `json:"outputTruncated,omitempty"`
}

// HasDetail reports whether the item gets an expandable detail panel
func (i ReportTestItem) HasDetail() bool {
	return i.Trace != "" || i.Output != ""
}

// ReportSuite represents a suite of tests in the report
type ReportSuite struct {
	ID          string           `json:"id"` // Element ID, e.g. "c1"
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Status      types.TestStatus `json:"status"`
	Stats       types.Stats      `json:"stats"`
	Tests       []ReportTestItem `json:"tests"`
}

// DisplayName returns the suite name, followed by the description if one is set
func (s ReportSuite) DisplayName() string {
	if s.Description == "" {
		return s.Name
	}
	return s.Name + ": " + s.Description
}

// ReportData contains all the structured data needed for any report format
type ReportData struct {
	// Run Information
	RunID           string        `json:"runId"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	DescriptionHTML template.HTML `json:"-"`
	StartTime       time.Time     `json:"startTime"`
	EndTime         time.Time     `json:"endTime"`
	Duration        time.Duration `json:"duration"` // Wall clock time of the run

	// Overall Statistics
	Stats        types.Stats      `json:"stats"`
	Status       types.TestStatus `json:"status"`
	PassRate     float64          `json:"passRate"`
	PassRateText string           `json:"-"`
	HasFailures  bool             `json:"hasFailures"`

	Suites      []ReportSuite    `json:"suites"`
	FailedTests []ReportTestItem `json:"-"`
}

// ReportBuilder constructs ReportData from a finalized run
type ReportBuilder struct {
	title       string
	description string
	markdown    *MarkdownRenderer
}

// NewReportBuilder creates a new report builder
func NewReportBuilder() *ReportBuilder {
	return &ReportBuilder{
		markdown: NewMarkdownRenderer(),
	}
}

// WithTitle overrides the title carried by the run
func (rb *ReportBuilder) WithTitle(title string) *ReportBuilder {
	rb.title = title
	return rb
}

// WithDescription overrides the description carried by the run
func (rb *ReportBuilder) WithDescription(description string) *ReportBuilder {
	rb.description = description
	return rb
}

// Build converts the run into report data. The run is not modified.
func (rb *ReportBuilder) Build(report *types.RunReport) *ReportData {
	data := &ReportData{
		RunID:       report.RunID,
		Title:       firstNonEmpty(rb.title, report.Title, DefaultTitle),
		Description: firstNonEmpty(rb.description, report.Description, DefaultDescription),
		StartTime:   report.StartTime,
		EndTime:     report.EndTime,
		Duration:    report.WallClockTime(),
		Stats:       report.Stats,
		Status:      report.Status(),
		PassRate:    report.Stats.PassRate(),
		HasFailures: report.Stats.Failed > 0 || report.Stats.Errored > 0,
		Suites:      make([]ReportSuite, 0, len(report.Suites)),
	}
	data.DescriptionHTML = rb.markdown.Render(data.Description)
	data.PassRateText = fmt.Sprintf("%.1f%%", data.PassRate)

	for cid, suite := range report.Suites {
		rs := ReportSuite{
			ID:          fmt.Sprintf("c%d", cid+1),
			Name:        suite.Name,
			Description: suite.Description,
			Status:      suite.Status(),
			Stats:       suite.Stats,
			Tests:       make([]ReportTestItem, 0, len(suite.Outcomes)),
		}
		for tid, outcome := range suite.Outcomes {
			item := rb.createTestItem(cid, tid, outcome)
			rs.Tests = append(rs.Tests, item)
			if outcome.Status.IsFailure() {
				data.FailedTests = append(data.FailedTests, item)
			}
		}
		data.Suites = append(data.Suites, rs)
	}

	return data
}

func (rb *ReportBuilder) createTestItem(cid, tid int, outcome types.TestOutcome) ReportTestItem {
	return ReportTestItem{
		ID:              TestItemID(outcome.Status, cid, tid),
		Name:            outcome.Case.DisplayName(),
		FullName:        outcome.Case.Name,
		Suite:           outcome.Case.Suite,
		Description:     outcome.Case.Description,
		Status:          outcome.Status,
		Duration:        outcome.Duration,
		Trace:           outcome.Trace,
		Output:          stripansi.Strip(outcome.Output),
		OutputTruncated: outcome.OutputTruncated,
	}
}

// TestItemID returns the element ID of a test case from its zero-based suite
// and test indexes: a status letter, "t", then the one-based positions.
func TestItemID(status types.TestStatus, cid, tid int) string {
	code := "p"
	switch status {
	case types.TestStatusFail:
		code = "f"
	case types.TestStatusError:
		code = "e"
	case types.TestStatusSkip:
		code = "s"
	}
	return fmt.Sprintf("%st%d.%d", code, cid+1, tid+1)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
