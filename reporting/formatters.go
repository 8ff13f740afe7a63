package reporting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-reporter/templates"
	"github.com/ethereum-optimism/infra/op-reporter/types"
	"github.com/ethereum-optimism/infra/op-reporter/ui"
)

const summaryWidth = 60

// ReportFormatter defines the interface for different report output formats
type ReportFormatter interface {
	Format(data *ReportData) (string, error)
}

// ReportWriter defines the interface for writing reports to various destinations
type ReportWriter interface {
	Write(content string) error
}

// StdoutWriter writes reports to stdout
type StdoutWriter struct{}

// NewStdoutWriter creates a new stdout writer
func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{}
}

// Write writes the content to stdout
func (sw *StdoutWriter) Write(content string) error {
	_, err := fmt.Print(content)
	return err
}

// TableFormatter formats reports as ASCII tables
type TableFormatter struct {
	showIndividualTests bool
	title               string
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(title string, showIndividualTests bool) *TableFormatter {
	return &TableFormatter{
		showIndividualTests: showIndividualTests,
		title:               title,
	}
}

// Format formats the report data as an ASCII table
func (tf *TableFormatter) Format(data *ReportData) (string, error) {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	title := tf.title
	if title == "" {
		title = data.Title
	}
	t.SetTitle(title)

	t.AppendHeader(table.Row{
		"Type", "Name", "Duration", "Tests", "Passed", "Failed", "Errored", "Skipped", "Status",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "Name", WidthMax: 120, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Errored", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
	})

	for _, suite := range data.Suites {
		t.AppendRow(table.Row{
			"Suite",
			suite.DisplayName(),
			templates.FormatDuration(suite.Stats.Duration),
			suite.Stats.Total,
			suite.Stats.Passed,
			suite.Stats.Failed,
			suite.Stats.Errored,
			suite.Stats.Skipped,
			statusText(suite.Status),
		})

		if tf.showIndividualTests {
			prefixes := testTreePrefixes(suite.Tests, 1, nil)
			for i, test := range suite.Tests {
				t.AppendRow(table.Row{
					"Test",
					prefixes[i] + testLabel(test),
					templates.FormatDuration(test.Duration),
					1,
					boolToInt(test.Status == types.TestStatusPass),
					boolToInt(test.Status == types.TestStatusFail),
					boolToInt(test.Status == types.TestStatusError),
					boolToInt(test.Status == types.TestStatusSkip),
					statusText(test.Status),
				})
			}
		}
		t.AppendSeparator()
	}

	switch data.Status {
	case types.TestStatusFail, types.TestStatusError:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case types.TestStatusSkip:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		templates.FormatDuration(data.Duration),
		data.Stats.Total,
		data.Stats.Passed,
		data.Stats.Failed,
		data.Stats.Errored,
		data.Stats.Skipped,
		statusText(data.Status),
	})

	t.Render()
	return buf.String(), nil
}

// TextSummaryFormatter formats reports as plain text summaries
type TextSummaryFormatter struct {
	includeDetails bool
}

// NewTextSummaryFormatter creates a new text summary formatter
func NewTextSummaryFormatter(includeDetails bool) *TextSummaryFormatter {
	return &TextSummaryFormatter{
		includeDetails: includeDetails,
	}
}

// Format formats the report data as a text summary
func (tsf *TextSummaryFormatter) Format(data *ReportData) (string, error) {
	var summary strings.Builder

	summary.WriteString(ui.BuildBoxHeader(data.Title, summaryWidth))
	summary.WriteString(ui.BuildBoxLine("Run ID:    "+data.RunID, summaryWidth))
	summary.WriteString(ui.BuildBoxLine("Started:   "+data.StartTime.Format("2006-01-02 15:04:05"), summaryWidth))
	summary.WriteString(ui.BuildBoxLine("Duration:  "+templates.FormatDuration(data.Duration), summaryWidth))
	summary.WriteString(ui.BuildBoxLine("Status:    "+statusText(data.Status), summaryWidth))
	summary.WriteString(ui.BuildBoxFooter(summaryWidth))
	summary.WriteString("\n")

	fmt.Fprintf(&summary, "Results:\n")
	fmt.Fprintf(&summary, "  Total:   %d\n", data.Stats.Total)
	fmt.Fprintf(&summary, "  Passed:  %d\n", data.Stats.Passed)
	fmt.Fprintf(&summary, "  Failed:  %d\n", data.Stats.Failed)
	fmt.Fprintf(&summary, "  Errors:  %d\n", data.Stats.Errored)
	fmt.Fprintf(&summary, "  Skipped: %d\n", data.Stats.Skipped)
	fmt.Fprintf(&summary, "  Pass rate: %s\n\n", data.PassRateText)

	if len(data.FailedTests) > 0 {
		fmt.Fprintf(&summary, "Failed tests:\n")
		for _, test := range data.FailedTests {
			fmt.Fprintf(&summary, "  - %s [%s]\n", test.FullName, statusText(test.Status))
			if test.Trace != "" {
				for _, line := range strings.Split(strings.TrimRight(test.Trace, "\n"), "\n") {
					fmt.Fprintf(&summary, "      %s\n", line)
				}
			}
		}
		fmt.Fprintf(&summary, "\n")
	}

	if tsf.includeDetails {
		fmt.Fprintf(&summary, "DETAILED RESULTS:\n")
		fmt.Fprintf(&summary, "=================\n")
		for i, suite := range data.Suites {
			lastSuite := i == len(data.Suites)-1
			fmt.Fprintf(&summary, "%s%s (%s) [%s]\n",
				ui.BuildTreePrefix(1, lastSuite, nil),
				suite.DisplayName(), templates.FormatDuration(suite.Stats.Duration), statusText(suite.Status))
			prefixes := testTreePrefixes(suite.Tests, 2, []bool{lastSuite})
			for j, test := range suite.Tests {
				fmt.Fprintf(&summary, "%s%s (%s) [%s]\n",
					prefixes[j], testLabel(test), templates.FormatDuration(test.Duration), statusText(test.Status))
			}
		}
		fmt.Fprintf(&summary, "\n")
	}

	return summary.String(), nil
}

// JSONFormatter formats reports as indented JSON
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format formats the report data as JSON
func (jf *JSONFormatter) Format(data *ReportData) (string, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report data: %w", err)
	}
	return string(out) + "\n", nil
}

// ReportGenerator combines builder, formatter, and writer for easy report generation
type ReportGenerator struct {
	builder   *ReportBuilder
	formatter ReportFormatter
	writer    ReportWriter
}

// NewReportGenerator creates a new report generator
func NewReportGenerator(builder *ReportBuilder, formatter ReportFormatter, writer ReportWriter) *ReportGenerator {
	return &ReportGenerator{
		builder:   builder,
		formatter: formatter,
		writer:    writer,
	}
}

// Generate builds, formats and writes the report for a finalized run
func (rg *ReportGenerator) Generate(report *types.RunReport) error {
	return rg.GenerateReport(rg.builder.Build(report))
}

// GenerateReport generates a report from pre-built report data
func (rg *ReportGenerator) GenerateReport(reportData *ReportData) error {
	content, err := rg.formatter.Format(reportData)
	if err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}

	if err := rg.writer.Write(content); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// testDepth returns how deeply a test is nested below its top-level test,
// 0 for "TestX" and 1 for "TestX/case"
func testDepth(test ReportTestItem) int {
	depth, _ := types.ParseTestNameHierarchy(shortTestName(test))
	return depth
}

// testLabel returns the name shown in a tree. Subtests show only their own
// element since the tree already places them under their parent.
func testLabel(test ReportTestItem) string {
	_, path := types.ParseTestNameHierarchy(shortTestName(test))
	if len(path) <= 1 {
		return test.Name
	}
	label := path[len(path)-1]
	if test.Description != "" {
		label += ": " + test.Description
	}
	return label
}

func shortTestName(test ReportTestItem) string {
	return types.TestCase{Suite: test.Suite, Name: test.FullName}.ShortName()
}

// testTreePrefixes returns the tree prefix of every test of a suite. Tests
// sit at baseDepth, subtests one level deeper per nesting level. parents
// holds the isLast flags of the levels above baseDepth.
func testTreePrefixes(tests []ReportTestItem, baseDepth int, parents []bool) []string {
	depths := make([]int, len(tests))
	for i, test := range tests {
		depths[i] = testDepth(test)
	}

	prefixes := make([]string, len(tests))
	lastAt := append([]bool(nil), parents...)
	for i := range tests {
		level := baseDepth + depths[i]
		for len(lastAt) < level-1 {
			lastAt = append(lastAt, false)
		}
		last := isLastSibling(depths, i)
		prefixes[i] = ui.BuildTreePrefix(level, last, append([]bool(nil), lastAt[:level-1]...))
		lastAt = append(lastAt[:level-1], last)
	}
	return prefixes
}

// isLastSibling reports whether no later entry shares the depth of entry i
// before the tree climbs back above it
func isLastSibling(depths []int, i int) bool {
	for j := i + 1; j < len(depths); j++ {
		if depths[j] < depths[i] {
			return true
		}
		if depths[j] == depths[i] {
			return false
		}
	}
	return true
}

func statusText(status types.TestStatus) string {
	return strings.ToUpper(templates.StatusClass(status))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
