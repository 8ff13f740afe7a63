package reporting

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-reporter/templates"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// The default template carries its styles and scripts inline so the report
// is a single file.
//
//go:embed templates/report.html.tmpl
var defaultTemplate string

// DefaultTemplate returns the embedded report template
func DefaultTemplate() string {
	return defaultTemplate
}

// Options controls how a run is presented
type Options struct {
	Title        string // Overrides the run's title
	Description  string // Markdown, overrides the run's description
	TemplatePath string // Custom template, the embedded one is used when empty or unreadable
}

// HTMLFormatter formats report data as HTML
type HTMLFormatter struct {
	template *template.Template
}

// NewHTMLFormatter creates a new HTML formatter
func NewHTMLFormatter(templateContent string) (*HTMLFormatter, error) {
	tmpl, err := template.New("report").Funcs(templates.GetTemplateFunc()).Parse(templateContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML template: %w", err)
	}

	return &HTMLFormatter{
		template: tmpl,
	}, nil
}

// Format formats the report data as HTML
func (hf *HTMLFormatter) Format(data *ReportData) (string, error) {
	var buf bytes.Buffer
	if err := hf.template.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute HTML template: %w", err)
	}
	return buf.String(), nil
}

// HTMLRenderer turns a finalized run into a self-contained HTML document
type HTMLRenderer struct {
	log log.Logger
}

// NewHTMLRenderer creates a new renderer
func NewHTMLRenderer(logger log.Logger) *HTMLRenderer {
	if logger == nil {
		logger = log.Root()
	}
	return &HTMLRenderer{log: logger}
}

// Render produces the HTML document for a finalized report. A custom template
// that cannot be parsed is reported as a *ConfigError.
func (r *HTMLRenderer) Render(report *types.RunReport, opts Options) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("report is required")
	}
	if !report.Finalized() {
		return nil, fmt.Errorf("report %s has not been finalized", report.RunID)
	}

	formatter, err := r.loadFormatter(opts.TemplatePath)
	if err != nil {
		return nil, err
	}

	data := NewReportBuilder().
		WithTitle(opts.Title).
		WithDescription(opts.Description).
		Build(report)

	html, err := formatter.Format(data)
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}

// loadFormatter reads the custom template, falling back to the embedded one
// when the file cannot be read or is blank
func (r *HTMLRenderer) loadFormatter(path string) (*HTMLFormatter, error) {
	content := defaultTemplate
	if path != "" {
		custom, err := os.ReadFile(path)
		switch {
		case err != nil:
			r.log.Warn("Custom template was not loaded, using the default template", "path", path, "err", err)
			path = ""
		case strings.TrimSpace(string(custom)) == "":
			r.log.Warn("Custom template is empty, using the default template", "path", path)
			path = ""
		default:
			content = string(custom)
		}
	}

	formatter, err := NewHTMLFormatter(content)
	if err != nil {
		if path == "" {
			return nil, fmt.Errorf("default template is invalid: %w", err)
		}
		return nil, &ConfigError{Op: "parse template", Path: path, Err: err}
	}
	return formatter, nil
}
