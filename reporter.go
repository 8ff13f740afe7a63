package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-reporter/collector"
	"github.com/ethereum-optimism/infra/op-reporter/flags"
	"github.com/ethereum-optimism/infra/op-reporter/gotest"
	"github.com/ethereum-optimism/infra/op-reporter/metrics"
	"github.com/ethereum-optimism/infra/op-reporter/reporting"
	"github.com/ethereum-optimism/infra/op-reporter/types"
	"github.com/ethereum-optimism/infra/op-reporter/viewer"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

// Reporter implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &Reporter{}

// opener opens a written report for viewing
type opener interface {
	Open(target string) error
}

// Reporter collects one test run, renders it and writes the artifacts.
// With a serve address it keeps serving the report until stopped.
type Reporter struct {
	config  *Config
	version string
	tracer  trace.Tracer

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	opener opener

	result  *types.RunReport
	failure error

	running     atomic.Bool
	cancelServe context.CancelFunc
	wg          sync.WaitGroup

	shutdownCallback func(error) // Callback to signal application shutdown
}

// New creates a reporter for cfg
func New(config *Config, version string, shutdownCallback func(error)) (*Reporter, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		return nil, errors.New("config logger is required")
	}
	if shutdownCallback == nil {
		shutdownCallback = func(error) {}
	}

	config.Log.Debug("Creating reporter with config",
		"output", config.Output,
		"input", config.Input,
		"packages", config.Packages,
		"workdir", config.WorkDir,
		"serveAddr", config.ServeAddr)

	return &Reporter{
		config:           config,
		version:          version,
		tracer:           otel.Tracer("op-reporter"),
		stdin:            os.Stdin,
		stdout:           os.Stdout,
		stderr:           os.Stderr,
		opener:           viewer.NewBrowserOpener(config.Log),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the tests and writes the report.
// Start implements the cliapp.Lifecycle interface.
func (r *Reporter) Start(ctx context.Context) error {
	r.running.Store(true)

	report, err := r.Run(ctx)
	if err != nil {
		r.running.Store(false)
		r.config.Log.Error("Runtime error producing report", "error", err)
		return err
	}

	if report.Status().IsFailure() {
		r.failure = NewTestFailureError(failureMessage(report))
	}

	if r.config.ServeAddr != "" {
		return r.startServer(ctx)
	}

	r.running.Store(false)
	if r.failure != nil {
		r.config.Log.Warn("Test run completed with failures, returning exit code 1")
		return r.failure
	}

	go func() {
		r.shutdownCallback(nil)
	}()
	return nil
}

// Stop stops serving the report.
// Stop implements the cliapp.Lifecycle interface.
func (r *Reporter) Stop(ctx context.Context) error {
	r.config.Log.Info("Stopping op-reporter")
	if r.cancelServe != nil {
		r.cancelServe()
	}
	r.wg.Wait()
	r.running.Store(false)
	return r.failure
}

// Stopped implements the cliapp.Lifecycle interface.
func (r *Reporter) Stopped() bool {
	return !r.running.Load()
}

// Result returns the report of the last run, nil before one completed
func (r *Reporter) Result() *types.RunReport {
	return r.result
}

// Run collects the test results and writes every configured artifact.
// Test failures are not errors; any returned error is a RuntimeError.
func (r *Reporter) Run(ctx context.Context) (*types.RunReport, error) {
	ctx, span := r.tracer.Start(ctx, "report run")
	defer span.End()

	report, err := r.collect(ctx)
	if err != nil {
		metrics.RecordErrorDetails("collect", err)
		return nil, NewRuntimeError(fmt.Errorf("failed to collect test results: %w", err))
	}
	r.result = report
	span.SetAttributes(
		attribute.String("run_id", report.RunID),
		attribute.Int("tests", report.Stats.Total),
		attribute.String("status", string(report.Status())),
	)

	if err := r.writeArtifacts(ctx, report); err != nil {
		metrics.RecordErrorDetails("write artifacts", err)
		return nil, NewRuntimeError(err)
	}

	if r.config.ShowTable {
		r.printResultsTable(report)
	}
	r.config.Log.Info("Test run completed",
		"run_id", report.RunID,
		"status", report.Status(),
		"tests", report.Stats.Total,
		"report", r.config.Output)

	if r.config.Open && r.config.ServeAddr == "" {
		r.open(r.config.Output)
	}
	return report, nil
}

// collect feeds the configured source into a collector
func (r *Reporter) collect(ctx context.Context) (*types.RunReport, error) {
	hooks := collector.NewCollector(collector.Config{
		Log:            r.config.Log,
		Progress:       collector.NewProgressIndicator(r.config.Verbosity, r.stderr),
		MaxOutputBytes: r.config.MaxOutput,
		RecordMetrics:  r.config.MetricsFile != "" || r.config.ServeAddr != "",
	})
	replayer := gotest.NewReplayer(hooks, gotest.Config{
		Log:             r.config.Log,
		SuiteNamer:      r.suiteNamer(),
		IncludeSubtests: r.config.Subtests,
	})
	info := collector.RunInfo{
		Title:       r.config.Title,
		Description: r.config.Description,
	}

	if r.config.Input != "" {
		in, closeFn, err := r.openInput()
		if err != nil {
			return nil, err
		}
		defer closeFn()
		r.config.Log.Info("Replaying test events", "input", r.config.Input)
		return replayer.Replay(ctx, in, info)
	}

	execCfg := gotest.ExecConfig{
		GoBinary: r.config.GoBinary,
		WorkDir:  r.config.WorkDir,
		Packages: r.config.Packages,
	}
	if r.config.RunPattern != "" {
		execCfg.ExtraArgs = []string{"-run", r.config.RunPattern}
	}
	if r.config.EventsFile != "" {
		events, err := createFile(r.config.EventsFile)
		if err != nil {
			return nil, err
		}
		defer events.Close()
		execCfg.Events = events
	}
	r.config.Log.Info("Running tests", "workdir", r.config.WorkDir, "args", execCfg.Args())
	return replayer.RunPackages(ctx, execCfg, info)
}

func (r *Reporter) openInput() (io.Reader, func(), error) {
	if r.config.Input == flags.StdinInput {
		return r.stdin, func() {}, nil
	}
	f, err := os.Open(r.config.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// createFile creates path and its parent directories
func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &reporting.ConfigError{Op: "create output directory", Path: filepath.Dir(path), Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, &reporting.ConfigError{Op: "create events file", Path: path, Err: err}
	}
	return f, nil
}

// suiteNamer shortens package paths when the working directory holds a module
func (r *Reporter) suiteNamer() gotest.SuiteNamer {
	modulePath, err := gotest.ModulePath(r.config.WorkDir)
	if err != nil {
		r.config.Log.Debug("Using package paths as suite names", "err", err)
		return nil
	}
	return gotest.ModuleSuiteNamer(modulePath)
}

// writeArtifacts renders the HTML report and the optional companion files
func (r *Reporter) writeArtifacts(ctx context.Context, report *types.RunReport) error {
	_, span := r.tracer.Start(ctx, "write artifacts")
	defer span.End()

	html, err := reporting.NewHTMLRenderer(r.config.Log).Render(report, reporting.Options{
		Title:        r.config.Title,
		Description:  r.config.Description,
		TemplatePath: r.config.TemplatePath,
	})
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := reporting.WriteReport(r.config.Output, html); err != nil {
		return err
	}
	r.config.Log.Debug("Wrote HTML report", "path", r.config.Output, "bytes", len(html))

	builder := reporting.NewReportBuilder().
		WithTitle(r.config.Title).
		WithDescription(r.config.Description)

	if r.config.SummaryFile != "" {
		gen := reporting.NewReportGenerator(builder, reporting.NewTextSummaryFormatter(true), reporting.NewFileWriter(r.config.SummaryFile))
		if err := gen.Generate(report); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	if r.config.JSONFile != "" {
		gen := reporting.NewReportGenerator(builder, reporting.NewJSONFormatter(), reporting.NewFileWriter(r.config.JSONFile))
		if err := gen.Generate(report); err != nil {
			return fmt.Errorf("failed to write JSON data: %w", err)
		}
	}
	if r.config.MetricsFile != "" {
		if err := metrics.WriteTextfile(r.config.MetricsFile); err != nil {
			return &reporting.ConfigError{Op: "write metrics", Path: r.config.MetricsFile, Err: err}
		}
	}
	return nil
}

// printResultsTable prints the results table to stdout
func (r *Reporter) printResultsTable(report *types.RunReport) {
	data := reporting.NewReportBuilder().
		WithTitle(r.config.Title).
		WithDescription(r.config.Description).
		Build(report)
	title := fmt.Sprintf("%s (%s)", data.Title, report.RunID)
	out, err := reporting.NewTableFormatter(title, r.config.Verbosity >= collector.VerbosityVerbose).Format(data)
	if err != nil {
		r.config.Log.Warn("Failed to format results table", "err", err)
		return
	}
	fmt.Fprint(r.stdout, out)
}

// startServer serves the report directory until Stop is called
func (r *Reporter) startServer(ctx context.Context) error {
	dir := filepath.Dir(r.config.Output)
	server := viewer.NewServer(r.config.Log, dir, r.config.ServeAddr)
	if err := server.Listen(); err != nil {
		r.running.Store(false)
		return NewRuntimeError(err)
	}

	serveCtx, cancel := context.WithCancel(ctx)
	r.cancelServe = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := server.Serve(serveCtx); err != nil {
			r.config.Log.Error("Report server failed", "err", err)
			r.shutdownCallback(err)
		}
	}()

	url := server.URL(filepath.Base(r.config.Output))
	r.config.Log.Info("Report available", "url", url)
	if r.config.Open {
		r.open(url)
	}
	return nil
}

func (r *Reporter) open(target string) {
	if err := r.opener.Open(target); err != nil {
		r.config.Log.Warn("Could not open report", "target", target, "err", err)
	}
}

// failureMessage summarises the run and names the tests that did not pass
func failureMessage(report *types.RunReport) string {
	failed := report.FailedOutcomes()
	names := make([]string, 0, len(failed))
	for _, o := range failed {
		names = append(names, fmt.Sprintf("%s [%s]", o.Case.Name, o.Status))
	}
	return fmt.Sprintf("%s; not passing: %s", report.String(), strings.Join(names, ", "))
}
