package collector

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-reporter/metrics"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

var (
	_ Hooks           = (*Collector)(nil)
	_ ElapsedReporter = (*Collector)(nil)
	_ SuiteDescriber  = (*Collector)(nil)
)

// DefaultSuiteName is used for test cases that do not name a suite
const DefaultSuiteName = "default"

// Hooks is the lifecycle contract a host test engine drives.
// Each Record* call must be preceded by exactly one BeginTest and followed by
// exactly one EndTest.
type Hooks interface {
	// BeginRun starts the run and records its start time
	BeginRun(info RunInfo) error

	// BeginTest opens a test case
	BeginTest(tc types.TestCase) error

	// Output returns the writer capturing stdout/stderr of the open test
	Output() io.Writer

	// RecordSuccess marks the open test as passed
	RecordSuccess() error

	// RecordFailure marks the open test as failed with the given trace
	RecordFailure(trace string) error

	// RecordError marks the open test as errored with the given trace
	RecordError(trace string) error

	// RecordSkip marks the open test as skipped
	RecordSkip(reason string) error

	// EndTest closes the open test and stores its outcome
	EndTest() error

	// EndRun finalizes the run and returns the aggregate
	EndRun() (*types.RunReport, error)
}

// ElapsedReporter is implemented by hooks that accept a duration measured by
// the host engine in place of their own wall clock measurement.
type ElapsedReporter interface {
	SetElapsed(d time.Duration) error
}

// SuiteDescriber is implemented by hooks that accept a one-line description
// for a suite. It may be called before the suite's first test.
type SuiteDescriber interface {
	DescribeSuite(name, description string) error
}

// RunInfo carries the presentation metadata of a run
type RunInfo struct {
	RunID       string // Generated when empty
	Title       string
	Description string
}

// Config configures a Collector. The zero value is usable.
type Config struct {
	Log            log.Logger
	Progress       ProgressIndicator
	MaxOutputBytes int              // Per-test capture limit, 0 selects the default
	Clock          func() time.Time // Defaults to time.Now
	RecordMetrics  bool             // Publish outcomes to the metrics package
}

// Collector implements Hooks and builds a RunReport grouped by suite
type Collector struct {
	mu sync.Mutex

	log            log.Logger
	progress       ProgressIndicator
	clock          func() time.Time
	maxOutputBytes int
	recordMetrics  bool

	report  *types.RunReport
	ended   bool
	current *openTest
}

// openTest holds the state of the test between BeginTest and EndTest
type openTest struct {
	tc         types.TestCase
	start      time.Time
	elapsed    time.Duration
	hasElapsed bool
	output     *tailBuffer

	recorded bool
	status   types.TestStatus
	trace    string
}

// NewCollector creates a new result collector
func NewCollector(cfg Config) *Collector {
	c := &Collector{
		log:            cfg.Log,
		progress:       cfg.Progress,
		clock:          cfg.Clock,
		maxOutputBytes: cfg.MaxOutputBytes,
		recordMetrics:  cfg.RecordMetrics,
	}
	if c.log == nil {
		c.log = log.Root()
	}
	if c.progress == nil {
		c.progress = NewNoOpProgressIndicator()
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	return c
}

// BeginRun starts a new run
func (c *Collector) BeginRun(info RunInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ended {
		return c.usageError("BeginRun", ErrRunEnded)
	}
	if c.report != nil {
		return c.usageError("BeginRun", ErrRunAlreadyStarted)
	}

	runID := info.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	c.report = types.NewRunReport(runID, info.Title, info.Description, c.clock())
	c.log.Debug("Run started", "run_id", runID, "title", info.Title)
	return nil
}

// BeginTest opens a test case
func (c *Collector) BeginTest(tc types.TestCase) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkRunning("BeginTest"); err != nil {
		return err
	}
	if c.current != nil {
		return c.usageError("BeginTest", ErrTestInProgress)
	}
	if tc.Name == "" {
		return c.usageError("BeginTest", fmt.Errorf("%w: name cannot be empty", ErrInvalidTestCase))
	}
	if tc.Suite == "" {
		tc.Suite = DefaultSuiteName
	}

	c.current = &openTest{
		tc:     tc,
		start:  c.clock(),
		output: newTailBuffer(c.maxOutputBytes),
	}
	c.progress.StartTest(tc)
	return nil
}

// DescribeSuite attaches a description to a suite of the running report
func (c *Collector) DescribeSuite(name, description string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkRunning("DescribeSuite"); err != nil {
		return err
	}
	if name == "" {
		name = DefaultSuiteName
	}
	c.report.DescribeSuite(name, description)
	return nil
}

// Output returns the writer capturing the open test's output.
// Writes made while no test is open fail with a *UsageError.
func (c *Collector) Output() io.Writer {
	return outputWriter{c: c}
}

type outputWriter struct {
	c *Collector
}

func (w outputWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()

	if err := w.c.checkOpen("Output"); err != nil {
		return 0, err
	}
	return w.c.current.output.Write(p)
}

// SetElapsed overrides the measured duration of the open test
func (c *Collector) SetElapsed(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpen("SetElapsed"); err != nil {
		return err
	}
	if d < 0 {
		d = 0
	}
	c.current.elapsed = d
	c.current.hasElapsed = true
	return nil
}

// RecordSuccess marks the open test as passed
func (c *Collector) RecordSuccess() error {
	return c.record("RecordSuccess", types.TestStatusPass, "")
}

// RecordFailure marks the open test as failed
func (c *Collector) RecordFailure(trace string) error {
	return c.record("RecordFailure", types.TestStatusFail, trace)
}

// RecordError marks the open test as errored
func (c *Collector) RecordError(trace string) error {
	return c.record("RecordError", types.TestStatusError, trace)
}

// RecordSkip marks the open test as skipped
func (c *Collector) RecordSkip(reason string) error {
	return c.record("RecordSkip", types.TestStatusSkip, reason)
}

func (c *Collector) record(op string, status types.TestStatus, trace string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpen(op); err != nil {
		return err
	}
	if c.current.recorded {
		return c.usageError(op, ErrOutcomeAlreadyRecorded)
	}

	c.current.recorded = true
	c.current.status = status
	c.current.trace = trace
	return nil
}

// EndTest closes the open test and appends its outcome to the report
func (c *Collector) EndTest() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpen("EndTest"); err != nil {
		return err
	}
	if !c.current.recorded {
		return c.usageError("EndTest", ErrOutcomeNotRecorded)
	}

	open := c.current
	duration := open.elapsed
	if !open.hasElapsed {
		duration = c.clock().Sub(open.start)
		if duration < 0 {
			duration = 0
		}
	}

	outcome := types.TestOutcome{
		Case:            open.tc,
		Status:          open.status,
		Duration:        duration,
		Output:          open.output.String(),
		OutputTruncated: open.output.Truncated(),
		Trace:           open.trace,
	}
	c.report.AddOutcome(outcome)
	c.current = nil

	if outcome.OutputTruncated {
		c.log.Warn("Captured output truncated", "test", outcome.Case.Name, "bytes", open.output.TotalBytes())
	}
	c.log.Debug("Test completed", "suite", outcome.Case.Suite, "test", outcome.Case.Name,
		"status", outcome.Status, "duration", outcome.Duration)
	if c.recordMetrics {
		metrics.RecordOutcome(outcome.Case.Suite, outcome.Status, outcome.Duration)
	}
	c.progress.CompleteTest(outcome)
	return nil
}

// EndRun finalizes the report and returns it. The report must not be
// modified afterwards.
func (c *Collector) EndRun() (*types.RunReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkRunning("EndRun"); err != nil {
		return nil, err
	}
	if c.current != nil {
		return nil, c.usageError("EndRun", ErrTestInProgress)
	}

	c.report.Finalize(c.clock())
	c.ended = true

	c.log.Info("Run completed", "run_id", c.report.RunID, "status", c.report.Status(),
		"total", c.report.Stats.Total, "passed", c.report.Stats.Passed, "failed", c.report.Stats.Failed,
		"errored", c.report.Stats.Errored, "skipped", c.report.Stats.Skipped)
	if c.recordMetrics {
		metrics.RecordRun(c.report.RunID, c.report.Stats, c.report.WallClockTime())
	}
	c.progress.CompleteRun(c.report)
	return c.report, nil
}

// Report returns the finalized report
func (c *Collector) Report() (*types.RunReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ended {
		return nil, c.usageError("Report", ErrRunNotEnded)
	}
	return c.report, nil
}

func (c *Collector) checkRunning(op string) error {
	if c.ended {
		return c.usageError(op, ErrRunEnded)
	}
	if c.report == nil {
		return c.usageError(op, ErrRunNotStarted)
	}
	return nil
}

func (c *Collector) checkOpen(op string) error {
	if err := c.checkRunning(op); err != nil {
		return err
	}
	if c.current == nil {
		return c.usageError(op, ErrNoOpenTest)
	}
	return nil
}

func (c *Collector) usageError(op string, err error) *UsageError {
	usageErr := &UsageError{Op: op, Err: err}
	if c.current != nil {
		usageErr.Test = c.current.tc.Name
	}
	return usageErr
}
