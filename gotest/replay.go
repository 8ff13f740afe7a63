package gotest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-reporter/collector"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// PackageTestName names the outcome recorded for a package that failed outside of any test
const PackageTestName = "(package)"

const incompleteTrace = "test did not complete"

// actionIncomplete marks a test that started but never reported a result
const actionIncomplete = "incomplete"

// SuiteNamer maps a Go package path to a suite name
type SuiteNamer func(pkg string) string

// Config configures a Replayer
type Config struct {
	Log             log.Logger
	SuiteNamer      SuiteNamer // Defaults to the package path
	IncludeSubtests bool       // Report subtests as their own cases instead of folding them into the parent
}

// Replayer feeds a test2json event stream into collector.Hooks.
// Events of parallel tests interleave in the stream, so each test is buffered
// and its hooks are emitted in one go when its terminal event arrives.
type Replayer struct {
	hooks           collector.Hooks
	log             log.Logger
	suiteName       SuiteNamer
	includeSubtests bool
	tracer          trace.Tracer
}

type pendingTest struct {
	name  string
	start time.Time
	lines []string
}

type packageState struct {
	name       string
	tests      map[string]*pendingTest
	order      []string
	lines      []string
	buildLines []string
	lastEvent  time.Time
	failed     bool
	done       bool
}

// NewReplayer creates a replayer reporting to hooks
func NewReplayer(hooks collector.Hooks, cfg Config) *Replayer {
	r := &Replayer{
		hooks:           hooks,
		log:             cfg.Log,
		suiteName:       cfg.SuiteNamer,
		includeSubtests: cfg.IncludeSubtests,
		tracer:          otel.Tracer("gotest replay"),
	}
	if r.log == nil {
		r.log = log.Root()
	}
	if r.suiteName == nil {
		r.suiteName = func(pkg string) string { return pkg }
	}
	return r
}

// Replay reads the whole stream and returns the finalized report
func (r *Replayer) Replay(ctx context.Context, in io.Reader, info collector.RunInfo) (*types.RunReport, error) {
	ctx, span := r.tracer.Start(ctx, "replay")
	defer span.End()

	if err := r.hooks.BeginRun(info); err != nil {
		return nil, fmt.Errorf("failed to begin run: %w", err)
	}

	var (
		packages = make(map[string]*packageState)
		pkgOrder []string
		events   int
	)
	getPackage := func(name string) *packageState {
		pkg, ok := packages[name]
		if !ok {
			pkg = &packageState{name: name, tests: make(map[string]*pendingTest)}
			packages[name] = pkg
			pkgOrder = append(pkgOrder, name)
		}
		return pkg
	}

	dec := NewDecoder(in)
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("replay interrupted: %w", err)
		}
		event, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read test events: %w", err)
		}
		events++

		if event.Action == ActionBuildOutput || event.Action == ActionBuildFail {
			pkg := getPackage(importPathPackage(event.ImportPath))
			if event.Action == ActionBuildOutput {
				pkg.buildLines = append(pkg.buildLines, event.Output)
			}
			continue
		}
		if event.Package == "" {
			continue
		}

		pkg := getPackage(event.Package)
		if !event.Time.IsZero() {
			pkg.lastEvent = event.Time
		}
		if event.Test == "" {
			err = r.handlePackageEvent(pkg, event)
		} else {
			err = r.handleTestEvent(pkg, event)
		}
		if err != nil {
			return nil, err
		}
	}

	if skipped := dec.Skipped(); skipped > 0 {
		r.log.Warn("Ignored lines that are not test events", "lines", skipped)
	}
	r.log.Debug("Finished reading test events", "events", events, "packages", len(pkgOrder))

	for _, name := range pkgOrder {
		pkg := packages[name]
		if pkg.done {
			continue
		}
		if err := r.flushIncomplete(pkg); err != nil {
			return nil, err
		}
	}

	report, err := r.hooks.EndRun()
	if err != nil {
		return nil, fmt.Errorf("failed to end run: %w", err)
	}
	return report, nil
}

func (r *Replayer) handlePackageEvent(pkg *packageState, event TestEvent) error {
	switch event.Action {
	case ActionOutput:
		pkg.lines = append(pkg.lines, event.Output)
	case ActionPass, ActionSkip:
		pkg.done = true
		return r.flushIncomplete(pkg)
	case ActionFail:
		pkg.done = true
		if err := r.flushIncomplete(pkg); err != nil {
			return err
		}
		if !pkg.failed {
			return r.emitPackageFailure(pkg, event)
		}
	}
	return nil
}

func (r *Replayer) handleTestEvent(pkg *packageState, event TestEvent) error {
	key := event.Test
	if !r.includeSubtests {
		key = event.RootTest()
	}

	pt, ok := pkg.tests[key]
	if !ok {
		pt = &pendingTest{name: key, start: event.Time}
		pkg.tests[key] = pt
		pkg.order = append(pkg.order, key)
	}

	switch event.Action {
	case ActionOutput:
		pt.lines = append(pt.lines, event.Output)
	case ActionPass, ActionFail, ActionSkip:
		if event.Test != key {
			// Folded subtest, the parent reports the result
			return nil
		}
		delete(pkg.tests, key)
		if event.Action == ActionFail {
			pkg.failed = true
		}
		return r.emit(pkg, pt, event.Action, event.ElapsedDuration())
	}
	return nil
}

// flushIncomplete reports every test of pkg that never finished
func (r *Replayer) flushIncomplete(pkg *packageState) error {
	for _, key := range pkg.order {
		pt, ok := pkg.tests[key]
		if !ok {
			continue
		}
		delete(pkg.tests, key)
		pkg.failed = true

		var elapsed time.Duration
		if !pt.start.IsZero() && pkg.lastEvent.After(pt.start) {
			elapsed = pkg.lastEvent.Sub(pt.start)
		}
		if err := r.emit(pkg, pt, actionIncomplete, elapsed); err != nil {
			return err
		}
	}
	pkg.order = pkg.order[:0]
	return nil
}

func (r *Replayer) emit(pkg *packageState, pt *pendingTest, action string, elapsed time.Duration) error {
	suite := r.suiteName(pkg.name)
	tc := types.TestCase{
		Suite: suite,
		Name:  suite + "." + pt.name,
	}
	split := splitTestOutput(pt.lines)

	return r.emitOutcome(tc, split.Output, elapsed, func() error {
		switch action {
		case ActionPass:
			return r.hooks.RecordSuccess()
		case ActionSkip:
			return r.hooks.RecordSkip(split.Trace)
		case ActionFail:
			if split.Panicked {
				return r.hooks.RecordError(split.Trace)
			}
			return r.hooks.RecordFailure(failureTrace(split))
		default:
			return r.hooks.RecordError(joinNonEmpty(split.Trace, incompleteTrace))
		}
	})
}

func (r *Replayer) emitPackageFailure(pkg *packageState, event TestEvent) error {
	suite := r.suiteName(pkg.name)
	tc := types.TestCase{
		Suite: suite,
		Name:  suite + "." + PackageTestName,
	}
	output := cleanPackageOutput(pkg.lines)
	trace := joinNonEmpty(strings.TrimRight(strings.Join(pkg.buildLines, ""), "\n"), strings.TrimRight(output, "\n"))
	if trace == "" {
		trace = fmt.Sprintf("package %s failed", pkg.name)
	}

	r.log.Debug("Package failed outside of a test", "package", pkg.name)
	return r.emitOutcome(tc, "", event.ElapsedDuration(), func() error {
		return r.hooks.RecordError(trace)
	})
}

func (r *Replayer) emitOutcome(tc types.TestCase, output string, elapsed time.Duration, record func() error) error {
	if err := r.hooks.BeginTest(tc); err != nil {
		return fmt.Errorf("failed to begin test %s: %w", tc.Name, err)
	}
	if output != "" {
		if _, err := io.WriteString(r.hooks.Output(), output); err != nil {
			return fmt.Errorf("failed to capture output of %s: %w", tc.Name, err)
		}
	}
	if er, ok := r.hooks.(collector.ElapsedReporter); ok {
		if err := er.SetElapsed(elapsed); err != nil {
			return fmt.Errorf("failed to set elapsed time of %s: %w", tc.Name, err)
		}
	}
	if err := record(); err != nil {
		return fmt.Errorf("failed to record outcome of %s: %w", tc.Name, err)
	}
	if err := r.hooks.EndTest(); err != nil {
		return fmt.Errorf("failed to end test %s: %w", tc.Name, err)
	}
	return nil
}

// failureTrace falls back to the result line when the test logged nothing
func failureTrace(split splitOutput) string {
	if split.Trace != "" {
		return split.Trace
	}
	if split.Result != "" {
		return split.Result
	}
	return "test failed"
}

// importPathPackage strips the " [pkg.test]" suffix of a test variant import path
func importPathPackage(importPath string) string {
	if idx := strings.Index(importPath, " ["); idx != -1 {
		return importPath[:idx]
	}
	return importPath
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
