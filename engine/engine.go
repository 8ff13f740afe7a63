// Package engine runs Go functions grouped in suites and reports each one
// through collector.Hooks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-reporter/collector"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// Func is the body of a test case. Anything written to out is captured as the
// case's output. A nil return passes, a *FailureError fails, a *SkipError
// skips and any other error or panic is recorded as an error.
type Func func(ctx context.Context, out io.Writer) error

// Case is a single test function
type Case struct {
	Name        string
	Description string
	Fn          Func
}

// A Suite is a collection of cases run in order
type Suite struct {
	Name        string
	Description string // Passed on when the hooks implement collector.SuiteDescriber
	Cases       []Case
}

// Engine drives suites through a set of hooks
type Engine struct {
	hooks  collector.Hooks
	log    log.Logger
	tracer trace.Tracer
}

// New creates an engine reporting to hooks
func New(hooks collector.Hooks, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.Root()
	}
	return &Engine{
		hooks:  hooks,
		log:    logger,
		tracer: otel.Tracer("test engine"),
	}
}

// Run executes every case of every suite and returns the finalized report.
// Test failures never surface as errors; only a rejected hook call does.
// Once ctx is cancelled the remaining cases are recorded as skipped.
func (e *Engine) Run(ctx context.Context, info collector.RunInfo, suites ...Suite) (*types.RunReport, error) {
	ctx, span := e.tracer.Start(ctx, "run")
	defer span.End()

	if err := e.hooks.BeginRun(info); err != nil {
		return nil, fmt.Errorf("failed to begin run: %w", err)
	}

	for _, suite := range suites {
		if err := e.runSuite(ctx, suite); err != nil {
			return nil, err
		}
	}

	report, err := e.hooks.EndRun()
	if err != nil {
		return nil, fmt.Errorf("failed to end run: %w", err)
	}
	span.SetAttributes(attribute.Int("tests", report.Stats.Total))
	return report, nil
}

func (e *Engine) runSuite(ctx context.Context, suite Suite) error {
	ctx, span := e.tracer.Start(ctx, fmt.Sprintf("suite %s", suite.Name))
	defer span.End()

	e.log.Debug("Running suite", "suite", suite.Name, "cases", len(suite.Cases))
	if describer, ok := e.hooks.(collector.SuiteDescriber); ok && suite.Description != "" {
		if err := describer.DescribeSuite(suite.Name, suite.Description); err != nil {
			return fmt.Errorf("failed to describe suite %s: %w", suite.Name, err)
		}
	}
	for _, c := range suite.Cases {
		if err := e.runCase(ctx, suite.Name, c); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runCase(ctx context.Context, suite string, c Case) error {
	tc := types.TestCase{
		Suite:       suite,
		Name:        qualifiedName(suite, c.Name),
		Description: c.Description,
	}
	if err := e.hooks.BeginTest(tc); err != nil {
		return fmt.Errorf("failed to begin test %s: %w", tc.Name, err)
	}

	var recordErr error
	if ctxErr := ctx.Err(); ctxErr != nil {
		recordErr = e.hooks.RecordSkip(fmt.Sprintf("run cancelled: %v", ctxErr))
	} else {
		recordErr = e.record(e.invoke(ctx, tc.Name, c.Fn))
	}
	if recordErr != nil {
		return fmt.Errorf("failed to record outcome of %s: %w", tc.Name, recordErr)
	}

	if err := e.hooks.EndTest(); err != nil {
		return fmt.Errorf("failed to end test %s: %w", tc.Name, err)
	}
	return nil
}

// invoke calls fn and converts a panic into a *PanicError
func (e *Engine) invoke(ctx context.Context, name string, fn Func) (err error) {
	if fn == nil {
		return errors.New("test function is nil")
	}

	ctx, span := e.tracer.Start(ctx, fmt.Sprintf("test %s", name))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("Test panicked", "test", name, "panic", r)
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, e.hooks.Output())
}

func (e *Engine) record(err error) error {
	var (
		failure *FailureError
		skip    *SkipError
	)
	switch {
	case err == nil:
		return e.hooks.RecordSuccess()
	case errors.As(err, &failure):
		return e.hooks.RecordFailure(failure.Error())
	case errors.As(err, &skip):
		return e.hooks.RecordSkip(skip.Reason)
	default:
		return e.hooks.RecordError(err.Error())
	}
}

func qualifiedName(suite, name string) string {
	if suite == "" {
		return name
	}
	return suite + "." + name
}
