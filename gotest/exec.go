package gotest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/ethereum-optimism/infra/op-reporter/collector"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// Test command constants
const (
	DefaultGoBinary    = "go"
	TestCommand        = "test"
	JSONFlag           = "-json"
	CountFlag          = "-count"
	DisableCacheCount  = "1"
	AllPackagesPattern = "./..."
)

// ExecConfig describes a go test invocation
type ExecConfig struct {
	GoBinary  string    // Defaults to "go"
	WorkDir   string    // Directory go test runs in
	Packages  []string  // Defaults to ./...
	ExtraArgs []string  // Passed to go test before the packages, e.g. -run or -race
	Events    io.Writer // Receives a copy of the raw event stream when set
}

// Args returns the go test arguments
func (c ExecConfig) Args() []string {
	args := []string{TestCommand, JSONFlag, CountFlag, DisableCacheCount}
	args = append(args, c.ExtraArgs...)
	if len(c.Packages) == 0 {
		return append(args, AllPackagesPattern)
	}
	return append(args, c.Packages...)
}

// RunPackages spawns go test -json and replays its events as they arrive.
// A non-zero exit caused by failing tests is not an error.
func (r *Replayer) RunPackages(ctx context.Context, cfg ExecConfig, info collector.RunInfo) (*types.RunReport, error) {
	goBinary := cfg.GoBinary
	if goBinary == "" {
		goBinary = DefaultGoBinary
	}

	cmd := exec.CommandContext(ctx, goBinary, cfg.Args()...)
	cmd.Dir = cfg.WorkDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	r.log.Info("Running go test", "dir", cmd.Dir, "command", cmd.String())
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", goBinary, err)
	}

	var events io.Reader = stdout
	if cfg.Events != nil {
		events = io.TeeReader(stdout, cfg.Events)
	}
	report, replayErr := r.Replay(ctx, events, info)
	if replayErr != nil {
		// Unblock the child so Wait can return
		_, _ = io.Copy(io.Discard, stdout)
	}
	waitErr := cmd.Wait()

	if replayErr != nil {
		return nil, replayErr
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		// go test exits 1 when tests fail; anything else, or exit 1 without
		// any test outcome, means go test itself did not work
		if !errors.As(waitErr, &exitErr) || exitErr.ExitCode() != 1 || report.Stats.Total == 0 {
			return nil, fmt.Errorf("go test failed: %w: %s", waitErr, strings.TrimSpace(stderr.String()))
		}
	}
	if stderr.Len() > 0 {
		r.log.Debug("go test wrote to stderr", "stderr", strings.TrimSpace(stderr.String()))
	}
	return report, nil
}
