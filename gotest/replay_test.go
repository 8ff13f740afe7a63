package gotest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-reporter/collector"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const (
	testModule = "example.com/m"
	mathPkg    = "example.com/m/math"
	ioPkg      = "example.com/m/io"
)

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// stream builds a test2json stream
type stream struct {
	t      *testing.T
	events []TestEvent
	tick   time.Duration
}

func newStream(t *testing.T) *stream {
	return &stream{t: t}
}

func (s *stream) add(e TestEvent) *stream {
	s.tick += 10 * time.Millisecond
	if e.Time.IsZero() {
		e.Time = baseTime.Add(s.tick)
	}
	s.events = append(s.events, e)
	return s
}

// test appends a run event followed by one output event per line
func (s *stream) test(pkg, name string, lines ...string) *stream {
	s.add(TestEvent{Action: ActionRun, Package: pkg, Test: name})
	s.output(pkg, name, "=== RUN   "+name+"\n")
	for _, line := range lines {
		s.output(pkg, name, line)
	}
	return s
}

func (s *stream) output(pkg, name, line string) *stream {
	return s.add(TestEvent{Action: ActionOutput, Package: pkg, Test: name, Output: line})
}

func (s *stream) end(pkg, name, action string, elapsed float64) *stream {
	return s.add(TestEvent{Action: action, Package: pkg, Test: name, Elapsed: elapsed})
}

func (s *stream) reader() io.Reader {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range s.events {
		require.NoError(s.t, enc.Encode(e))
	}
	return &buf
}

func replay(t *testing.T, in io.Reader, cfg Config) *types.RunReport {
	t.Helper()
	c := collector.NewCollector(collector.Config{Log: log.NewLogger(log.DiscardHandler())})
	cfg.Log = log.NewLogger(log.DiscardHandler())
	if cfg.SuiteNamer == nil {
		cfg.SuiteNamer = ModuleSuiteNamer(testModule)
	}
	report, err := NewReplayer(c, cfg).Replay(context.Background(), in, collector.RunInfo{Title: "go test"})
	require.NoError(t, err)
	return report
}

func TestReplay_MixedPackage(t *testing.T) {
	s := newStream(t).
		add(TestEvent{Action: ActionStart, Package: mathPkg}).
		test(mathPkg, "TestAdd", "adding\n", "--- PASS: TestAdd (0.25s)\n").
		end(mathPkg, "TestAdd", ActionPass, 0.25).
		test(mathPkg, "TestSub", "    math_test.go:12: expected 1, got 2\n", "--- FAIL: TestSub (0.00s)\n").
		end(mathPkg, "TestSub", ActionFail, 0).
		test(mathPkg, "TestSkip", "    math_test.go:20: not ready\n", "--- SKIP: TestSkip (0.00s)\n").
		end(mathPkg, "TestSkip", ActionSkip, 0).
		output(mathPkg, "", "FAIL\n").
		output(mathPkg, "", "FAIL\texample.com/m/math\t0.5s\n").
		end(mathPkg, "", ActionFail, 0.5)

	report := replay(t, s.reader(), Config{})

	assert.Equal(t, 3, report.Stats.Total)
	assert.Equal(t, 1, report.Stats.Passed)
	assert.Equal(t, 1, report.Stats.Failed)
	assert.Equal(t, 1, report.Stats.Skipped)
	assert.Equal(t, 0, report.Stats.Errored)

	require.Len(t, report.Suites, 1)
	suite := report.Suites[0]
	assert.Equal(t, "math", suite.Name)
	require.Len(t, suite.Outcomes, 3)

	add := suite.Outcomes[0]
	assert.Equal(t, "math.TestAdd", add.Case.Name)
	assert.Equal(t, "TestAdd", add.Case.ShortName())
	assert.Equal(t, "adding\n", add.Output)
	assert.Equal(t, 250*time.Millisecond, add.Duration)

	sub := suite.Outcomes[1]
	assert.Equal(t, types.TestStatusFail, sub.Status)
	assert.Equal(t, "math_test.go:12: expected 1, got 2", sub.Trace)
	assert.Empty(t, sub.Output)

	skip := suite.Outcomes[2]
	assert.Equal(t, types.TestStatusSkip, skip.Status)
	assert.Equal(t, "math_test.go:20: not ready", skip.Trace)
}

func TestReplay_SuitesInFirstCompletedOrder(t *testing.T) {
	s := newStream(t).
		test(ioPkg, "TestRead").
		end(ioPkg, "TestRead", ActionPass, 0).
		test(mathPkg, "TestAdd").
		end(mathPkg, "TestAdd", ActionPass, 0).
		test(ioPkg, "TestWrite").
		end(ioPkg, "TestWrite", ActionPass, 0).
		end(ioPkg, "", ActionPass, 0).
		end(mathPkg, "", ActionPass, 0)

	report := replay(t, s.reader(), Config{})
	require.Len(t, report.Suites, 2)
	assert.Equal(t, "io", report.Suites[0].Name)
	assert.Equal(t, "math", report.Suites[1].Name)
	assert.Len(t, report.Suites[0].Outcomes, 2)
}

func TestReplay_FoldsSubtests(t *testing.T) {
	s := newStream(t).
		test(mathPkg, "TestTable").
		test(mathPkg, "TestTable/positive", "    --- PASS: TestTable/positive (0.00s)\n").
		end(mathPkg, "TestTable/positive", ActionPass, 0).
		test(mathPkg, "TestTable/negative",
			"    math_test.go:30: wrong sign\n",
			"    --- FAIL: TestTable/negative (0.00s)\n").
		end(mathPkg, "TestTable/negative", ActionFail, 0).
		output(mathPkg, "TestTable", "--- FAIL: TestTable (0.01s)\n").
		end(mathPkg, "TestTable", ActionFail, 0.01)

	report := replay(t, s.reader(), Config{})
	require.Equal(t, 1, report.Stats.Total)
	outcome := report.Suites[0].Outcomes[0]
	assert.Equal(t, "math.TestTable", outcome.Case.Name)
	assert.Equal(t, types.TestStatusFail, outcome.Status)
	assert.Equal(t, "math_test.go:30: wrong sign", outcome.Trace)
	assert.Equal(t, 10*time.Millisecond, outcome.Duration)
}

func TestReplay_IncludesSubtests(t *testing.T) {
	s := newStream(t).
		test(mathPkg, "TestTable").
		test(mathPkg, "TestTable/positive").
		end(mathPkg, "TestTable/positive", ActionPass, 0).
		test(mathPkg, "TestTable/negative", "    math_test.go:30: wrong sign\n").
		end(mathPkg, "TestTable/negative", ActionFail, 0).
		output(mathPkg, "TestTable", "--- FAIL: TestTable (0.01s)\n").
		end(mathPkg, "TestTable", ActionFail, 0.01)

	report := replay(t, s.reader(), Config{IncludeSubtests: true})
	require.Equal(t, 3, report.Stats.Total)

	outcomes := report.Suites[0].Outcomes
	assert.Equal(t, "math.TestTable/positive", outcomes[0].Case.Name)
	assert.Equal(t, "math.TestTable/negative", outcomes[1].Case.Name)
	assert.Equal(t, "math_test.go:30: wrong sign", outcomes[1].Trace)
	assert.Equal(t, "math.TestTable", outcomes[2].Case.Name)
	assert.Equal(t, "--- FAIL: TestTable (0.01s)", outcomes[2].Trace)
	assert.Equal(t, 2, report.Stats.Failed)
}

func TestReplay_InterleavedParallelTests(t *testing.T) {
	s := newStream(t).
		test(mathPkg, "TestA").
		output(mathPkg, "TestA", "=== PAUSE TestA\n").
		add(TestEvent{Action: ActionPause, Package: mathPkg, Test: "TestA"}).
		test(mathPkg, "TestB").
		output(mathPkg, "TestB", "=== PAUSE TestB\n").
		add(TestEvent{Action: ActionCont, Package: mathPkg, Test: "TestA"}).
		add(TestEvent{Action: ActionCont, Package: mathPkg, Test: "TestB"}).
		output(mathPkg, "TestB", "from b\n").
		output(mathPkg, "TestA", "from a\n").
		end(mathPkg, "TestB", ActionPass, 0.1).
		end(mathPkg, "TestA", ActionPass, 0.2)

	report := replay(t, s.reader(), Config{})
	outcomes := report.Suites[0].Outcomes
	require.Len(t, outcomes, 2)
	assert.Equal(t, "math.TestB", outcomes[0].Case.Name)
	assert.Equal(t, "from b\n", outcomes[0].Output)
	assert.Equal(t, "math.TestA", outcomes[1].Case.Name)
	assert.Equal(t, "from a\n", outcomes[1].Output)
}

func TestReplay_PanicIsError(t *testing.T) {
	s := newStream(t).
		test(mathPkg, "TestDivide",
			"--- FAIL: TestDivide (0.00s)\n",
			"panic: runtime error: integer divide by zero [recovered]\n",
			"\tpanic: runtime error: integer divide by zero\n",
			"\n",
			"goroutine 7 [running]:\n").
		end(mathPkg, "TestDivide", ActionFail, 0).
		output(mathPkg, "", "FAIL\texample.com/m/math\t0.01s\n").
		end(mathPkg, "", ActionFail, 0.01)

	report := replay(t, s.reader(), Config{})
	require.Equal(t, 1, report.Stats.Total)
	outcome := report.Suites[0].Outcomes[0]
	assert.Equal(t, types.TestStatusError, outcome.Status)
	assert.True(t, strings.HasPrefix(outcome.Trace, "panic: runtime error: integer divide by zero"))
	assert.Contains(t, outcome.Trace, "goroutine 7 [running]:")
}

func TestReplay_BuildFailure(t *testing.T) {
	s := newStream(t).
		add(TestEvent{Action: ActionBuildOutput, ImportPath: mathPkg + " [" + mathPkg + ".test]", Output: "# example.com/m/math\n"}).
		add(TestEvent{Action: ActionBuildOutput, ImportPath: mathPkg + " [" + mathPkg + ".test]", Output: "math/add.go:3:1: syntax error\n"}).
		add(TestEvent{Action: ActionBuildFail, ImportPath: mathPkg + " [" + mathPkg + ".test]"}).
		add(TestEvent{Action: ActionStart, Package: mathPkg}).
		output(mathPkg, "", "FAIL\texample.com/m/math [build failed]\n").
		end(mathPkg, "", ActionFail, 0)

	report := replay(t, s.reader(), Config{})
	require.Equal(t, 1, report.Stats.Total)
	outcome := report.Suites[0].Outcomes[0]
	assert.Equal(t, "math."+PackageTestName, outcome.Case.Name)
	assert.Equal(t, types.TestStatusError, outcome.Status)
	assert.Equal(t, "# example.com/m/math\nmath/add.go:3:1: syntax error", outcome.Trace)
}

func TestReplay_PackageFailureWithoutFailingTest(t *testing.T) {
	s := newStream(t).
		test(mathPkg, "TestAdd").
		end(mathPkg, "TestAdd", ActionPass, 0).
		output(mathPkg, "", "PASS\n").
		output(mathPkg, "", "TestMain exited early\n").
		output(mathPkg, "", "FAIL\texample.com/m/math\t0.01s\n").
		end(mathPkg, "", ActionFail, 0)

	report := replay(t, s.reader(), Config{})
	require.Equal(t, 2, report.Stats.Total)
	assert.Equal(t, 1, report.Stats.Errored)
	assert.Equal(t, "TestMain exited early", report.Suites[0].Outcomes[1].Trace)
}

func TestReplay_IncompleteTests(t *testing.T) {
	s := newStream(t).
		test(mathPkg, "TestHangs", "waiting\n")

	report := replay(t, s.reader(), Config{})
	require.Equal(t, 1, report.Stats.Total)
	outcome := report.Suites[0].Outcomes[0]
	assert.Equal(t, types.TestStatusError, outcome.Status)
	assert.Equal(t, incompleteTrace, outcome.Trace)
	assert.Equal(t, "waiting\n", outcome.Output)
}

func TestReplay_IgnoresNonJSONLines(t *testing.T) {
	s := newStream(t).
		test(mathPkg, "TestAdd").
		end(mathPkg, "TestAdd", ActionPass, 0)

	var in bytes.Buffer
	in.WriteString("go: downloading example.com/dep v1.0.0\n")
	_, err := io.Copy(&in, s.reader())
	require.NoError(t, err)
	in.WriteString("{not json\n")

	report := replay(t, &in, Config{})
	assert.Equal(t, 1, report.Stats.Passed)
}

func TestReplay_EmptyStream(t *testing.T) {
	report := replay(t, strings.NewReader(""), Config{})
	assert.Equal(t, 0, report.Stats.Total)
	assert.Empty(t, report.Suites)
}

func TestReplay_CancelledContext(t *testing.T) {
	c := collector.NewCollector(collector.Config{Log: log.NewLogger(log.DiscardHandler())})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReplayer(c, Config{Log: log.NewLogger(log.DiscardHandler())}).
		Replay(ctx, strings.NewReader(""), collector.RunInfo{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSplitTestOutput(t *testing.T) {
	split := splitTestOutput([]string{
		"=== RUN   TestX\n",
		"plain line\n",
		"    x_test.go:10: \n",
		"        \tError Trace:\tx_test.go:10\n",
		"        \tError:      \tNot equal\n",
		"after block\n",
		"--- FAIL: TestX (0.00s)\n",
	})

	assert.Equal(t, "plain line\nafter block\n", split.Output)
	assert.Equal(t, "x_test.go:10: \n    \tError Trace:\tx_test.go:10\n    \tError:      \tNot equal", split.Trace)
	assert.Equal(t, "--- FAIL: TestX (0.00s)", split.Result)
	assert.False(t, split.Panicked)
}

func TestModuleSuiteNamer(t *testing.T) {
	namer := ModuleSuiteNamer(testModule)
	assert.Equal(t, "math", namer(mathPkg))
	assert.Equal(t, "m", namer(testModule))
	assert.Equal(t, "other.org/x", namer("other.org/x"))
	assert.Equal(t, "example.com/mm", namer("example.com/mm"))
}

func TestModulePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/m\n\ngo 1.22\n"), 0644))

	mod, err := ModulePath(dir)
	require.NoError(t, err)
	assert.Equal(t, testModule, mod)

	_, err = ModulePath(t.TempDir())
	require.Error(t, err)
}

func TestExecConfig_Args(t *testing.T) {
	assert.Equal(t, []string{"test", "-json", "-count", "1", "./..."}, ExecConfig{}.Args())
	assert.Equal(t,
		[]string{"test", "-json", "-count", "1", "-race", "./a", "./b"},
		ExecConfig{Packages: []string{"./a", "./b"}, ExtraArgs: []string{"-race"}}.Args())
}

func TestRunPackages_FakeGoBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the go binary")
	}

	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.json")
	s := newStream(t).
		test(mathPkg, "TestAdd").
		end(mathPkg, "TestAdd", ActionPass, 0).
		test(mathPkg, "TestSub", "    math_test.go:12: nope\n").
		end(mathPkg, "TestSub", ActionFail, 0).
		end(mathPkg, "", ActionFail, 0)
	data, err := io.ReadAll(s.reader())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(eventsPath, data, 0644))

	script := filepath.Join(dir, "fakego")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ncat "+eventsPath+"\nexit 1\n"), 0755))

	c := collector.NewCollector(collector.Config{Log: log.NewLogger(log.DiscardHandler())})
	r := NewReplayer(c, Config{Log: log.NewLogger(log.DiscardHandler()), SuiteNamer: ModuleSuiteNamer(testModule)})
	report, err := r.RunPackages(context.Background(), ExecConfig{GoBinary: script, WorkDir: dir}, collector.RunInfo{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stats.Passed)
	assert.Equal(t, 1, report.Stats.Failed)
}

func TestRunPackages_GoTestBroken(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the go binary")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "fakego")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 'no Go files' >&2\nexit 1\n"), 0755))

	c := collector.NewCollector(collector.Config{Log: log.NewLogger(log.DiscardHandler())})
	r := NewReplayer(c, Config{Log: log.NewLogger(log.DiscardHandler())})
	_, err := r.RunPackages(context.Background(), ExecConfig{GoBinary: script, WorkDir: dir}, collector.RunInfo{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Go files")
}
