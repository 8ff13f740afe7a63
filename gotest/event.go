package gotest

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// Actions emitted by test2json
const (
	ActionStart       = "start"
	ActionRun         = "run"
	ActionPause       = "pause"
	ActionCont        = "cont"
	ActionPass        = "pass"
	ActionFail        = "fail"
	ActionSkip        = "skip"
	ActionOutput      = "output"
	ActionBench       = "bench"
	ActionBuildOutput = "build-output"
	ActionBuildFail   = "build-fail"
)

const maxEventLineBytes = 16 * 1024 * 1024

// TestEvent represents a single event from the go test JSON output
type TestEvent struct {
	Time       time.Time // Time the event occurred
	Action     string    // The action taken (run, pause, cont, pass, fail, skip, output)
	Package    string    // The package being tested
	Test       string    // The test function name (may be empty for package events)
	Output     string    // Output text (may be empty)
	Elapsed    float64   // Elapsed time in seconds for the specific action
	ImportPath string    // Set on build-output and build-fail events
}

// IsTerminal reports whether the event ends a test or package
func (e TestEvent) IsTerminal() bool {
	switch e.Action {
	case ActionPass, ActionFail, ActionSkip:
		return true
	}
	return false
}

// ElapsedDuration converts the Elapsed seconds into a duration
func (e TestEvent) ElapsedDuration() time.Duration {
	if e.Elapsed <= 0 {
		return 0
	}
	return time.Duration(e.Elapsed * float64(time.Second))
}

// RootTest returns the top-level test of a subtest name
func (e TestEvent) RootTest() string {
	if idx := strings.IndexByte(e.Test, '/'); idx != -1 {
		return e.Test[:idx]
	}
	return e.Test
}

// Decoder reads test2json events one line at a time
type Decoder struct {
	scanner *bufio.Scanner
	skipped int
}

// NewDecoder creates a decoder reading from r
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLineBytes)
	return &Decoder{scanner: scanner}
}

// Next returns the next event, or io.EOF at the end of the stream.
// Lines that are not JSON events are counted and skipped.
func (d *Decoder) Next() (TestEvent, error) {
	for d.scanner.Scan() {
		line := d.scanner.Bytes()
		if len(line) == 0 || line[0] != '{' {
			d.skipped++
			continue
		}
		var event TestEvent
		if err := json.Unmarshal(line, &event); err != nil {
			d.skipped++
			continue
		}
		return event, nil
	}
	if err := d.scanner.Err(); err != nil {
		return TestEvent{}, err
	}
	return TestEvent{}, io.EOF
}

// Skipped returns the number of lines that could not be decoded
func (d *Decoder) Skipped() int {
	return d.skipped
}
