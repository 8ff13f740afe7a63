package gotest

import (
	"regexp"
	"strings"
)

// fileLineRe matches the "file.go:12: " prefix the testing package puts on t.Log/t.Error lines
var fileLineRe = regexp.MustCompile(`^(\s*)[^\s:]+\.go:\d+: `)

// framingPrefixes are lines produced by the test harness rather than the test itself
var framingPrefixes = []string{
	"=== RUN", "=== PAUSE", "=== CONT", "=== NAME",
	"--- PASS", "--- FAIL", "--- SKIP", "--- BENCH",
}

// packageFramingPrefixes are the package summary lines go test prints
var packageFramingPrefixes = []string{"PASS", "FAIL", "ok  \t", "ok \t", "coverage:", "?   \t", "testing: warning: no tests to run"}

// splitOutput is the captured output of a test split by purpose
type splitOutput struct {
	Output   string // Everything the test wrote that is not a diagnostic
	Trace    string // t.Error/t.Fatal/t.Skip messages, and any panic
	Panicked bool
	Result   string // The "--- FAIL: ..." style result line, if present
}

// splitTestOutput separates harness framing, diagnostics and plain output
func splitTestOutput(lines []string) splitOutput {
	var (
		res         splitOutput
		output      strings.Builder
		trace       strings.Builder
		inBlock     bool
		blockIndent int
		inPanic     bool
	)

	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r\n")

		if inPanic {
			trace.WriteString(line)
			trace.WriteByte('\n')
			continue
		}

		if strings.HasPrefix(line, "panic: ") || strings.HasPrefix(line, "fatal error: ") {
			inPanic = true
			inBlock = false
			res.Panicked = true
			trace.WriteString(line)
			trace.WriteByte('\n')
			continue
		}

		trimmed := strings.TrimLeft(line, " \t")
		if isFraming(trimmed) {
			inBlock = false
			if res.Result == "" && strings.HasPrefix(trimmed, "--- ") {
				res.Result = trimmed
			}
			continue
		}

		if m := fileLineRe.FindStringSubmatch(line); m != nil {
			inBlock = true
			blockIndent = len(m[1])
			trace.WriteString(dedent(line, blockIndent))
			trace.WriteByte('\n')
			continue
		}

		if inBlock && trimmed != "" && indentOf(line) > blockIndent {
			trace.WriteString(dedent(line, blockIndent))
			trace.WriteByte('\n')
			continue
		}
		inBlock = false

		output.WriteString(line)
		output.WriteByte('\n')
	}

	res.Output = output.String()
	res.Trace = strings.TrimRight(trace.String(), "\n")
	return res
}

// cleanPackageOutput drops the package summary lines from package-level output
func cleanPackageOutput(lines []string) string {
	var b strings.Builder
	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r\n")
		if isPackageFraming(line) || isFraming(strings.TrimLeft(line, " \t")) {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func isFraming(line string) bool {
	for _, prefix := range framingPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func isPackageFraming(line string) bool {
	for _, prefix := range packageFramingPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// dedent removes up to n leading whitespace characters
func dedent(line string, n int) string {
	i := 0
	for i < n && i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return line[i:]
}
