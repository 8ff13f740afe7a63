package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

const EnvVarPrefix = "OP_REPORTER"

// StdinInput selects standard input as the test2json source
const StdinInput = "-"

var (
	Output = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Value:   "report.html",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OUTPUT"),
		Usage:   "Path of the HTML report to write",
	}
	Title = &cli.StringFlag{
		Name:    "title",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TITLE"),
		Usage:   "Report title (default \"Unit Test Report\")",
	}
	Description = &cli.StringFlag{
		Name:    "description",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DESCRIPTION"),
		Usage:   "Report description, rendered as Markdown",
	}
	Open = &cli.BoolFlag{
		Name:    "open",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OPEN"),
		Usage:   "Open the report in a browser once it is written",
	}
	Template = &cli.StringFlag{
		Name:    "template",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEMPLATE"),
		Usage:   "Path to a custom HTML template. The built-in template is used if it cannot be read",
	}
	Input = &cli.StringFlag{
		Name:    "input",
		Aliases: []string{"i"},
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "INPUT"),
		Usage:   "Read a 'go test -json' stream from this file ('-' for stdin) instead of running packages",
	}
	GoBinary = &cli.StringFlag{
		Name:    "go-binary",
		Value:   "go",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "GO_BINARY"),
		Usage:   "Path to the Go binary to use for running tests",
	}
	WorkDir = &cli.StringFlag{
		Name:    "workdir",
		Value:   ".",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "WORKDIR"),
		Usage:   "Directory the tests are run from",
	}
	Run = &cli.StringFlag{
		Name:    "run",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN"),
		Usage:   "Only run tests matching this regular expression (passed to go test -run)",
	}
	Subtests = &cli.BoolFlag{
		Name:    "subtests",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SUBTESTS"),
		Usage:   "Report subtests as their own test cases instead of folding them into the parent",
	}
	Verbosity = &cli.IntFlag{
		Name:    "verbosity",
		Value:   1,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "VERBOSITY"),
		Usage:   "Progress output on stderr: 0 quiet, 1 dots, 2 one line per test",
		Action: func(ctx *cli.Context, v int) error {
			return validateVerbosity(v)
		},
	}
	MaxOutputBytes = &cli.IntFlag{
		Name:    "max-output-bytes",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MAX_OUTPUT_BYTES"),
		Usage:   "Captured output kept per test, the tail is kept when exceeded (0 = 1MiB)",
	}
	Table = &cli.BoolFlag{
		Name:    "table",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TABLE"),
		Usage:   "Print a results table to stdout when the run ends",
	}
	SummaryFile = &cli.StringFlag{
		Name:    "summary-file",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SUMMARY_FILE"),
		Usage:   "Also write a plain text summary to this path",
	}
	JSONFile = &cli.StringFlag{
		Name:    "json-file",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "JSON_FILE"),
		Usage:   "Also write the report data as JSON to this path",
	}
	MetricsFile = &cli.StringFlag{
		Name:    "metrics-file",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "METRICS_FILE"),
		Usage:   "Write run metrics in the Prometheus text format to this path",
	}
	EventsFile = &cli.StringFlag{
		Name:    "events-file",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "EVENTS_FILE"),
		Usage:   "Save the raw 'go test -json' stream of spawned packages to this path, for later use with --input",
	}
	ServeAddr = &cli.StringFlag{
		Name:    "serve-addr",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVE_ADDR"),
		Usage:   "Serve the report directory over HTTP on this address (e.g. 'localhost:8080') until interrupted",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "YAML file with report settings. Flags that are set explicitly take precedence",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	Output,
	Title,
	Description,
	Open,
	Template,
	Input,
	GoBinary,
	WorkDir,
	Run,
	Subtests,
	Verbosity,
	MaxOutputBytes,
	Table,
	SummaryFile,
	JSONFile,
	MetricsFile,
	EventsFile,
	ServeAddr,
	ConfigFile,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}

func validateVerbosity(v int) error {
	if v < 0 || v > 2 {
		return fmt.Errorf("verbosity must be 0, 1 or 2, got %d", v)
	}
	return nil
}
