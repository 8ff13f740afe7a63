package reporter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-reporter/flags"
)

// Config holds the application configuration
type Config struct {
	Output       string   // Path of the HTML report
	Title        string   // Overrides the default report title
	Description  string   // Markdown description
	TemplatePath string   // Custom HTML template
	Open         bool     // Open the report in a browser when written
	Input        string   // test2json stream to replay, "-" for stdin
	Packages     []string // Packages to run when no input is given
	GoBinary     string
	WorkDir      string
	RunPattern   string // Passed to go test -run
	Subtests     bool   // Report subtests as their own cases
	Verbosity    int    // Progress output level on stderr
	MaxOutput    int    // Captured bytes kept per test
	ShowTable    bool   // Print the results table to stdout
	SummaryFile  string
	JSONFile     string
	MetricsFile  string
	EventsFile   string // Raw event stream copy of spawned packages
	ServeAddr    string // Serve the report over HTTP until interrupted
	Log          log.Logger
}

// FileConfig is the YAML form of the report settings
type FileConfig struct {
	Output      string   `yaml:"output"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Template    string   `yaml:"template"`
	Open        *bool    `yaml:"open"`
	Input       string   `yaml:"input"`
	Packages    []string `yaml:"packages"`
	GoBinary    string   `yaml:"go_binary"`
	WorkDir     string   `yaml:"workdir"`
	Run         string   `yaml:"run"`
	Subtests    *bool    `yaml:"subtests"`
	Verbosity   *int     `yaml:"verbosity"`
	MaxOutput   int      `yaml:"max_output_bytes"`
	Table       *bool    `yaml:"table"`
	SummaryFile string   `yaml:"summary_file"`
	JSONFile    string   `yaml:"json_file"`
	MetricsFile string   `yaml:"metrics_file"`
	EventsFile  string   `yaml:"events_file"`
	ServeAddr   string   `yaml:"serve_addr"`
}

// LoadFileConfig reads a YAML settings file
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// NewConfig creates a new Config from cli context.
// Values from the --config file apply to every flag that was not set explicitly.
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	cfg := &Config{
		Output:       ctx.String(flags.Output.Name),
		Title:        ctx.String(flags.Title.Name),
		Description:  ctx.String(flags.Description.Name),
		TemplatePath: ctx.String(flags.Template.Name),
		Open:         ctx.Bool(flags.Open.Name),
		Input:        ctx.String(flags.Input.Name),
		Packages:     ctx.Args().Slice(),
		GoBinary:     ctx.String(flags.GoBinary.Name),
		WorkDir:      ctx.String(flags.WorkDir.Name),
		RunPattern:   ctx.String(flags.Run.Name),
		Subtests:     ctx.Bool(flags.Subtests.Name),
		Verbosity:    ctx.Int(flags.Verbosity.Name),
		MaxOutput:    ctx.Int(flags.MaxOutputBytes.Name),
		ShowTable:    ctx.Bool(flags.Table.Name),
		SummaryFile:  ctx.String(flags.SummaryFile.Name),
		JSONFile:     ctx.String(flags.JSONFile.Name),
		MetricsFile:  ctx.String(flags.MetricsFile.Name),
		EventsFile:   ctx.String(flags.EventsFile.Name),
		ServeAddr:    ctx.String(flags.ServeAddr.Name),
		Log:          log,
	}

	if path := ctx.String(flags.ConfigFile.Name); path != "" {
		fileCfg, err := LoadFileConfig(path)
		if err != nil {
			return nil, err
		}
		cfg.ApplyFile(fileCfg, ctx.IsSet)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyFile copies the file values for every setting isSet reports as not given on the command line
func (c *Config) ApplyFile(fc *FileConfig, isSet func(name string) bool) {
	setString := func(dst *string, flagName, value string) {
		if value != "" && !isSet(flagName) {
			*dst = value
		}
	}
	setBool := func(dst *bool, flagName string, value *bool) {
		if value != nil && !isSet(flagName) {
			*dst = *value
		}
	}

	setString(&c.Output, flags.Output.Name, fc.Output)
	setString(&c.Title, flags.Title.Name, fc.Title)
	setString(&c.Description, flags.Description.Name, fc.Description)
	setString(&c.TemplatePath, flags.Template.Name, fc.Template)
	setString(&c.Input, flags.Input.Name, fc.Input)
	setString(&c.GoBinary, flags.GoBinary.Name, fc.GoBinary)
	setString(&c.WorkDir, flags.WorkDir.Name, fc.WorkDir)
	setString(&c.RunPattern, flags.Run.Name, fc.Run)
	setString(&c.SummaryFile, flags.SummaryFile.Name, fc.SummaryFile)
	setString(&c.JSONFile, flags.JSONFile.Name, fc.JSONFile)
	setString(&c.MetricsFile, flags.MetricsFile.Name, fc.MetricsFile)
	setString(&c.EventsFile, flags.EventsFile.Name, fc.EventsFile)
	setString(&c.ServeAddr, flags.ServeAddr.Name, fc.ServeAddr)
	setBool(&c.Open, flags.Open.Name, fc.Open)
	setBool(&c.Subtests, flags.Subtests.Name, fc.Subtests)
	setBool(&c.ShowTable, flags.Table.Name, fc.Table)

	if fc.Verbosity != nil && !isSet(flags.Verbosity.Name) {
		c.Verbosity = *fc.Verbosity
	}
	if fc.MaxOutput != 0 && !isSet(flags.MaxOutputBytes.Name) {
		c.MaxOutput = fc.MaxOutput
	}
	if len(c.Packages) == 0 {
		c.Packages = fc.Packages
	}
}

// Validate checks the settings for combinations that cannot work
func (c *Config) Validate() error {
	if c.Output == "" {
		return errors.New("output path is required")
	}
	if c.Input != "" && len(c.Packages) > 0 {
		return fmt.Errorf("--%s cannot be combined with packages to run", flags.Input.Name)
	}
	if c.Verbosity < 0 || c.Verbosity > 2 {
		return fmt.Errorf("verbosity must be 0, 1 or 2, got %d", c.Verbosity)
	}
	if c.EventsFile != "" && c.Input != "" {
		return fmt.Errorf("--%s only applies when running packages", flags.EventsFile.Name)
	}
	if c.MaxOutput < 0 {
		return fmt.Errorf("max output bytes must not be negative, got %d", c.MaxOutput)
	}
	return nil
}

// resolvePaths makes the working directory absolute
func (c *Config) resolvePaths() error {
	if c.WorkDir == "" {
		c.WorkDir = "."
	}
	absWorkDir, err := filepath.Abs(c.WorkDir)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path for working directory '%s': %w", c.WorkDir, err)
	}
	c.WorkDir = absWorkDir
	return nil
}
