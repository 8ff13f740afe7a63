package reporting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigError is a fatal problem with the report configuration, such as an
// output path that cannot be written or a template that does not parse
type ConfigError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError checks if the error is or wraps a ConfigError
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return err != nil && errors.As(err, &configErr)
}

// WriteReport writes content to path, creating parent directories as needed
func WriteReport(path string, content []byte) error {
	if path == "" {
		return &ConfigError{Op: "write report", Err: errors.New("output path is empty")}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &ConfigError{Op: "create output directory", Path: dir, Err: err}
		}
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return &ConfigError{Op: "write report", Path: path, Err: err}
	}
	return nil
}

// FileWriter writes formatted reports to a file
type FileWriter struct {
	path string
}

// NewFileWriter creates a new file writer
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

// Write writes the content to the file
func (fw *FileWriter) Write(content string) error {
	return WriteReport(fw.path, []byte(content))
}

// Path returns the destination of the writer
func (fw *FileWriter) Path() string {
	return fw.path
}
