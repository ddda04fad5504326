// internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagedriver/internal/script"
)

// Supported output formats.
const (
	FormatJSON  = "json"
	FormatJUnit = "junit"
	FormatText  = "text"
)

// Reporter defines the interface for writing scenario results to an output.
type Reporter interface {
	// Write processes the result of one scenario.
	Write(result script.Result) error
	// Close finalizes the report and closes any underlying resources (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// NopWriteCloser lets a reporter write to w without closing it.
func NopWriteCloser(w io.Writer) io.WriteCloser {
	return &nopWriteCloser{w}
}

// New creates a new reporter based on the specified format and output path.
// An empty path or "stdout" writes to standard output.
func New(format, outputPath string, logger *zap.Logger) (Reporter, error) {
	switch format {
	case FormatJSON, FormatJUnit, FormatText:
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}
	return NewWithWriter(format, writer, logger)
}

// NewWithWriter creates a reporter that takes ownership of writer.
func NewWithWriter(format string, writer io.WriteCloser, logger *zap.Logger) (Reporter, error) {
	switch format {
	case FormatJSON:
		return NewJSONReporter(writer, logger), nil
	case FormatJUnit:
		return NewJUnitReporter(writer, logger), nil
	case FormatText:
		return NewTextReporter(writer), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Multi fans every result out to several reporters.
type Multi []Reporter

func (m Multi) Write(result script.Result) error {
	for _, r := range m {
		if err := r.Write(result); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every reporter and returns the first error.
func (m Multi) Close() error {
	var first error
	for _, r := range m {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
