// internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagedriver/internal/script"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter buffers results and writes a single Document on Close.
// It is thread safe.
type JSONReporter struct {
	writer io.WriteCloser
	logger *zap.Logger

	mu      sync.Mutex
	results []script.Result
}

// NewJSONReporter creates a reporter that owns writer.
func NewJSONReporter(writer io.WriteCloser, logger *zap.Logger) *JSONReporter {
	return &JSONReporter{writer: writer, logger: logger.Named("json_reporter")}
}

func (r *JSONReporter) Write(result script.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

// Close encodes the document and closes the writer.
func (r *JSONReporter) Close() error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	doc := NewDocument(r.results)
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	encodeErr := encoder.Encode(doc)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode JSON report", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode JSON output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}

	r.logger.Info("Wrote JSON report",
		zap.String("run_id", doc.ID),
		zap.Int("scenarios", doc.Summary.Scenarios),
		zap.Duration("duration_ms", time.Since(startTime)),
	)
	return nil
}
