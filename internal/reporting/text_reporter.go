// internal/reporting/text_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/xkilldash9x/pagedriver/internal/script"
)

// TextReporter prints a line per scenario as results arrive and a summary
// on Close.
type TextReporter struct {
	writer io.WriteCloser

	mu      sync.Mutex
	results []script.Result
}

func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{writer: writer}
}

func (r *TextReporter) Write(result script.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)

	status := "PASS"
	if result.Failed() {
		status = "FAIL"
	}
	if _, err := fmt.Fprintf(r.writer, "%s  %s (%d steps, %s)\n", status, result.Scenario, len(result.Steps), result.Duration.Round(time.Millisecond)); err != nil {
		return err
	}
	if result.Failed() {
		if _, err := fmt.Fprintf(r.writer, "      %v\n", result.Err); err != nil {
			return err
		}
	}
	return nil
}

func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summarize(r.results)
	_, err := fmt.Fprintf(r.writer, "\n%d scenarios: %d passed, %d failed (%d steps, %d failed, %d skipped)\n",
		s.Scenarios, s.Passed, s.Failed, s.Steps, s.StepsFailed, s.StepsSkipped)
	if closeErr := r.writer.Close(); err == nil {
		err = closeErr
	}
	return err
}
