// internal/reporting/junit_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagedriver/internal/script"
)

// JUnitReporter renders each scenario as a testsuite and each step as a
// testcase, so CI systems can show step level failures.
type JUnitReporter struct {
	writer io.WriteCloser
	logger *zap.Logger

	mu      sync.Mutex
	results []script.Result
}

// NewJUnitReporter creates a reporter that owns writer.
func NewJUnitReporter(writer io.WriteCloser, logger *zap.Logger) *JUnitReporter {
	return &JUnitReporter{writer: writer, logger: logger.Named("junit_reporter")}
}

func (r *JUnitReporter) Write(result script.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

// Close writes the XML document and closes the writer.
func (r *JUnitReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := BuildJUnit(r.results)
	doc.Indent(2)
	_, writeErr := doc.WriteTo(r.writer)
	closeErr := r.writer.Close()

	if writeErr != nil {
		r.logger.Error("Failed to write JUnit report", zap.Error(writeErr))
		return fmt.Errorf("failed to write JUnit output: %w", writeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	r.logger.Info("Wrote JUnit report", zap.Int("scenarios", len(r.results)))
	return nil
}

// BuildJUnit converts results into a <testsuites> document.
func BuildJUnit(results []script.Result) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	summary := Summarize(results)
	var total time.Duration
	for _, res := range results {
		total += res.Duration
	}

	root := doc.CreateElement("testsuites")
	root.CreateAttr("name", ToolName)
	root.CreateAttr("tests", strconv.Itoa(summary.Steps))
	root.CreateAttr("failures", strconv.Itoa(summary.StepsFailed))
	root.CreateAttr("skipped", strconv.Itoa(summary.StepsSkipped))
	root.CreateAttr("time", seconds(total))

	for _, res := range results {
		suite := root.CreateElement("testsuite")
		suite.CreateAttr("name", res.Scenario)
		suite.CreateAttr("tests", strconv.Itoa(len(res.Steps)))
		suite.CreateAttr("failures", strconv.Itoa(res.Count(script.StatusFailed)))
		suite.CreateAttr("skipped", strconv.Itoa(res.Count(script.StatusSkipped)))
		suite.CreateAttr("time", seconds(res.Duration))
		if !res.Started.IsZero() {
			suite.CreateAttr("timestamp", res.Started.UTC().Format(time.RFC3339))
		}

		// A run that failed before any step (bad wait policy, failed open)
		// has no failed testcase, so the suite carries the error itself.
		if res.Failed() && res.Count(script.StatusFailed) == 0 {
			suite.CreateElement("system-err").SetText(res.Err.Error())
		}

		for _, step := range res.Steps {
			tc := suite.CreateElement("testcase")
			tc.CreateAttr("classname", res.Scenario)
			tc.CreateAttr("name", caseName(step))
			tc.CreateAttr("time", seconds(step.Duration))

			switch step.Status {
			case script.StatusFailed:
				failure := tc.CreateElement("failure")
				failure.CreateAttr("message", errString(step.Err))
				failure.CreateAttr("type", string(step.Action))
				if step.Description != "" {
					failure.SetText(step.Description)
				}
			case script.StatusSkipped:
				tc.CreateElement("skipped").CreateAttr("message", errString(step.Err))
			}
			if step.Output != "" {
				tc.CreateElement("system-out").SetText(step.Output)
			}
		}
	}
	return doc
}

// caseName prefers the step's label, then its recorded command.
func caseName(step script.StepResult) string {
	switch {
	case step.Name != "":
		return fmt.Sprintf("%d. %s", step.Index, step.Name)
	case step.Description != "":
		return fmt.Sprintf("%d. %s", step.Index, step.Description)
	default:
		return fmt.Sprintf("%d. %s", step.Index, step.Action)
	}
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
