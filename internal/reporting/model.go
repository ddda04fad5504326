// internal/reporting/model.go
package reporting

import (
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/pagedriver/internal/script"
)

// ToolName identifies the producer in written reports.
const ToolName = "pagedriver"

// Document is the JSON report of one run.
type Document struct {
	ID        string           `json:"id"`
	Tool      string           `json:"tool"`
	Generated time.Time        `json:"generated"`
	Summary   Summary          `json:"summary"`
	Scenarios []ScenarioReport `json:"scenarios"`
}

// Summary counts scenarios and steps by outcome.
type Summary struct {
	Scenarios    int `json:"scenarios"`
	Passed       int `json:"passed"`
	Failed       int `json:"failed"`
	Steps        int `json:"steps"`
	StepsFailed  int `json:"steps_failed"`
	StepsSkipped int `json:"steps_skipped"`
}

// ScenarioReport is the serialized form of a script.Result.
type ScenarioReport struct {
	Name       string        `json:"name"`
	Status     script.Status `json:"status"`
	Started    time.Time     `json:"started"`
	DurationMS int64         `json:"duration_ms"`
	Error      string        `json:"error,omitempty"`
	Steps      []StepReport  `json:"steps"`
}

// StepReport is the serialized form of a script.StepResult.
type StepReport struct {
	Index      int           `json:"index"`
	Name       string        `json:"name,omitempty"`
	Action     script.Action `json:"action"`
	Command    string        `json:"command,omitempty"`
	Status     script.Status `json:"status"`
	Output     string        `json:"output,omitempty"`
	DurationMS int64         `json:"duration_ms"`
	Error      string        `json:"error,omitempty"`
}

// NewDocument builds a report with a fresh run ID.
func NewDocument(results []script.Result) Document {
	doc := Document{
		ID:        uuid.New().String(),
		Tool:      ToolName,
		Generated: time.Now().UTC(),
		Scenarios: make([]ScenarioReport, 0, len(results)),
	}
	for _, res := range results {
		doc.Scenarios = append(doc.Scenarios, newScenarioReport(res))
	}
	doc.Summary = Summarize(results)
	return doc
}

// Summarize counts outcomes across results.
func Summarize(results []script.Result) Summary {
	var s Summary
	for _, res := range results {
		s.Scenarios++
		if res.Failed() {
			s.Failed++
		} else {
			s.Passed++
		}
		s.Steps += len(res.Steps)
		s.StepsFailed += res.Count(script.StatusFailed)
		s.StepsSkipped += res.Count(script.StatusSkipped)
	}
	return s
}

func newScenarioReport(res script.Result) ScenarioReport {
	sr := ScenarioReport{
		Name:       res.Scenario,
		Status:     script.StatusPassed,
		Started:    res.Started.UTC(),
		DurationMS: res.Duration.Milliseconds(),
		Error:      errString(res.Err),
		Steps:      make([]StepReport, 0, len(res.Steps)),
	}
	if res.Failed() {
		sr.Status = script.StatusFailed
	}
	for _, step := range res.Steps {
		sr.Steps = append(sr.Steps, StepReport{
			Index:      step.Index,
			Name:       step.Name,
			Action:     step.Action,
			Command:    step.Description,
			Status:     step.Status,
			Output:     step.Output,
			DurationMS: step.Duration.Milliseconds(),
			Error:      errString(step.Err),
		})
	}
	return sr
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
