// internal/script/runner.go
package script

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagedriver/internal/commands"
)

// ErrAssertion is returned by steps whose expect does not hold.
var ErrAssertion = errors.New("assertion failed")

// ErrSkipped marks steps that never ran because an earlier one failed.
var ErrSkipped = errors.New("skipped after earlier failure")

// Status is the outcome of one step.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepResult records one executed (or skipped) step.
type StepResult struct {
	Index       int
	Name        string
	Action      Action
	Description string
	Status      Status
	Output      string
	Duration    time.Duration
	Err         error
}

// Result is the outcome of a scenario run.
type Result struct {
	Scenario string
	Started  time.Time
	Duration time.Duration
	Steps    []StepResult
	// Err is the first failure, including a failed initial open.
	Err error
}

// Failed reports whether any part of the run failed.
func (r Result) Failed() bool { return r.Err != nil }

// Count returns how many steps ended with status s.
func (r Result) Count(s Status) int {
	n := 0
	for _, step := range r.Steps {
		if step.Status == s {
			n++
		}
	}
	return n
}

// Aborted reports sc as never started: err is the scenario's failure and
// every step is skipped.
func Aborted(sc *Scenario, err error) Result {
	res := Result{Scenario: sc.Name, Started: time.Now(), Err: err}
	for i, step := range sc.Steps {
		res.Steps = append(res.Steps, StepResult{
			Index:  i + 1,
			Name:   step.Name,
			Action: step.action,
			Status: StatusSkipped,
			Err:    ErrSkipped,
		})
	}
	return res
}

// Runner executes scenarios through a command facade.
type Runner struct {
	logger *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{logger: logger.Named("script")}
}

// Run executes sc's steps in order and stops at the first failure; the
// remaining steps are reported as skipped.
func (r *Runner) Run(ctx context.Context, c *commands.Commands, sc *Scenario) Result {
	logger := r.logger.With(zap.String("scenario", sc.Name))
	res := Result{Scenario: sc.Name, Started: time.Now()}

	logger.Info("Scenario started.", zap.Int("steps", len(sc.Steps)))

	if sc.Wait != nil {
		if err := c.SetWaitPolicy(sc.Wait.Timeout, sc.Wait.Poll); err != nil {
			res.Err = fmt.Errorf("scenario wait policy: %w", err)
		}
	}
	if res.Err == nil && sc.URL != "" {
		if err := c.Open(ctx, sc.URL); err != nil {
			res.Err = fmt.Errorf("open %s: %w", sc.URL, err)
		}
	}

	for i, step := range sc.Steps {
		sr := StepResult{Index: i + 1, Name: step.Name, Action: step.action}
		if res.Err != nil {
			sr.Status = StatusSkipped
			sr.Err = ErrSkipped
			res.Steps = append(res.Steps, sr)
			continue
		}
		if err := ctx.Err(); err != nil {
			res.Err = err
			sr.Status = StatusSkipped
			sr.Err = err
			res.Steps = append(res.Steps, sr)
			continue
		}

		start := time.Now()
		output, err := r.exec(ctx, c, step)
		sr.Duration = time.Since(start)
		sr.Description = c.Context().LastCommand
		sr.Output = output
		if err != nil {
			sr.Status = StatusFailed
			sr.Err = err
			res.Err = fmt.Errorf("step %d (%s): %w", sr.Index, sr.Description, err)
			logger.Warn("Step failed.", zap.Int("step", sr.Index), zap.String("command", sr.Description), zap.Error(err))
		} else {
			sr.Status = StatusPassed
			logger.Debug("Step passed.", zap.Int("step", sr.Index), zap.Duration("duration", sr.Duration))
		}
		res.Steps = append(res.Steps, sr)
	}

	res.Duration = time.Since(res.Started)
	if res.Err != nil {
		logger.Warn("Scenario failed.", zap.Error(res.Err))
	} else {
		logger.Info("Scenario passed.", zap.Int("steps", len(res.Steps)))
	}
	return res
}

func (r *Runner) exec(ctx context.Context, c *commands.Commands, s Step) (string, error) {
	var opts []commands.CommandOption
	if s.Name != "" {
		opts = append(opts, commands.Named(s.Name))
	}

	switch s.action {
	case ActionClick:
		return "", c.Click(ctx, s.target, opts...)
	case ActionClickRandom:
		_, err := c.ClickRandom(ctx, s.target, opts...)
		return "", err
	case ActionType:
		return "", c.Type(ctx, s.target, *s.Text, opts...)
	case ActionSelect:
		return "", c.ComboBoxByText(ctx, s.target, *s.Text, opts...)
	case ActionSelectRandom:
		return c.ComboBoxRandom(ctx, s.target, opts...)
	case ActionWaitFor:
		return "", c.WaitForElement(ctx, s.target, opts...)
	case ActionCount:
		n, err := c.GetElementCount(ctx, s.target)
		if err != nil {
			return "", err
		}
		out := strconv.Itoa(n)
		if s.Expect != nil && n != s.count {
			return out, fmt.Errorf("%w: %s matched %d elements, expected %d", ErrAssertion, s.target, n, s.count)
		}
		return out, nil
	case ActionAttribute:
		value, ok, err := c.GetElementAttribute(ctx, s.target, s.Attr)
		if err != nil {
			return "", err
		}
		if s.Expect != nil {
			if !ok {
				return "", fmt.Errorf("%w: %s has no attribute %q, expected %q", ErrAssertion, s.target, s.Attr, *s.Expect)
			}
			if value != *s.Expect {
				return value, fmt.Errorf("%w: attribute %q of %s is %q, expected %q", ErrAssertion, s.Attr, s.target, value, *s.Expect)
			}
		}
		return value, nil
	case ActionXPath:
		path, err := c.GetElementXPath(ctx, s.target)
		if err != nil {
			return "", err
		}
		if s.Expect != nil && path != *s.Expect {
			return path, fmt.Errorf("%w: path of %s is %q, expected %q", ErrAssertion, s.target, path, *s.Expect)
		}
		return path, nil
	case ActionFrame:
		return "", c.SwitchFrame(ctx, s.target, opts...)
	case ActionPopFrame:
		return "", c.PopFrame(ctx)
	case ActionSleep:
		return "", c.WaitForDuration(s.Sleep)
	case ActionOpen:
		return "", c.Open(ctx, s.Open)
	case ActionWaitPolicy:
		return "", c.SetWaitPolicy(s.WaitPolicy.Timeout, s.WaitPolicy.Poll)
	default:
		return "", fmt.Errorf("unsupported action %q", s.action)
	}
}
