// internal/script/scenario.go
package script

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/pagedriver/internal/locator"
	"github.com/xkilldash9x/pagedriver/internal/wait"
)

// Action identifies what a step does.
type Action string

const (
	ActionClick        Action = "click"
	ActionClickRandom  Action = "click_random"
	ActionType         Action = "type"
	ActionSelect       Action = "select"
	ActionSelectRandom Action = "select_random"
	ActionWaitFor      Action = "wait_for"
	ActionCount        Action = "count"
	ActionAttribute    Action = "attribute"
	ActionXPath        Action = "xpath"
	ActionFrame        Action = "frame"
	ActionPopFrame     Action = "pop_frame"
	ActionSleep        Action = "sleep"
	ActionOpen         Action = "open"
	ActionWaitPolicy   Action = "wait_policy"
)

// ErrInvalidScenario wraps every validation failure reported by Parse.
var ErrInvalidScenario = errors.New("invalid scenario")

// WaitSpec is a wait policy as written in a scenario. Durations use Go
// syntax ("10s", "250ms").
type WaitSpec struct {
	Timeout time.Duration `yaml:"timeout"`
	Poll    time.Duration `yaml:"poll"`
}

// Scenario is a named sequence of steps run against one session.
type Scenario struct {
	Name  string    `yaml:"name"`
	URL   string    `yaml:"url"`
	Wait  *WaitSpec `yaml:"wait"`
	Steps []Step    `yaml:"steps"`
}

// Step holds exactly one action key plus the arguments that action takes.
type Step struct {
	Name string `yaml:"name"`

	Click        string        `yaml:"click"`
	ClickRandom  string        `yaml:"click_random"`
	Type         string        `yaml:"type"`
	Select       string        `yaml:"select"`
	SelectRandom string        `yaml:"select_random"`
	WaitFor      string        `yaml:"wait_for"`
	Count        string        `yaml:"count"`
	Attribute    string        `yaml:"attribute"`
	XPath        string        `yaml:"xpath"`
	Frame        string        `yaml:"frame"`
	PopFrame     bool          `yaml:"pop_frame"`
	Sleep        time.Duration `yaml:"sleep"`
	Open         string        `yaml:"open"`
	WaitPolicy   *WaitSpec     `yaml:"wait_policy"`

	Text   *string `yaml:"text"`
	Attr   string  `yaml:"attr"`
	Expect *string `yaml:"expect"`

	action Action
	target locator.Locator
	count  int
}

// Action returns the step's action, set by Parse.
func (s Step) Action() Action { return s.action }

// Target returns the parsed locator of element steps.
func (s Step) Target() locator.Locator { return s.target }

// ParseFile reads and parses a scenario file. An unnamed scenario takes the
// file's base name.
func ParseFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// Parse decodes a scenario and validates every step, including its locator.
// Unknown keys are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidScenario, err)
	}
	sc.Name = strings.TrimSpace(sc.Name)
	sc.URL = strings.TrimSpace(sc.URL)

	if sc.Wait != nil {
		if _, err := wait.NewPolicy(sc.Wait.Timeout, sc.Wait.Poll); err != nil {
			return nil, fmt.Errorf("%w: wait: %v", ErrInvalidScenario, err)
		}
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrInvalidScenario)
	}
	for i := range sc.Steps {
		if err := sc.Steps[i].validate(); err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ErrInvalidScenario, i+1, err)
		}
	}
	return &sc, nil
}

func (s *Step) validate() error {
	present := map[Action]bool{
		ActionClick:        s.Click != "",
		ActionClickRandom:  s.ClickRandom != "",
		ActionType:         s.Type != "",
		ActionSelect:       s.Select != "",
		ActionSelectRandom: s.SelectRandom != "",
		ActionWaitFor:      s.WaitFor != "",
		ActionCount:        s.Count != "",
		ActionAttribute:    s.Attribute != "",
		ActionXPath:        s.XPath != "",
		ActionFrame:        s.Frame != "",
		ActionPopFrame:     s.PopFrame,
		ActionSleep:        s.Sleep != 0,
		ActionOpen:         s.Open != "",
		ActionWaitPolicy:   s.WaitPolicy != nil,
	}
	var found []string
	for a, ok := range present {
		if ok {
			s.action = a
			found = append(found, string(a))
		}
	}
	switch len(found) {
	case 0:
		return errors.New("no action")
	case 1:
	default:
		slices.Sort(found)
		return fmt.Errorf("more than one action: %s", strings.Join(found, ", "))
	}

	if raw := s.locatorText(); raw != "" {
		loc, err := locator.Parse(raw)
		if err != nil {
			return err
		}
		s.target = loc
	}

	switch s.action {
	case ActionType, ActionSelect:
		if s.Text == nil {
			return fmt.Errorf("%s needs text", s.action)
		}
	case ActionAttribute:
		if strings.TrimSpace(s.Attr) == "" {
			return errors.New("attribute needs attr")
		}
	case ActionCount:
		if s.Expect != nil {
			n, err := strconv.Atoi(strings.TrimSpace(*s.Expect))
			if err != nil || n < 0 {
				return fmt.Errorf("count expect %q is not a non-negative integer", *s.Expect)
			}
			s.count = n
		}
	case ActionSleep:
		if s.Sleep < 0 {
			return fmt.Errorf("sleep %s is negative", s.Sleep)
		}
	case ActionWaitPolicy:
		if _, err := wait.NewPolicy(s.WaitPolicy.Timeout, s.WaitPolicy.Poll); err != nil {
			return err
		}
	}
	if s.Expect != nil && s.action != ActionCount && s.action != ActionAttribute && s.action != ActionXPath {
		return fmt.Errorf("%s does not take expect", s.action)
	}
	return nil
}

// locatorText returns the locator argument of element actions.
func (s *Step) locatorText() string {
	switch s.action {
	case ActionClick:
		return s.Click
	case ActionClickRandom:
		return s.ClickRandom
	case ActionType:
		return s.Type
	case ActionSelect:
		return s.Select
	case ActionSelectRandom:
		return s.SelectRandom
	case ActionWaitFor:
		return s.WaitFor
	case ActionCount:
		return s.Count
	case ActionAttribute:
		return s.Attribute
	case ActionXPath:
		return s.XPath
	case ActionFrame:
		return s.Frame
	default:
		return ""
	}
}
