// internal/commands/options.go
package commands

import (
	"github.com/xkilldash9x/pagedriver/internal/action"
	"github.com/xkilldash9x/pagedriver/internal/wait"
)

// Option configures a Commands facade at construction.
type Option func(*Commands)

// WithWaitPolicy sets the initial wait policy. The default is wait.DefaultPolicy.
func WithWaitPolicy(p wait.Policy) Option {
	return func(c *Commands) { c.policy = p }
}

// WithCommitKey sets the keystroke sent after typed text.
func WithCommitKey(key string) Option {
	return func(c *Commands) { c.commitKey = key }
}

// WithRandom replaces the source used by ClickRandom and ComboBoxRandom.
func WithRandom(intn action.Intn) Option {
	return func(c *Commands) { c.intn = intn }
}

// CommandOption adjusts a single command call.
type CommandOption func(*commandOptions)

type commandOptions struct {
	label string
}

// Named gives the target a human label used in the command description,
// e.g. Click 'Submit' Using By.id: send.
func Named(label string) CommandOption {
	return func(o *commandOptions) { o.label = label }
}

func applyOptions(opts []CommandOption) commandOptions {
	var o commandOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
