// internal/wait/policy.go
package wait

import (
	"fmt"
	"time"
)

const (
	// DefaultTimeout bounds how long a locator is retried before giving up.
	DefaultTimeout = 15 * time.Second
	// DefaultPoll is the pause between two checks of the document.
	DefaultPoll = 1 * time.Second
)

// Policy is an immutable (timeout, poll interval) pair. The zero value polls
// as fast as possible and gives up after the first failed check.
type Policy struct {
	timeout time.Duration
	poll    time.Duration
}

// NewPolicy validates and builds a Policy. Negative durations are clamped to
// zero before the timeout >= poll check; a violation wraps ErrConfiguration.
func NewPolicy(timeout, poll time.Duration) (Policy, error) {
	if timeout < 0 {
		timeout = 0
	}
	if poll < 0 {
		poll = 0
	}
	if timeout < poll {
		return Policy{}, fmt.Errorf("%w: timeout %s is shorter than poll interval %s", ErrConfiguration, timeout, poll)
	}
	return Policy{timeout: timeout, poll: poll}, nil
}

// DefaultPolicy returns the 15s / 1s policy.
func DefaultPolicy() Policy {
	return Policy{timeout: DefaultTimeout, poll: DefaultPoll}
}

func (p Policy) Timeout() time.Duration { return p.timeout }
func (p Policy) Poll() time.Duration    { return p.poll }

func (p Policy) String() string {
	return fmt.Sprintf("timeout=%s poll=%s", p.timeout, p.poll)
}
