// internal/wait/errors.go
package wait

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout matches every *TimeoutError.
	ErrTimeout = errors.New("wait timed out")
	// ErrConfiguration is returned when a policy violates timeout >= poll.
	ErrConfiguration = errors.New("invalid wait policy")

	// errNotReady is what Until feeds the retry loop when a condition reports false.
	errNotReady = errors.New("condition not met")
)

// TimeoutError reports a resolution that never succeeded within the policy.
// Command and Location are captured from the engine's diagnostics when the
// wait gives up.
type TimeoutError struct {
	Timeout  time.Duration
	Command  string
	Location string
	Attempts int
	Last     error
}

func (e *TimeoutError) Error() string {
	command, location := e.Command, e.Location
	if command == "" {
		command = "<no command>"
	}
	if location == "" {
		location = "<unknown location>"
	}
	msg := fmt.Sprintf("timed out after %s (%d attempts): %s on %s", e.Timeout, e.Attempts, command, location)
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrTimeout) hold. The last check error is kept for
// the message only: a timeout is not a NotFound.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
