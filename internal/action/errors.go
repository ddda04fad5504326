// internal/action/errors.go
package action

import (
	"errors"
	"fmt"
)

var (
	// ErrNoVisibleElement means elements matched but none of them is visible.
	// Existence is not visibility, so this is never retried.
	ErrNoVisibleElement = errors.New("no visible element")
	// ErrNoSuchOption matches every *NoSuchOptionError.
	ErrNoSuchOption = errors.New("no such option")
)

// NoSuchOptionError reports a select control without the requested option.
// Text is empty when the control had no options at all.
type NoSuchOptionError struct {
	Text    string
	Options []string
}

func (e *NoSuchOptionError) Error() string {
	if e.Text == "" {
		return "select control has no options"
	}
	return fmt.Sprintf("option %q not found among %q", e.Text, e.Options)
}

func (e *NoSuchOptionError) Is(target error) bool {
	return target == ErrNoSuchOption
}
