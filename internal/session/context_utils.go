// internal/session/context_utils.go
package session

import (
	"context"
	"time"
)

// CombineContext returns a context that carries the values of base (for
// chromedp, the target connection) and is canceled when either base or op is.
func CombineContext(base, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(base)
	if d, ok := op.Deadline(); ok {
		// Inherit the operational deadline so chromedp sees it too.
		var cancelDeadline context.CancelFunc
		combined, cancelDeadline = context.WithDeadline(combined, d)
		inner := cancel
		cancel = func() { cancelDeadline(); inner() }
	}

	go func() {
		select {
		case <-op.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}

// valueOnlyContext keeps its parent's values but drops its deadline and cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context that inherits values from ctx but is never canceled.
// Used for teardown work that must outlive the caller's context.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
