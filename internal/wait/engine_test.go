// internal/wait/engine_test.go
package wait

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pagedriver/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newEngine(t *testing.T, timeout, poll time.Duration, opts ...Option) *Engine {
	t.Helper()
	p, err := NewPolicy(timeout, poll)
	require.NoError(t, err)
	return NewEngine(p, append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
}

func notFound() error {
	return fmt.Errorf("%w: css=%q", session.ErrNotFound, "#late")
}

func TestPoll_SucceedsOnNthAttempt(t *testing.T) {
	e := newEngine(t, time.Second, 10*time.Millisecond)

	attempts := 0
	got, err := Poll(context.Background(), e, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 4 {
			return "", notFound()
		}
		return "found", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "found", got)
	assert.Equal(t, 4, attempts)
}

func TestPoll_RespectsPollInterval(t *testing.T) {
	poll := 20 * time.Millisecond
	e := newEngine(t, time.Second, poll)

	var stamps []time.Time
	_, err := Poll(context.Background(), e, func(ctx context.Context) (int, error) {
		stamps = append(stamps, time.Now())
		if len(stamps) < 4 {
			return 0, notFound()
		}
		return len(stamps), nil
	})
	require.NoError(t, err)
	require.Len(t, stamps, 4)

	// First check is immediate; the three retries are spaced by the interval.
	total := stamps[3].Sub(stamps[0])
	assert.GreaterOrEqual(t, total, 3*poll-5*time.Millisecond)
}

func TestPoll_TimesOut(t *testing.T) {
	timeout := 60 * time.Millisecond
	e := newEngine(t, timeout, 10*time.Millisecond, WithDiagnostics(func() (string, string) {
		return "Click 'Submit' Using By.css: #late", "https://example.test/form"
	}))

	start := time.Now()
	_, err := Poll(context.Background(), e, func(ctx context.Context) (int, error) {
		return 0, notFound()
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, session.ErrNotFound, "a timeout is not a NotFound")

	var terr *TimeoutError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, timeout, terr.Timeout)
	assert.GreaterOrEqual(t, terr.Attempts, 2)
	assert.Contains(t, err.Error(), "Click 'Submit' Using By.css: #late")
	assert.Contains(t, err.Error(), "https://example.test/form")
	assert.Contains(t, err.Error(), "#late")
}

func TestPoll_ZeroPolicyChecksOnce(t *testing.T) {
	e := NewEngine(Policy{})

	attempts := 0
	_, err := Poll(context.Background(), e, func(ctx context.Context) (int, error) {
		attempts++
		return 0, notFound()
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1, attempts)
	assert.Contains(t, err.Error(), "<no command> on <unknown location>")
}

func TestPoll_FatalErrorIsNotRetried(t *testing.T) {
	e := newEngine(t, time.Second, 10*time.Millisecond)
	boom := errors.New("invalid selector")

	attempts := 0
	_, err := Poll(context.Background(), e, func(ctx context.Context) (int, error) {
		attempts++
		return 0, boom
	})
	assert.Same(t, boom, err, "fatal errors propagate unchanged")
	assert.Equal(t, 1, attempts)
}

func TestPoll_ContextCancellation(t *testing.T) {
	e := newEngine(t, 10*time.Second, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	_, err := Poll(ctx, e, func(ctx context.Context) (int, error) {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return 0, notFound()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 2, attempts)
}

func TestPoll_ContextDeadlineBeforeNextSlot(t *testing.T) {
	e := newEngine(t, 10*time.Second, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Poll(ctx, e, func(ctx context.Context) (int, error) {
		return 0, notFound()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second, "the engine does not sleep past the caller's deadline")
}

func TestEngine_Until(t *testing.T) {
	t.Run("eventually true", func(t *testing.T) {
		e := newEngine(t, time.Second, 5*time.Millisecond)
		calls := 0
		err := e.Until(context.Background(), "element clickable", func(ctx context.Context) (bool, error) {
			calls++
			return calls >= 3, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("never true", func(t *testing.T) {
		e := newEngine(t, 30*time.Millisecond, 5*time.Millisecond)
		err := e.Until(context.Background(), "element visible", func(ctx context.Context) (bool, error) {
			return false, nil
		})
		assert.ErrorIs(t, err, ErrTimeout)
		assert.Contains(t, err.Error(), "element visible")
	})

	t.Run("condition error is fatal", func(t *testing.T) {
		e := newEngine(t, time.Second, 5*time.Millisecond)
		err := e.Until(context.Background(), "element visible", func(ctx context.Context) (bool, error) {
			return false, session.ErrSessionClosed
		})
		assert.ErrorIs(t, err, session.ErrSessionClosed)
		assert.NotErrorIs(t, err, ErrTimeout)
	})
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(notFound()))
	assert.True(t, Retryable(fmt.Errorf("%w: x", errNotReady)))
	assert.False(t, Retryable(session.ErrSessionClosed))
	assert.False(t, Retryable(&TimeoutError{Last: notFound()}))
	assert.False(t, Retryable(nil))
}
