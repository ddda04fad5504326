// internal/wait/engine.go
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pagedriver/internal/session"
)

// Diagnostics reports the command being executed and the document location.
// It is called once, when a wait gives up.
type Diagnostics func() (command, location string)

// Option configures an Engine.
type Option func(*Engine)

// WithDiagnostics attaches the context embedded in timeout errors.
func WithDiagnostics(d Diagnostics) Option {
	return func(e *Engine) { e.diagnostics = d }
}

// WithLogger sets the logger used for retry and timeout records.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger.Named("wait") }
}

// Engine retries checks under a Policy. It holds no per-call state and can be
// shared by sequential callers.
type Engine struct {
	policy      Policy
	diagnostics Diagnostics
	logger      *zap.Logger
}

// NewEngine builds an Engine for policy.
func NewEngine(policy Policy, opts ...Option) *Engine {
	e := &Engine{
		policy: policy,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the policy the engine was built with.
func (e *Engine) Policy() Policy { return e.policy }

// Retryable reports whether err means "not there yet" rather than a real failure.
func Retryable(err error) bool {
	return errors.Is(err, session.ErrNotFound) || errors.Is(err, errNotReady)
}

// Poll runs check immediately and then at most once per poll interval until it
// succeeds, fails with a non-retryable error (returned unchanged), ctx ends,
// or the policy timeout has elapsed after a failed check.
func Poll[T any](ctx context.Context, e *Engine, check func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	limit := rate.Inf
	if e.policy.poll > 0 {
		limit = rate.Every(e.policy.poll)
	}
	limiter := rate.NewLimiter(limit, 1)

	start := time.Now()
	attempts := 0
	for {
		if err := pace(ctx, limiter); err != nil {
			return zero, fmt.Errorf("wait interrupted after %d attempts: %w", attempts, err)
		}

		attempts++
		v, err := check(ctx)
		if err == nil {
			return v, nil
		}
		if !Retryable(err) {
			return zero, err
		}

		elapsed := time.Since(start)
		if elapsed >= e.policy.timeout {
			return zero, e.timeout(attempts, err)
		}
		e.logger.Debug("Check not satisfied, retrying.",
			zap.Int("attempt", attempts),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	}
}

// Until polls cond until it reports true. condition names what is awaited and
// appears in the timeout message.
func (e *Engine) Until(ctx context.Context, condition string, cond func(ctx context.Context) (bool, error)) error {
	_, err := Poll(ctx, e, func(ctx context.Context) (struct{}, error) {
		ok, err := cond(ctx)
		if err != nil {
			return struct{}{}, err
		}
		if !ok {
			return struct{}{}, fmt.Errorf("%w: %s", errNotReady, condition)
		}
		return struct{}{}, nil
	})
	return err
}

func (e *Engine) timeout(attempts int, last error) error {
	terr := &TimeoutError{
		Timeout:  e.policy.timeout,
		Attempts: attempts,
		Last:     last,
	}
	if e.diagnostics != nil {
		terr.Command, terr.Location = e.diagnostics()
	}
	e.logger.Warn("Wait timed out.",
		zap.String("command", terr.Command),
		zap.String("location", terr.Location),
		zap.Duration("timeout", terr.Timeout),
		zap.Int("attempts", attempts),
		zap.Error(last))
	return terr
}

// pace blocks until the limiter grants the next check.
func pace(ctx context.Context, limiter *rate.Limiter) error {
	if err := limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// The next slot lies beyond the context deadline.
		return context.DeadlineExceeded
	}
	return nil
}
