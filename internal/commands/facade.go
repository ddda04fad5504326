// internal/commands/facade.go
package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/pagedriver/internal/action"
	"github.com/xkilldash9x/pagedriver/internal/locator"
	"github.com/xkilldash9x/pagedriver/internal/session"
	"github.com/xkilldash9x/pagedriver/internal/wait"
)

// Commands is the single command surface over one Session. Every element
// command records its description and the current location before running,
// so that a timeout can say what was being attempted and where.
//
// One facade per session is the normal case. The facade's own state is
// guarded, but the session itself expects one caller at a time.
type Commands struct {
	sess      session.Session
	logger    *zap.Logger
	commitKey string
	intn      action.Intn

	mu          sync.Mutex
	policy      wait.Policy
	lastCommand string
	location    string
}

// New creates a facade for sess.
func New(sess session.Session, logger *zap.Logger, opts ...Option) *Commands {
	c := &Commands{
		sess:      sess,
		logger:    logger.Named("commands"),
		commitKey: action.DefaultCommitKey,
		intn:      action.DefaultIntn,
		policy:    wait.DefaultPolicy(),
		location:  unknownLocation,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the underlying session.
func (c *Commands) Session() session.Session { return c.sess }

// Context returns a snapshot of the last recorded command and location.
func (c *Commands) Context() CommandContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CommandContext{LastCommand: c.lastCommand, Location: c.location}
}

// WaitPolicy returns the policy used by subsequent commands.
func (c *Commands) WaitPolicy() wait.Policy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy
}

// SetWaitPolicy replaces the wait policy. Negative values are clamped to zero;
// a timeout shorter than the poll interval is rejected and the old policy kept.
func (c *Commands) SetWaitPolicy(timeout, poll time.Duration) error {
	p, err := wait.NewPolicy(timeout, poll)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.policy = p
	c.mu.Unlock()
	c.logger.Info("Wait policy updated.", zap.Duration("timeout", p.Timeout()), zap.Duration("poll", p.Poll()))
	return nil
}

// -- Session level commands --

// Open navigates to url.
func (c *Commands) Open(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("%w: Open requires a url", ErrInvalidArgument)
	}
	c.record(fmt.Sprintf("Open '%s'", url), "", zapcore.InfoLevel)
	return c.sess.Navigate(ctx, url)
}

// Close ends the session. Errors are logged and swallowed, so closing twice is safe.
func (c *Commands) Close(ctx context.Context) {
	c.record("Close", "", zapcore.InfoLevel)
	if err := c.sess.Quit(ctx); err != nil {
		c.logger.Warn("Session close reported an error.", zap.Error(err))
	}
}

// PopFrame returns to the top-level document.
func (c *Commands) PopFrame(ctx context.Context) error {
	c.record("PopFrame", "", zapcore.InfoLevel)
	return c.sess.SwitchToDefaultContent(ctx)
}

// SwitchFrame scopes subsequent commands to the frame element at loc.
func (c *Commands) SwitchFrame(ctx context.Context, loc locator.Locator, opts ...CommandOption) error {
	run := c.begin(ctx, describe("SwitchFrame", loc, applyOptions(opts)), zapcore.InfoLevel)
	h, err := run.resolver.One(ctx, loc)
	if err != nil {
		return run.fail(err)
	}
	return run.fail(c.sess.SwitchToFrame(ctx, h))
}

// WaitForDuration blocks for d. It is a fixed delay and ignores cancellation.
func (c *Commands) WaitForDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: WaitForDuration requires a positive duration, got %s", ErrInvalidArgument, d)
	}
	c.record(fmt.Sprintf("WaitForDuration %s", d), "", zapcore.InfoLevel)
	time.Sleep(d)
	return nil
}

// -- Element commands --

// Click hovers and clicks the element at loc.
func (c *Commands) Click(ctx context.Context, loc locator.Locator, opts ...CommandOption) error {
	run := c.begin(ctx, describe("Click", loc, applyOptions(opts)), zapcore.InfoLevel)
	return run.fail(run.executor.Click(ctx, loc))
}

// ClickRandom clicks one visible match of loc chosen at random.
func (c *Commands) ClickRandom(ctx context.Context, loc locator.Locator, opts ...CommandOption) (session.ElementHandle, error) {
	run := c.begin(ctx, describe("Click Random", loc, applyOptions(opts)), zapcore.InfoLevel)
	h, err := run.executor.ClickRandom(ctx, loc)
	return h, run.fail(err)
}

// Type replaces the content of the element at loc with input and commits it.
func (c *Commands) Type(ctx context.Context, loc locator.Locator, input string, opts ...CommandOption) error {
	run := c.begin(ctx, describeType(input, loc, applyOptions(opts)), zapcore.InfoLevel)
	return run.fail(run.executor.Type(ctx, loc, input))
}

// ComboBoxByText selects the option labeled text.
func (c *Commands) ComboBoxByText(ctx context.Context, loc locator.Locator, text string, opts ...CommandOption) error {
	run := c.begin(ctx, describeComboBoxByText(text, loc, applyOptions(opts)), zapcore.InfoLevel)
	return run.fail(run.executor.ComboBoxByText(ctx, loc, text))
}

// ComboBoxRandom selects a random option and returns its label.
func (c *Commands) ComboBoxRandom(ctx context.Context, loc locator.Locator, opts ...CommandOption) (string, error) {
	run := c.begin(ctx, describeComboBoxRandom(loc, applyOptions(opts)), zapcore.InfoLevel)
	label, err := run.executor.ComboBoxRandom(ctx, loc)
	return label, run.fail(err)
}

// WaitForElement blocks until loc resolves.
func (c *Commands) WaitForElement(ctx context.Context, loc locator.Locator, opts ...CommandOption) error {
	run := c.begin(ctx, describe("WaitForElement", loc, applyOptions(opts)), zapcore.InfoLevel)
	return run.fail(run.executor.WaitFor(ctx, loc))
}

// -- Queries --

// GetElement resolves the first match of loc.
func (c *Commands) GetElement(ctx context.Context, loc locator.Locator) (session.ElementHandle, error) {
	run := c.begin(ctx, describe("GetElement", loc, commandOptions{}), zapcore.DebugLevel)
	h, err := run.resolver.One(ctx, loc)
	return h, run.fail(err)
}

// GetElements resolves every match of loc; the result is never empty.
func (c *Commands) GetElements(ctx context.Context, loc locator.Locator) ([]session.ElementHandle, error) {
	run := c.begin(ctx, describe("GetElements", loc, commandOptions{}), zapcore.DebugLevel)
	handles, err := run.resolver.Many(ctx, loc)
	return handles, run.fail(err)
}

// GetElementCount counts the matches of loc. A selector that matches
// nothing until the timeout counts as 0 rather than failing.
func (c *Commands) GetElementCount(ctx context.Context, loc locator.Locator) (int, error) {
	run := c.begin(ctx, describe("GetElementCount", loc, commandOptions{}), zapcore.DebugLevel)
	n, err := run.resolver.Count(ctx, loc)
	return n, run.fail(err)
}

// GetElementAttribute reads attribute name of the first match. ok is false
// when the element has no such attribute.
func (c *Commands) GetElementAttribute(ctx context.Context, loc locator.Locator, name string) (value string, ok bool, err error) {
	run := c.begin(ctx, describe(fmt.Sprintf("GetElementAttribute '%s'", name), loc, commandOptions{}), zapcore.DebugLevel)
	value, ok, err = run.resolver.Attribute(ctx, loc, name)
	return value, ok, run.fail(err)
}

// GetElementXPath returns the canonical path of the first match of loc.
func (c *Commands) GetElementXPath(ctx context.Context, loc locator.Locator) (string, error) {
	run := c.begin(ctx, describe("GetElementXPath", loc, commandOptions{}), zapcore.DebugLevel)
	h, err := run.resolver.One(ctx, loc)
	if err != nil {
		return "", run.fail(err)
	}
	path, err := locator.CanonicalPath(ctx, c.sess, h)
	return path, run.fail(err)
}

// -- Dispatch --

// invocation carries the per-call collaborators built from the current policy.
type invocation struct {
	description string
	location    string
	resolver    *locator.Resolver
	executor    *action.Executor
}

// begin re-reads the location, records the description, logs the command and
// builds the resolution chain from the policy in force.
func (c *Commands) begin(ctx context.Context, description string, level zapcore.Level) *invocation {
	location, err := c.sess.CurrentLocation(ctx)
	if err != nil {
		c.logger.Debug("Could not read current location.", zap.Error(err))
		location = unknownLocation
	}
	policy := c.record(description, location, level)

	engine := wait.NewEngine(policy, wait.WithDiagnostics(c.diagnostics), wait.WithLogger(c.logger))
	resolver := locator.NewResolver(c.sess, engine)
	executor := action.New(resolver,
		action.WithCommitKey(c.commitKey),
		action.WithRandom(c.intn),
		action.WithLogger(c.logger))
	return &invocation{
		description: description,
		location:    location,
		resolver:    resolver,
		executor:    executor,
	}
}

// record stores the description (and location, when given) and logs it.
// It returns the policy in force for the call.
func (c *Commands) record(description, location string, level zapcore.Level) wait.Policy {
	c.mu.Lock()
	c.lastCommand = description
	if location != "" {
		c.location = location
	}
	location = c.location
	policy := c.policy
	c.mu.Unlock()

	if ce := c.logger.Check(level, "Command dispatched."); ce != nil {
		ce.Write(zap.String("command", description), zap.String("location", location))
	}
	return policy
}

func (c *Commands) diagnostics() (string, string) {
	snap := c.Context()
	return snap.LastCommand, snap.Location
}

// fail attaches the command and location to errors that do not carry them.
// Timeouts already embed both.
func (inv *invocation) fail(err error) error {
	if err == nil || errors.Is(err, wait.ErrTimeout) {
		return err
	}
	return fmt.Errorf("%s on %s: %w", inv.description, inv.location, err)
}
