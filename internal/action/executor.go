// internal/action/executor.go
package action

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagedriver/internal/locator"
	"github.com/xkilldash9x/pagedriver/internal/session"
	"github.com/xkilldash9x/pagedriver/internal/wait"
)

// DefaultCommitKey is sent after typed text so change handlers fire.
const DefaultCommitKey = "\t"

// Option configures an Executor.
type Option func(*Executor)

// WithCommitKey replaces the keystroke sent after typed text. An empty key
// sends the text alone.
func WithCommitKey(key string) Option {
	return func(e *Executor) { e.commitKey = key }
}

// WithRandom replaces the index source used by the random selections.
func WithRandom(intn Intn) Option {
	return func(e *Executor) {
		if intn != nil {
			e.intn = intn
		}
	}
}

// WithLogger sets the executor's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) { e.logger = logger.Named("action") }
}

// Executor performs interactions on resolved elements, enforcing the
// precondition each interaction needs before touching the page.
type Executor struct {
	resolver  *locator.Resolver
	sess      session.Session
	engine    *wait.Engine
	commitKey string
	intn      Intn
	logger    *zap.Logger
}

// New builds an Executor over the resolver's session and wait engine.
func New(resolver *locator.Resolver, opts ...Option) *Executor {
	e := &Executor{
		resolver:  resolver,
		sess:      resolver.Session(),
		engine:    resolver.Engine(),
		commitKey: DefaultCommitKey,
		intn:      DefaultIntn,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Click moves the pointer onto the element and clicks it. Selector locators
// wait for clickability; a pre-resolved handle only needs to be visible.
func (e *Executor) Click(ctx context.Context, loc locator.Locator) error {
	if h, ok := loc.ElementHandle(); ok {
		return e.hoverClick(ctx, h)
	}
	h, err := e.resolver.One(ctx, loc)
	if err != nil {
		return err
	}
	if err := e.waitClickable(ctx, h); err != nil {
		return err
	}
	return e.moveAndClick(ctx, h)
}

// ClickRandom clicks one visible match chosen uniformly at random and returns it.
func (e *Executor) ClickRandom(ctx context.Context, loc locator.Locator) (session.ElementHandle, error) {
	if err := e.WaitFor(ctx, loc); err != nil {
		return nil, err
	}
	handles, err := e.resolver.Many(ctx, loc)
	if err != nil {
		return nil, err
	}
	visible, err := e.resolver.Visible(ctx, handles)
	if err != nil {
		return nil, err
	}
	if len(visible) == 0 {
		return nil, fmt.Errorf("%w: %d elements match %s", ErrNoVisibleElement, len(handles), loc)
	}

	i := pick(e.intn, len(visible))
	h := visible[i]
	e.logger.Debug("Random element chosen.",
		zap.Int("index", i),
		zap.Int("visible", len(visible)),
		zap.Int("matched", len(handles)))
	if err := e.hoverClick(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Type replaces the element's content with text and sends the commit key.
// When several elements match, the first visible one receives the input.
func (e *Executor) Type(ctx context.Context, loc locator.Locator, text string) error {
	handles, err := e.resolver.Many(ctx, loc)
	if err != nil {
		return err
	}
	h := handles[0]
	if len(handles) > 1 {
		first, found, err := e.resolver.FirstVisible(ctx, handles)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: %d elements match %s", ErrNoVisibleElement, len(handles), loc)
		}
		h = first
	}

	if err := e.waitVisible(ctx, h); err != nil {
		return err
	}
	if err := e.sess.Clear(ctx, h); err != nil {
		return fmt.Errorf("clear %s: %w", loc, err)
	}
	if err := e.sess.SendInput(ctx, h, text+e.commitKey); err != nil {
		return fmt.Errorf("type into %s: %w", loc, err)
	}
	return nil
}

// ComboBoxByText selects the option labeled text in the first visible select
// control matching loc. A handle is used as is, visible or not. Labels are
// compared after trimming whitespace.
func (e *Executor) ComboBoxByText(ctx context.Context, loc locator.Locator, text string) error {
	h, ok := loc.ElementHandle()
	if !ok {
		handles, err := e.resolver.Many(ctx, loc)
		if err != nil {
			return err
		}
		var found bool
		h, found, err = e.resolver.FirstVisible(ctx, handles)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: %d elements match %s", ErrNoVisibleElement, len(handles), loc)
		}
	}

	options, err := e.sess.ListOptions(ctx, h)
	if err != nil {
		return fmt.Errorf("list options of %s: %w", loc, err)
	}
	want := strings.TrimSpace(text)
	for _, opt := range options {
		if strings.TrimSpace(opt) == want {
			return e.sess.SelectOptionByText(ctx, h, opt)
		}
	}
	return &NoSuchOptionError{Text: text, Options: options}
}

// ComboBoxRandom selects a uniformly random option and returns its label.
func (e *Executor) ComboBoxRandom(ctx context.Context, loc locator.Locator) (string, error) {
	h, err := e.resolver.One(ctx, loc)
	if err != nil {
		return "", err
	}
	options, err := e.sess.ListOptions(ctx, h)
	if err != nil {
		return "", fmt.Errorf("list options of %s: %w", loc, err)
	}
	if len(options) == 0 {
		return "", &NoSuchOptionError{}
	}

	i := pick(e.intn, len(options))
	e.logger.Debug("Random option chosen.", zap.Int("index", i), zap.Int("options", len(options)))
	if err := e.sess.SelectOptionByIndex(ctx, h, i); err != nil {
		return "", err
	}
	return options[i], nil
}

// WaitFor blocks until loc resolves. A handle is re-located through its
// canonical path, which fails once the element has left the document.
func (e *Executor) WaitFor(ctx context.Context, loc locator.Locator) error {
	if h, ok := loc.ElementHandle(); ok {
		path, err := locator.CanonicalPath(ctx, e.sess, h)
		if err != nil {
			return err
		}
		loc = locator.XPath(locator.AsXPath(path))
	}
	_, err := e.resolver.One(ctx, loc)
	return err
}

func (e *Executor) hoverClick(ctx context.Context, h session.ElementHandle) error {
	if err := e.waitVisible(ctx, h); err != nil {
		return err
	}
	return e.moveAndClick(ctx, h)
}

// moveAndClick hovers before clicking; some widgets only arm on mouseover.
func (e *Executor) moveAndClick(ctx context.Context, h session.ElementHandle) error {
	if err := e.sess.MoveTo(ctx, h); err != nil {
		return fmt.Errorf("move to element: %w", err)
	}
	if err := e.sess.Click(ctx, h); err != nil {
		return fmt.Errorf("click element: %w", err)
	}
	return nil
}

func (e *Executor) waitVisible(ctx context.Context, h session.ElementHandle) error {
	return e.engine.Until(ctx, "element visible", func(ctx context.Context) (bool, error) {
		return e.sess.IsVisible(ctx, h)
	})
}

func (e *Executor) waitClickable(ctx context.Context, h session.ElementHandle) error {
	return e.engine.Until(ctx, "element clickable", func(ctx context.Context) (bool, error) {
		return e.sess.IsClickable(ctx, h)
	})
}
