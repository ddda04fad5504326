// internal/locator/strategy.go
package locator

import (
	"context"
	"errors"
	"fmt"

	"github.com/xkilldash9x/pagedriver/internal/session"
	"github.com/xkilldash9x/pagedriver/internal/wait"
)

// strategies maps every selector Kind to the session query that resolves it.
// Handle locators have no entry: they are already resolved.
var strategies = map[Kind]session.SelectorKind{
	KindCSS:   session.SelectorCSS,
	KindXPath: session.SelectorXPath,
	KindID:    session.SelectorID,
}

func selectorKind(l Locator) (session.SelectorKind, error) {
	if err := l.Validate(); err != nil {
		return 0, err
	}
	kind, ok := strategies[l.kind]
	if !ok {
		return 0, fmt.Errorf("%w: no resolution strategy for %s", ErrInvalidLocator, l.kind)
	}
	return kind, nil
}

// Resolver turns locators into live element handles. Every selector
// resolution goes through the wait engine; nothing is cached between calls.
type Resolver struct {
	sess   session.Session
	engine *wait.Engine
}

// NewResolver binds a resolver to a session and an engine.
func NewResolver(sess session.Session, engine *wait.Engine) *Resolver {
	return &Resolver{sess: sess, engine: engine}
}

func (r *Resolver) Session() session.Session { return r.sess }
func (r *Resolver) Engine() *wait.Engine     { return r.engine }

// One resolves the first match, retrying while it is absent.
func (r *Resolver) One(ctx context.Context, l Locator) (session.ElementHandle, error) {
	if h, ok := l.ElementHandle(); ok {
		return h, nil
	}
	kind, err := selectorKind(l)
	if err != nil {
		return nil, err
	}
	return wait.Poll(ctx, r.engine, func(ctx context.Context) (session.ElementHandle, error) {
		return r.sess.FindOne(ctx, kind, l.selector)
	})
}

// Many resolves every match. An empty result is treated as not found and
// retried, so a successful Many is never empty.
func (r *Resolver) Many(ctx context.Context, l Locator) ([]session.ElementHandle, error) {
	if h, ok := l.ElementHandle(); ok {
		return []session.ElementHandle{h}, nil
	}
	kind, err := selectorKind(l)
	if err != nil {
		return nil, err
	}
	return wait.Poll(ctx, r.engine, func(ctx context.Context) ([]session.ElementHandle, error) {
		handles, err := r.sess.FindMany(ctx, kind, l.selector)
		if err != nil {
			return nil, err
		}
		if len(handles) == 0 {
			return nil, fmt.Errorf("%w: no element matches %s", session.ErrNotFound, l)
		}
		return handles, nil
	})
}

// Count is the size of Many, or 0 when Many times out. It is the only
// resolution that turns absence into a value instead of an error.
func (r *Resolver) Count(ctx context.Context, l Locator) (int, error) {
	handles, err := r.Many(ctx, l)
	if err != nil {
		if errors.Is(err, wait.ErrTimeout) {
			return 0, nil
		}
		return 0, err
	}
	return len(handles), nil
}

// Attribute resolves one element and reads name from it. ok is false when
// the attribute is absent.
func (r *Resolver) Attribute(ctx context.Context, l Locator, name string) (string, bool, error) {
	h, err := r.One(ctx, l)
	if err != nil {
		return "", false, err
	}
	return r.sess.Attribute(ctx, h, name)
}

// Visible returns the members of handles that are visible right now, in order.
func (r *Resolver) Visible(ctx context.Context, handles []session.ElementHandle) ([]session.ElementHandle, error) {
	visible := make([]session.ElementHandle, 0, len(handles))
	for _, h := range handles {
		ok, err := r.sess.IsVisible(ctx, h)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, h)
		}
	}
	return visible, nil
}

// FirstVisible returns the first visible member of handles. found is false
// when none is visible.
func (r *Resolver) FirstVisible(ctx context.Context, handles []session.ElementHandle) (h session.ElementHandle, found bool, err error) {
	for _, candidate := range handles {
		ok, err := r.sess.IsVisible(ctx, candidate)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return candidate, true, nil
		}
	}
	return nil, false, nil
}
