// internal/session/cdp.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cdpHandle wraps a node resolved through the DevTools protocol.
type cdpHandle struct {
	sessionID string
	node      *cdp.Node
}

func (h *cdpHandle) HandleID() string {
	return fmt.Sprintf("%s/%d", h.sessionID, h.node.BackendNodeID)
}

// CDPSession drives a Chrome tab through chromedp.
type CDPSession struct {
	id         string
	ctx        context.Context // the tab context; carries the CDP target
	cancel     context.CancelFunc
	logger     *zap.Logger
	navTimeout time.Duration

	// runActionsFunc executes chromedp actions. Replaced in tests.
	runActionsFunc func(ctx context.Context, actions ...chromedp.Action) error

	mu       sync.Mutex
	isClosed bool
	frame    *cdp.Node // nil means the top-level document
}

var (
	_ Session       = (*CDPSession)(nil)
	_ ElementHandle = (*cdpHandle)(nil)
)

// newCDPSession wraps an already-created chromedp tab context.
func newCDPSession(ctx context.Context, cancel context.CancelFunc, navTimeout time.Duration, logger *zap.Logger) *CDPSession {
	id := uuid.New().String()
	s := &CDPSession{
		id:         id,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger.Named("cdp").With(zap.String("session_id", id)),
		navTimeout: navTimeout,
	}
	s.runActionsFunc = s.runActions
	return s
}

// ID returns the unique identifier for the session.
func (s *CDPSession) ID() string { return s.id }

// runActions executes actions under both the tab lifetime and the caller's context.
func (s *CDPSession) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (s *CDPSession) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.isClosed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}
	return s.runActionsFunc(ctx, actions...)
}

func (s *CDPSession) node(h ElementHandle) (*cdp.Node, error) {
	ch, ok := h.(*cdpHandle)
	if !ok || ch.sessionID != s.id || ch.node == nil {
		return nil, ErrForeignHandle
	}
	return ch.node, nil
}

// callOn evaluates fn (element-first function expression) against the handle's node.
func (s *CDPSession) callOn(ctx context.Context, h ElementHandle, fn string, res interface{}, args ...interface{}) error {
	node, err := s.node(h)
	if err != nil {
		return err
	}
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(node.BackendNodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node: %w", err)
		}
		// Fails harmlessly once the page has navigated away.
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()
		return chromedp.CallFunctionOn(bindThis(fn), res, onObject(obj.ObjectID), args...).Do(ctx)
	}))
}

func onObject(id runtime.RemoteObjectID) chromedp.CallOption {
	return func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
		return p.WithObjectID(id)
	}
}

// byXPathIn evaluates xpath against the document the query starts from: the
// top-level document, or the content document of the current frame.
// chromedp.BySearch cannot be used here since DOM.performSearch ignores
// FromNode and matches across every document in the tab.
func byXPathIn(xpath string) chromedp.QueryOption {
	return chromedp.ByFunc(func(ctx context.Context, from *cdp.Node) ([]cdp.NodeID, error) {
		return xpathNodeIDs(ctx, from, xpath)
	})
}

func xpathNodeIDs(ctx context.Context, from *cdp.Node, xpath string) ([]cdp.NodeID, error) {
	doc, err := dom.ResolveNode().WithNodeID(from.NodeID).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve document: %w", err)
	}
	defer func() { _ = runtime.ReleaseObject(doc.ObjectID).Do(ctx) }()

	var list *runtime.RemoteObject
	if err := chromedp.CallFunctionOn(xpathSnapshotJS, &list, onObject(doc.ObjectID), xpath).Do(ctx); err != nil {
		return nil, err
	}
	if list == nil || list.ObjectID == "" {
		return []cdp.NodeID{}, nil
	}
	defer func() { _ = runtime.ReleaseObject(list.ObjectID).Do(ctx) }()

	props, _, _, exp, err := runtime.GetProperties(list.ObjectID).WithOwnProperties(true).Do(ctx)
	if err != nil {
		return nil, err
	}
	if exp != nil {
		return nil, exp
	}
	return requestNodes(ctx, props)
}

// requestNodes pushes the array elements in props to the DOM agent, in index order.
func requestNodes(ctx context.Context, props []*runtime.PropertyDescriptor) ([]cdp.NodeID, error) {
	objects := make(map[int]runtime.RemoteObjectID, len(props))
	for _, p := range props {
		i, err := strconv.Atoi(p.Name)
		if err != nil || p.Value == nil || p.Value.Subtype != runtime.SubtypeNode {
			continue // "length", "__proto__"
		}
		objects[i] = p.Value.ObjectID
	}
	ids := make([]cdp.NodeID, 0, len(objects))
	for i := 0; i < len(objects); i++ {
		obj, ok := objects[i]
		if !ok {
			break
		}
		id, err := dom.RequestNode(obj).Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("request node %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// cdpQuery translates a selector into chromedp query terms.
func cdpQuery(kind SelectorKind, selector string) (string, chromedp.QueryOption, error) {
	switch kind {
	case SelectorCSS:
		return selector, chromedp.ByQueryAll, nil
	case SelectorXPath:
		return selector, byXPathIn(selector), nil
	case SelectorID:
		// An attribute selector matches ids that are not valid CSS identifiers.
		return "[id=" + jsonEncode(selector) + "]", chromedp.ByQueryAll, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedSelector, kind)
	}
}

// FindMany queries without waiting; chromedp's own polling is disabled with AtLeast(0).
func (s *CDPSession) FindMany(ctx context.Context, kind SelectorKind, selector string) ([]ElementHandle, error) {
	sel, by, err := cdpQuery(kind, selector)
	if err != nil {
		return nil, err
	}
	opts := []chromedp.QueryOption{by, chromedp.AtLeast(0)}
	// Every kind, XPath included, is evaluated from this node's content document.
	s.mu.Lock()
	if s.frame != nil {
		opts = append(opts, chromedp.FromNode(s.frame))
	}
	s.mu.Unlock()

	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(sel, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("cdp query %s=%q failed: %w", kind, selector, err)
	}

	handles := make([]ElementHandle, 0, len(nodes))
	for _, n := range nodes {
		if n.NodeType != cdp.NodeTypeElement {
			continue
		}
		handles = append(handles, &cdpHandle{sessionID: s.id, node: n})
	}
	return handles, nil
}

func (s *CDPSession) FindOne(ctx context.Context, kind SelectorKind, selector string) (ElementHandle, error) {
	handles, err := s.FindMany(ctx, kind, selector)
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, fmt.Errorf("%w: %s=%q", ErrNotFound, kind, selector)
	}
	return handles[0], nil
}

func (s *CDPSession) IsVisible(ctx context.Context, h ElementHandle) (bool, error) {
	var visible bool
	err := s.callOn(ctx, h, isVisibleJS, &visible)
	return visible, err
}

// IsClickable scrolls the node into view first so that off-screen elements can qualify.
func (s *CDPSession) IsClickable(ctx context.Context, h ElementHandle) (bool, error) {
	node, err := s.node(h)
	if err != nil {
		return false, err
	}
	if err := s.run(ctx, dom.ScrollIntoViewIfNeeded().WithNodeID(node.NodeID)); err != nil {
		s.logger.Debug("Scroll into view failed before clickability check.", zap.Error(err))
	}
	var clickable bool
	err = s.callOn(ctx, h, isClickableJS, &clickable)
	return clickable, err
}

func (s *CDPSession) Attribute(ctx context.Context, h ElementHandle, name string) (string, bool, error) {
	var value *string
	if err := s.callOn(ctx, h, attributeJS, &value, name); err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

func (s *CDPSession) Clear(ctx context.Context, h ElementHandle) error {
	var ok bool
	return s.callOn(ctx, h, clearJS, &ok)
}

// SendInput focuses the node and types text as key events; "\t" becomes a Tab press.
func (s *CDPSession) SendInput(ctx context.Context, h ElementHandle, text string) error {
	node, err := s.node(h)
	if err != nil {
		return err
	}
	return s.run(ctx, chromedp.KeyEventNode(node, text))
}

func (s *CDPSession) Click(ctx context.Context, h ElementHandle) error {
	node, err := s.node(h)
	if err != nil {
		return err
	}
	return s.run(ctx, chromedp.MouseClickNode(node))
}

// MoveTo dispatches a real mouseMoved event at the centre of the node's content box.
func (s *CDPSession) MoveTo(ctx context.Context, h ElementHandle) error {
	node, err := s.node(h)
	if err != nil {
		return err
	}
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(node.NodeID).Do(ctx); err != nil {
			return fmt.Errorf("scroll into view: %w", err)
		}
		box, err := dom.GetBoxModel().WithNodeID(node.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("get box model: %w", err)
		}
		x, y, err := quadCenter(box.Content)
		if err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

// quadCenter averages the four vertices of a DOM quad.
func quadCenter(q dom.Quad) (float64, float64, error) {
	if len(q) != 8 {
		return 0, 0, fmt.Errorf("unexpected quad length %d", len(q))
	}
	return (q[0] + q[2] + q[4] + q[6]) / 4, (q[1] + q[3] + q[5] + q[7]) / 4, nil
}

func (s *CDPSession) SelectOptionByText(ctx context.Context, h ElementHandle, text string) error {
	var ok bool
	if err := s.callOn(ctx, h, selectTextJS, &ok, text); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: text %q", ErrOptionNotFound, text)
	}
	return nil
}

func (s *CDPSession) SelectOptionByIndex(ctx context.Context, h ElementHandle, index int) error {
	var ok bool
	if err := s.callOn(ctx, h, selectIndexJS, &ok, index); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: index %d", ErrOptionNotFound, index)
	}
	return nil
}

func (s *CDPSession) ListOptions(ctx context.Context, h ElementHandle) ([]string, error) {
	var options []string
	err := s.callOn(ctx, h, listOptionsJS, &options)
	return options, err
}

// Navigate loads url in the top-level document and resets any frame focus.
func (s *CDPSession) Navigate(ctx context.Context, url string) error {
	navCtx := ctx
	if s.navTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, s.navTimeout)
		defer cancel()
	}
	if err := s.run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	s.mu.Lock()
	s.frame = nil
	s.mu.Unlock()
	return nil
}

// Quit closes the tab and its browser. Calling it again is a no-op.
func (s *CDPSession) Quit(ctx context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")
	var err error
	if s.ctx != nil && chromedp.FromContext(s.ctx) != nil {
		// chromedp.Cancel needs the live tab context; bound it by the caller's deadline.
		cancelCtx, cancel := CombineContext(s.ctx, ctx)
		err = chromedp.Cancel(cancelCtx)
		cancel()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

// SwitchToFrame scopes subsequent queries to the document of an iframe element.
func (s *CDPSession) SwitchToFrame(ctx context.Context, h ElementHandle) error {
	node, err := s.node(h)
	if err != nil {
		return err
	}
	if node.NodeName != "IFRAME" && node.NodeName != "FRAME" {
		return fmt.Errorf("%w: <%s>", ErrNoFrame, node.LocalName)
	}
	s.mu.Lock()
	s.frame = node
	s.mu.Unlock()
	return nil
}

func (s *CDPSession) SwitchToDefaultContent(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return ErrSessionClosed
	}
	s.frame = nil
	return nil
}

func (s *CDPSession) CurrentLocation(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (s *CDPSession) EvaluateInDocument(ctx context.Context, script string, h ElementHandle) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := s.callOn(ctx, h, script, &raw); err != nil {
		return nil, fmt.Errorf("script evaluation failed: %w", err)
	}
	return raw, nil
}
