// internal/session/static.go
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrScriptUnsupported is returned by StaticSession.EvaluateInDocument: a
// parsed snapshot has no script engine.
var ErrScriptUnsupported = errors.New("script evaluation is not supported by the static session")

// Event records an interaction performed against a StaticSession document.
type Event struct {
	Type   string // click, move, clear, input, change, submit, select
	Target string // canonical path of the element
	Value  string
}

type staticHandle struct {
	sessionID string
	seq       int
	node      *html.Node
}

func (h *staticHandle) HandleID() string { return fmt.Sprintf("%s/%d", h.sessionID, h.seq) }

// StaticSession is a browser-less Session over a parsed HTML snapshot. Pages are
// loaded over HTTP, from file:// and data: URLs, or directly with LoadHTML.
// Nothing is rendered, so visibility is derived from markup alone.
type StaticSession struct {
	id     string
	client *http.Client
	logger *zap.Logger

	mu       sync.Mutex
	isClosed bool
	location string
	doc      *html.Node
	frame    *html.Node                // root of the active frame document, nil for the top document
	frames   map[*html.Node]*html.Node // iframe element to parsed srcdoc
	handles  map[*html.Node]*staticHandle
	nextSeq  int
	events   []Event
}

var (
	_ Session       = (*StaticSession)(nil)
	_ PathEvaluator = (*StaticSession)(nil)
)

// NewStaticSession returns a session holding an empty document. A nil client uses http.DefaultClient.
func NewStaticSession(client *http.Client, logger *zap.Logger) *StaticSession {
	if client == nil {
		client = http.DefaultClient
	}
	id := uuid.New().String()
	doc, _ := html.Parse(strings.NewReader(""))
	return &StaticSession{
		id:       id,
		client:   client,
		logger:   logger.Named("static").With(zap.String("session_id", id)),
		location: "about:blank",
		doc:      doc,
		frames:   make(map[*html.Node]*html.Node),
		handles:  make(map[*html.Node]*staticHandle),
	}
}

func (s *StaticSession) ID() string { return s.id }

// LoadHTML replaces the document as if location had been navigated to.
func (s *StaticSession) LoadHTML(location, markup string) error {
	doc, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return ErrSessionClosed
	}
	s.replaceDocument(location, doc)
	return nil
}

// Events returns a copy of the interaction log.
func (s *StaticSession) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// replaceDocument must be called with mu held.
func (s *StaticSession) replaceDocument(location string, doc *html.Node) {
	s.location = location
	s.doc = doc
	s.frame = nil
	s.frames = make(map[*html.Node]*html.Node)
	s.handles = make(map[*html.Node]*staticHandle)
}

func (s *StaticSession) lock() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	return nil
}

// handleFor must be called with mu held.
func (s *StaticSession) handleFor(n *html.Node) *staticHandle {
	if h, ok := s.handles[n]; ok {
		return h
	}
	s.nextSeq++
	h := &staticHandle{sessionID: s.id, seq: s.nextSeq, node: n}
	s.handles[n] = h
	return h
}

func (s *StaticSession) nodeOf(h ElementHandle) (*html.Node, error) {
	sh, ok := h.(*staticHandle)
	if !ok || sh.sessionID != s.id || sh.node == nil {
		return nil, ErrForeignHandle
	}
	return sh.node, nil
}

func (s *StaticSession) root() *html.Node {
	if s.frame != nil {
		return s.frame
	}
	return s.doc
}

// query must be called with mu held.
func (s *StaticSession) query(kind SelectorKind, selector string) ([]*html.Node, error) {
	root := s.root()
	switch kind {
	case SelectorCSS:
		sel, err := cascadia.Compile(selector)
		if err != nil {
			return nil, fmt.Errorf("invalid css selector %q: %w", selector, err)
		}
		return sel.MatchAll(root), nil
	case SelectorXPath:
		nodes, err := htmlquery.QueryAll(root, selector)
		if err != nil {
			return nil, fmt.Errorf("invalid xpath %q: %w", selector, err)
		}
		elements := nodes[:0]
		for _, n := range nodes {
			if n.Type == html.ElementNode {
				elements = append(elements, n)
			}
		}
		return elements, nil
	case SelectorID:
		var found []*html.Node
		walk(root, func(n *html.Node) {
			if n.Type == html.ElementNode && htmlquery.SelectAttr(n, "id") == selector {
				found = append(found, n)
			}
		})
		return found, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSelector, kind)
	}
}

func (s *StaticSession) FindMany(ctx context.Context, kind SelectorKind, selector string) ([]ElementHandle, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	nodes, err := s.query(kind, selector)
	if err != nil {
		return nil, err
	}
	handles := make([]ElementHandle, len(nodes))
	for i, n := range nodes {
		handles[i] = s.handleFor(n)
	}
	return handles, nil
}

func (s *StaticSession) FindOne(ctx context.Context, kind SelectorKind, selector string) (ElementHandle, error) {
	handles, err := s.FindMany(ctx, kind, selector)
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, fmt.Errorf("%w: %s=%q", ErrNotFound, kind, selector)
	}
	return handles[0], nil
}

// withNode locks the session, resolves h and runs fn.
func (s *StaticSession) withNode(h ElementHandle, fn func(n *html.Node) error) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	n, err := s.nodeOf(h)
	if err != nil {
		return err
	}
	return fn(n)
}

func (s *StaticSession) IsVisible(ctx context.Context, h ElementHandle) (bool, error) {
	var visible bool
	err := s.withNode(h, func(n *html.Node) error {
		visible = s.connected(n) && markupVisible(n)
		return nil
	})
	return visible, err
}

func (s *StaticSession) IsClickable(ctx context.Context, h ElementHandle) (bool, error) {
	var clickable bool
	err := s.withNode(h, func(n *html.Node) error {
		clickable = s.connected(n) && markupVisible(n) && !hasAttr(n, "disabled") &&
			htmlquery.SelectAttr(n, "aria-disabled") != "true"
		return nil
	})
	return clickable, err
}

func (s *StaticSession) Attribute(ctx context.Context, h ElementHandle, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := s.withNode(h, func(n *html.Node) error {
		for _, a := range n.Attr {
			if strings.EqualFold(a.Key, name) {
				value, ok = a.Val, true
				break
			}
		}
		return nil
	})
	return value, ok, err
}

func (s *StaticSession) Clear(ctx context.Context, h ElementHandle) error {
	return s.withNode(h, func(n *html.Node) error {
		setValue(n, "")
		s.record("clear", n, "")
		return nil
	})
}

// SendInput appends printable text to the control's value. A tab blurs the
// control (emitting a change event) and a newline submits. Typed text is
// recorded as one input event ahead of the key that follows it.
func (s *StaticSession) SendInput(ctx context.Context, h ElementHandle, text string) error {
	return s.withNode(h, func(n *html.Node) error {
		value := controlValue(n)
		typed := false
		flush := func() {
			if typed {
				s.record("input", n, value)
				typed = false
			}
		}
		for _, r := range text {
			switch r {
			case '\t':
				flush()
				s.record("change", n, value)
			case '\n', '\r':
				flush()
				s.record("submit", n, value)
			default:
				value += string(r)
				setValue(n, value)
				typed = true
			}
		}
		flush()
		return nil
	})
}

func (s *StaticSession) Click(ctx context.Context, h ElementHandle) error {
	return s.withNode(h, func(n *html.Node) error {
		s.record("click", n, "")
		return nil
	})
}

func (s *StaticSession) MoveTo(ctx context.Context, h ElementHandle) error {
	return s.withNode(h, func(n *html.Node) error {
		s.record("move", n, "")
		return nil
	})
}

func (s *StaticSession) SelectOptionByText(ctx context.Context, h ElementHandle, text string) error {
	return s.withNode(h, func(n *html.Node) error {
		want := strings.TrimSpace(text)
		for i, opt := range options(n) {
			if optionText(opt) == want {
				return s.selectIndex(n, i)
			}
		}
		return fmt.Errorf("%w: text %q", ErrOptionNotFound, text)
	})
}

func (s *StaticSession) SelectOptionByIndex(ctx context.Context, h ElementHandle, index int) error {
	return s.withNode(h, func(n *html.Node) error {
		return s.selectIndex(n, index)
	})
}

func (s *StaticSession) selectIndex(n *html.Node, index int) error {
	opts := options(n)
	if index < 0 || index >= len(opts) {
		return fmt.Errorf("%w: index %d", ErrOptionNotFound, index)
	}
	for i, opt := range opts {
		removeAttr(opt, "selected")
		if i == index {
			opt.Attr = append(opt.Attr, html.Attribute{Key: "selected", Val: "selected"})
		}
	}
	s.record("select", n, optionText(opts[index]))
	return nil
}

func (s *StaticSession) ListOptions(ctx context.Context, h ElementHandle) ([]string, error) {
	var labels []string
	err := s.withNode(h, func(n *html.Node) error {
		for _, opt := range options(n) {
			labels = append(labels, optionText(opt))
		}
		return nil
	})
	return labels, err
}

// Navigate loads http(s), file and data URLs; about:blank yields an empty document.
func (s *StaticSession) Navigate(ctx context.Context, rawURL string) error {
	if err := s.lock(); err != nil {
		return err
	}
	s.mu.Unlock()

	body, err := s.fetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", rawURL, err)
	}
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceDocument(rawURL, doc)
	s.logger.Debug("Document loaded.", zap.String("url", rawURL), zap.Int("bytes", len(body)))
	return nil
}

func (s *StaticSession) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "about:blank" {
		return nil, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "data":
		// data:[<mediatype>],<payload>; base64 payloads are not needed for HTML fixtures.
		_, payload, ok := strings.Cut(u.Opaque, ",")
		if !ok {
			return nil, fmt.Errorf("malformed data URL")
		}
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, err
		}
		return []byte(decoded), nil
	case "file":
		return os.ReadFile(u.Path)
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}
		return io.ReadAll(resp.Body)
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

// Quit discards the document. Calling it again is a no-op.
func (s *StaticSession) Quit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isClosed = true
	return nil
}

// SwitchToFrame enters an iframe whose content is inlined through srcdoc.
func (s *StaticSession) SwitchToFrame(ctx context.Context, h ElementHandle) error {
	return s.withNode(h, func(n *html.Node) error {
		if n.DataAtom != atom.Iframe {
			return fmt.Errorf("%w: <%s>", ErrNoFrame, n.Data)
		}
		if doc, ok := s.frames[n]; ok {
			s.frame = doc
			return nil
		}
		srcdoc := htmlquery.SelectAttr(n, "srcdoc")
		if srcdoc == "" {
			return fmt.Errorf("%w: iframe has no inline document", ErrNoFrame)
		}
		doc, err := html.Parse(strings.NewReader(srcdoc))
		if err != nil {
			return fmt.Errorf("failed to parse frame document: %w", err)
		}
		s.frames[n] = doc
		s.frame = doc
		return nil
	})
}

func (s *StaticSession) SwitchToDefaultContent(ctx context.Context) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.frame = nil
	return nil
}

func (s *StaticSession) CurrentLocation(ctx context.Context) (string, error) {
	if err := s.lock(); err != nil {
		return "", err
	}
	defer s.mu.Unlock()
	return s.location, nil
}

func (s *StaticSession) EvaluateInDocument(ctx context.Context, script string, h ElementHandle) (json.RawMessage, error) {
	return nil, ErrScriptUnsupported
}

// CanonicalPath computes the element's structural path from the parsed tree.
func (s *StaticSession) CanonicalPath(ctx context.Context, h ElementHandle) (string, error) {
	var path string
	err := s.withNode(h, func(n *html.Node) error {
		path = canonicalPath(n)
		return nil
	})
	return path, err
}

// record must be called with mu held.
func (s *StaticSession) record(kind string, n *html.Node, value string) {
	s.events = append(s.events, Event{Type: kind, Target: canonicalPath(n), Value: value})
}

// connected reports whether n belongs to the current document or one of its frames.
func (s *StaticSession) connected(n *html.Node) bool {
	top := n
	for top.Parent != nil {
		top = top.Parent
	}
	if top == s.doc {
		return true
	}
	for _, doc := range s.frames {
		if top == doc {
			return true
		}
	}
	return false
}

// -- DOM helpers --

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

// markupVisible applies the visibility rules that can be decided without layout.
func markupVisible(n *html.Node) bool {
	if n.DataAtom == atom.Input && strings.EqualFold(htmlquery.SelectAttr(n, "type"), "hidden") {
		return false
	}
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		switch cur.DataAtom {
		case atom.Head, atom.Script, atom.Style, atom.Template, atom.Noscript:
			return false
		}
		if hasAttr(cur, "hidden") {
			return false
		}
		style := strings.ToLower(strings.ReplaceAll(htmlquery.SelectAttr(cur, "style"), " ", ""))
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

// controlValue reads the current value; textareas keep theirs as text content.
func controlValue(n *html.Node) string {
	if n.DataAtom == atom.Textarea {
		return htmlquery.InnerText(n)
	}
	return htmlquery.SelectAttr(n, "value")
}

func setValue(n *html.Node, value string) {
	if n.DataAtom == atom.Textarea {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		if value != "" {
			n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
		}
		return
	}
	removeAttr(n, "value")
	n.Attr = append(n.Attr, html.Attribute{Key: "value", Val: value})
}

func options(n *html.Node) []*html.Node {
	var opts []*html.Node
	walk(n, func(c *html.Node) {
		if c.Type == html.ElementNode && c.DataAtom == atom.Option {
			opts = append(opts, c)
		}
	})
	return opts
}

// optionText mirrors HTMLOptionElement.text: whitespace collapsed and trimmed.
func optionText(opt *html.Node) string {
	return strings.Join(strings.Fields(htmlquery.InnerText(opt)), " ")
}

// canonicalPath is the in-process counterpart of the in-page path script:
// an id short-circuits, body is the anchor, and every other step is indexed
// among same-tag element siblings. Elements outside body are anchored at the
// document root.
func canonicalPath(n *html.Node) string {
	tag := strings.ToLower(n.Data)
	if id := htmlquery.SelectAttr(n, "id"); id != "" {
		return fmt.Sprintf(`//%s[@id="%s"]`, tag, id)
	}
	if n.DataAtom == atom.Body {
		return tag
	}
	parent := n.Parent
	if parent == nil || parent.Type != html.ElementNode {
		return "/" + tag
	}
	index := 1
	for sib := parent.FirstChild; sib != nil && sib != n; sib = sib.NextSibling {
		if sib.Type == html.ElementNode && strings.EqualFold(sib.Data, n.Data) {
			index++
		}
	}
	return fmt.Sprintf("%s/%s[%d]", canonicalPath(parent), tag, index)
}
