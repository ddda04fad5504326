// internal/session/session.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// SelectorKind identifies the query language of a selector string.
type SelectorKind int

const (
	SelectorCSS SelectorKind = iota
	SelectorXPath
	SelectorID
)

func (k SelectorKind) String() string {
	switch k {
	case SelectorCSS:
		return "css"
	case SelectorXPath:
		return "xpath"
	case SelectorID:
		return "id"
	default:
		return fmt.Sprintf("SelectorKind(%d)", int(k))
	}
}

var (
	// ErrNotFound reports that a query matched nothing in the current document.
	// It is the only error the wait engine treats as transient.
	ErrNotFound = errors.New("element not found")
	// ErrSessionClosed is returned by every operation issued after Quit.
	ErrSessionClosed = errors.New("session is closed")
	// ErrForeignHandle is returned when a handle produced by a different backend is passed in.
	ErrForeignHandle = errors.New("element handle does not belong to this session")
	// ErrUnsupportedSelector is returned for a SelectorKind the backend cannot evaluate.
	ErrUnsupportedSelector = errors.New("unsupported selector kind")
	// ErrNoFrame is returned when SwitchToFrame targets an element without a browsable document.
	ErrNoFrame = errors.New("element is not a frame")
	// ErrOptionNotFound is returned when a select control has no option at the requested index or with the requested text.
	ErrOptionNotFound = errors.New("option not found")
)

// ElementHandle is an opaque reference to one node of the live document.
// Handles are owned by the Session that produced them.
type ElementHandle interface {
	HandleID() string
}

// Session is one live, automation-controlled document (a browser tab).
// Implementations are not required to be safe for concurrent use.
type Session interface {
	ID() string

	// FindOne returns the first match, or ErrNotFound.
	FindOne(ctx context.Context, kind SelectorKind, selector string) (ElementHandle, error)
	// FindMany returns all matches in document order; no match is an empty slice, not an error.
	FindMany(ctx context.Context, kind SelectorKind, selector string) ([]ElementHandle, error)

	IsVisible(ctx context.Context, h ElementHandle) (bool, error)
	IsClickable(ctx context.Context, h ElementHandle) (bool, error)
	// Attribute returns the attribute value and whether the attribute is present.
	Attribute(ctx context.Context, h ElementHandle, name string) (string, bool, error)

	Clear(ctx context.Context, h ElementHandle) error
	SendInput(ctx context.Context, h ElementHandle, text string) error
	Click(ctx context.Context, h ElementHandle) error
	MoveTo(ctx context.Context, h ElementHandle) error

	SelectOptionByText(ctx context.Context, h ElementHandle, text string) error
	SelectOptionByIndex(ctx context.Context, h ElementHandle, index int) error
	ListOptions(ctx context.Context, h ElementHandle) ([]string, error)

	Navigate(ctx context.Context, url string) error
	Quit(ctx context.Context) error
	SwitchToFrame(ctx context.Context, h ElementHandle) error
	SwitchToDefaultContent(ctx context.Context) error
	CurrentLocation(ctx context.Context) (string, error)

	// EvaluateInDocument runs script, a JavaScript function expression, in the
	// document with the element as its first argument and returns the JSON result.
	EvaluateInDocument(ctx context.Context, script string, h ElementHandle) (json.RawMessage, error)
}

// PathEvaluator is implemented by sessions that hold the document in-process
// and can compute a canonical path without evaluating script.
type PathEvaluator interface {
	CanonicalPath(ctx context.Context, h ElementHandle) (string, error)
}

// isVisibleJS is shared by the browser backends.
const isVisibleJS = `function(el) {
	if (!el || !el.isConnected) return false;
	const rect = el.getBoundingClientRect();
	const style = window.getComputedStyle(el);
	return rect.width > 0 && rect.height > 0 &&
		style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0';
}`

// jsonEncode marshals v for safe injection into a script.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
