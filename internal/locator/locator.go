// internal/locator/locator.go
package locator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xkilldash9x/pagedriver/internal/session"
)

// Kind tags the variant held by a Locator.
type Kind int

const (
	KindCSS Kind = iota + 1
	KindXPath
	KindID
	KindHandle
)

func (k Kind) String() string {
	switch k {
	case KindCSS:
		return "css"
	case KindXPath:
		return "xpath"
	case KindID:
		return "id"
	case KindHandle:
		return "handle"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	// ErrEmptySelector rejects selector locators without a selector.
	ErrEmptySelector = errors.New("locator selector is empty")
	// ErrInvalidLocator covers the zero Locator and handle locators without a handle.
	ErrInvalidLocator = errors.New("invalid locator")
)

// Locator is a declarative reference to one or more elements: a CSS selector,
// an XPath expression, an element id, or an already-resolved handle.
type Locator struct {
	kind     Kind
	selector string
	handle   session.ElementHandle
}

func CSS(selector string) Locator            { return Locator{kind: KindCSS, selector: selector} }
func XPath(expr string) Locator              { return Locator{kind: KindXPath, selector: expr} }
func ID(id string) Locator                   { return Locator{kind: KindID, selector: id} }
func Handle(h session.ElementHandle) Locator { return Locator{kind: KindHandle, handle: h} }

// Parse reads the textual locator forms used in scenario files and on the
// command line: "css=...", "xpath=...", "id=...", a bare expression starting
// with "/" or "(" (XPath), or anything else as a CSS selector.
func Parse(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	var loc Locator
	switch {
	case strings.HasPrefix(s, "css="):
		loc = CSS(strings.TrimSpace(strings.TrimPrefix(s, "css=")))
	case strings.HasPrefix(s, "xpath="):
		loc = XPath(strings.TrimSpace(strings.TrimPrefix(s, "xpath=")))
	case strings.HasPrefix(s, "id="):
		loc = ID(strings.TrimSpace(strings.TrimPrefix(s, "id=")))
	case strings.HasPrefix(s, "/"), strings.HasPrefix(s, "("):
		loc = XPath(s)
	default:
		loc = CSS(s)
	}
	if err := loc.Validate(); err != nil {
		return Locator{}, fmt.Errorf("parse locator %q: %w", s, err)
	}
	return loc, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Locator {
	loc, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return loc
}

func (l Locator) Kind() Kind       { return l.kind }
func (l Locator) Selector() string { return l.selector }
func (l Locator) IsHandle() bool   { return l.kind == KindHandle }
func (l Locator) IsZero() bool     { return l.kind == 0 }

// ElementHandle returns the carried handle of a handle locator.
func (l Locator) ElementHandle() (session.ElementHandle, bool) {
	return l.handle, l.kind == KindHandle && l.handle != nil
}

// Validate enforces the non-empty selector invariant.
func (l Locator) Validate() error {
	switch l.kind {
	case KindCSS, KindXPath, KindID:
		if strings.TrimSpace(l.selector) == "" {
			return fmt.Errorf("%w (%s)", ErrEmptySelector, l.kind)
		}
		return nil
	case KindHandle:
		if l.handle == nil {
			return fmt.Errorf("%w: handle locator without a handle", ErrInvalidLocator)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLocator, l.kind)
	}
}

// String renders the locator the way command descriptions embed it.
func (l Locator) String() string {
	switch l.kind {
	case KindHandle:
		if l.handle == nil {
			return "By.handle: <nil>"
		}
		return "By.handle: " + l.handle.HandleID()
	case KindCSS, KindXPath, KindID:
		return "By." + l.kind.String() + ": " + l.selector
	default:
		return "By.<invalid>"
	}
}
