// internal/session/webdriver_test.go
package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tebeka/selenium"
	"go.uber.org/zap/zaptest"
)

// fakeDriver implements the parts of selenium.WebDriver the session uses.
// Calling anything else panics on the nil embedded interface.
type fakeDriver struct {
	selenium.WebDriver

	elements map[string][]selenium.WebElement // keyed by by+"|"+value
	scripts  []string
	result   interface{}
	url      string
	frame    interface{}
	quits    int
}

func (d *fakeDriver) FindElements(by, value string) ([]selenium.WebElement, error) {
	return d.elements[by+"|"+value], nil
}

func (d *fakeDriver) FindElement(by, value string) (selenium.WebElement, error) {
	elems := d.elements[by+"|"+value]
	if len(elems) == 0 {
		return nil, &selenium.Error{Err: "no such element", Message: "Unable to locate element"}
	}
	return elems[0], nil
}

func (d *fakeDriver) ExecuteScript(script string, args []interface{}) (interface{}, error) {
	d.scripts = append(d.scripts, script)
	return d.result, nil
}

func (d *fakeDriver) Get(url string) error {
	d.url = url
	return nil
}

func (d *fakeDriver) CurrentURL() (string, error) { return d.url, nil }

func (d *fakeDriver) SwitchFrame(frame interface{}) error {
	d.frame = frame
	return nil
}

func (d *fakeDriver) Quit() error {
	d.quits++
	return nil
}

type fakeElement struct {
	selenium.WebElement

	displayed, enabled bool
	keys               []string
	clicks             int
}

func (e *fakeElement) IsDisplayed() (bool, error) { return e.displayed, nil }
func (e *fakeElement) IsEnabled() (bool, error)   { return e.enabled, nil }
func (e *fakeElement) Clear() error               { return nil }
func (e *fakeElement) Click() error               { e.clicks++; return nil }
func (e *fakeElement) SendKeys(keys string) error {
	e.keys = append(e.keys, keys)
	return nil
}

func newFakeWebDriverSession(t *testing.T) (*WebDriverSession, *fakeDriver, *fakeElement) {
	t.Helper()
	elem := &fakeElement{displayed: true, enabled: true}
	driver := &fakeDriver{elements: map[string][]selenium.WebElement{
		selenium.ByCSSSelector + "|#go": {elem},
		selenium.ByXPATH + "|//a":       {elem, &fakeElement{}},
		selenium.ByID + "|go":           {elem},
	}}
	return newWebDriverSession(driver, zaptest.NewLogger(t)), driver, elem
}

func TestIsNoSuchElement(t *testing.T) {
	assert.True(t, isNoSuchElement(&selenium.Error{Err: "no such element"}))
	assert.False(t, isNoSuchElement(&selenium.Error{Err: "stale element reference"}))
	assert.True(t, isNoSuchElement(errors.New("no such element: Unable to locate element")))
	assert.False(t, isNoSuchElement(nil))
}

func TestWebDriverSession_Find(t *testing.T) {
	s, _, _ := newFakeWebDriverSession(t)
	ctx := context.Background()

	h, err := s.FindOne(ctx, SelectorCSS, "#go")
	require.NoError(t, err)
	assert.Contains(t, h.HandleID(), s.ID())

	_, err = s.FindOne(ctx, SelectorID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	many, err := s.FindMany(ctx, SelectorXPath, "//a")
	require.NoError(t, err)
	assert.Len(t, many, 2)

	byID, err := s.FindOne(ctx, SelectorID, "go")
	require.NoError(t, err)
	assert.Equal(t, h.HandleID(), byID.HandleID(), "the same remote element yields the same handle id")

	_, err = s.FindMany(ctx, SelectorKind(7), "x")
	assert.ErrorIs(t, err, ErrUnsupportedSelector)
}

func TestWebDriverSession_Interaction(t *testing.T) {
	s, driver, elem := newFakeWebDriverSession(t)
	ctx := context.Background()

	h, err := s.FindOne(ctx, SelectorCSS, "#go")
	require.NoError(t, err)

	clickable, err := s.IsClickable(ctx, h)
	require.NoError(t, err)
	assert.True(t, clickable)

	elem.enabled = false
	clickable, err = s.IsClickable(ctx, h)
	require.NoError(t, err)
	assert.False(t, clickable)

	require.NoError(t, s.SendInput(ctx, h, "abc\t"))
	assert.Equal(t, []string{"abc" + selenium.TabKey}, elem.keys)

	require.NoError(t, s.Click(ctx, h))
	assert.Equal(t, 1, elem.clicks)

	require.NoError(t, s.MoveTo(ctx, h))
	require.NotEmpty(t, driver.scripts)
	assert.Contains(t, driver.scripts[len(driver.scripts)-1], "apply(null, arguments)")

	t.Run("attribute", func(t *testing.T) {
		driver.result = "submit"
		v, ok, err := s.Attribute(ctx, h, "type")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "submit", v)

		driver.result = nil
		_, ok, err = s.Attribute(ctx, h, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("options", func(t *testing.T) {
		driver.result = []interface{}{"Norway", "Sweden"}
		opts, err := s.ListOptions(ctx, h)
		require.NoError(t, err)
		assert.Equal(t, []string{"Norway", "Sweden"}, opts)

		driver.result = false
		assert.ErrorIs(t, s.SelectOptionByText(ctx, h, "Finland"), ErrOptionNotFound)
		assert.ErrorIs(t, s.SelectOptionByIndex(ctx, h, 9), ErrOptionNotFound)

		driver.result = true
		assert.NoError(t, s.SelectOptionByIndex(ctx, h, 1))
	})

	t.Run("evaluate", func(t *testing.T) {
		driver.result = map[string]interface{}{"path": "body/div[1]"}
		raw, err := s.EvaluateInDocument(ctx, "function(el) { return {path: 'x'}; }", h)
		require.NoError(t, err)
		assert.JSONEq(t, `{"path":"body/div[1]"}`, string(raw))
	})
}

func TestWebDriverSession_Lifecycle(t *testing.T) {
	s, driver, _ := newFakeWebDriverSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, "https://example.com/form"))
	loc, err := s.CurrentLocation(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/form", loc)

	h, err := s.FindOne(ctx, SelectorCSS, "#go")
	require.NoError(t, err)
	require.NoError(t, s.SwitchToFrame(ctx, h))
	assert.NotNil(t, driver.frame)
	require.NoError(t, s.SwitchToDefaultContent(ctx))
	assert.Nil(t, driver.frame)

	other, _, _ := newFakeWebDriverSession(t)
	foreign, err := other.FindOne(ctx, SelectorCSS, "#go")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Click(ctx, foreign), ErrForeignHandle)

	require.NoError(t, s.Quit(ctx))
	require.NoError(t, s.Quit(ctx))
	assert.Equal(t, 1, driver.quits)

	_, err = s.FindOne(ctx, SelectorCSS, "#go")
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.Click(ctx, h), ErrSessionClosed)
}
