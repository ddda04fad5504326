// internal/session/webdriver.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagedriver/internal/config"
)

// wdHandle wraps an element reference owned by a remote WebDriver.
type wdHandle struct {
	sessionID string
	elem      selenium.WebElement
}

func (h *wdHandle) HandleID() string { return fmt.Sprintf("%s/%p", h.sessionID, h.elem) }

// WebDriverSession drives a browser through a W3C WebDriver endpoint
// (chromedriver, geckodriver, Selenium Grid).
type WebDriverSession struct {
	id     string
	driver selenium.WebDriver
	logger *zap.Logger

	mu       sync.Mutex
	isClosed bool
}

var _ Session = (*WebDriverSession)(nil)

// NewWebDriverSession opens a remote session at cfg.WebDriverURL.
func NewWebDriverSession(cfg config.BrowserConfig, logger *zap.Logger) (*WebDriverSession, error) {
	caps := selenium.Capabilities{"browserName": cfg.BrowserName}
	if cfg.BrowserName == "" || cfg.BrowserName == "chrome" {
		caps["browserName"] = "chrome"
		args := append([]string{}, cfg.Args...)
		if cfg.Headless {
			args = append(args, "--headless=new")
		}
		if cfg.IgnoreTLSErrors {
			args = append(args, "--ignore-certificate-errors")
		}
		if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
			args = append(args, fmt.Sprintf("--window-size=%d,%d", w, h))
		}
		if cfg.UserAgent != "" {
			args = append(args, "--user-agent="+cfg.UserAgent)
		}
		caps.AddChrome(chrome.Capabilities{Args: args, W3C: true})
	}

	driver, err := selenium.NewRemote(caps, cfg.WebDriverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open webdriver session at %s: %w", cfg.WebDriverURL, err)
	}
	s := newWebDriverSession(driver, logger)
	s.logger.Info("WebDriver session started.", zap.String("endpoint", cfg.WebDriverURL))
	return s, nil
}

func newWebDriverSession(driver selenium.WebDriver, logger *zap.Logger) *WebDriverSession {
	id := uuid.New().String()
	return &WebDriverSession{
		id:     id,
		driver: driver,
		logger: logger.Named("webdriver").With(zap.String("session_id", id)),
	}
}

func (s *WebDriverSession) ID() string { return s.id }

func (s *WebDriverSession) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return ErrSessionClosed
	}
	return nil
}

func (s *WebDriverSession) element(h ElementHandle) (selenium.WebElement, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	wh, ok := h.(*wdHandle)
	if !ok || wh.sessionID != s.id || wh.elem == nil {
		return nil, ErrForeignHandle
	}
	return wh.elem, nil
}

func wdBy(kind SelectorKind) (string, error) {
	switch kind {
	case SelectorCSS:
		return selenium.ByCSSSelector, nil
	case SelectorXPath:
		return selenium.ByXPATH, nil
	case SelectorID:
		return selenium.ByID, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSelector, kind)
	}
}

// isNoSuchElement recognizes the W3C "no such element" error code.
func isNoSuchElement(err error) bool {
	var se *selenium.Error
	if errors.As(err, &se) {
		return se.Err == "no such element"
	}
	return err != nil && strings.Contains(err.Error(), "no such element")
}

func (s *WebDriverSession) FindMany(ctx context.Context, kind SelectorKind, selector string) ([]ElementHandle, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	by, err := wdBy(kind)
	if err != nil {
		return nil, err
	}
	elems, err := s.driver.FindElements(by, selector)
	if err != nil {
		if isNoSuchElement(err) {
			return []ElementHandle{}, nil
		}
		return nil, fmt.Errorf("webdriver query %s=%q failed: %w", kind, selector, err)
	}
	handles := make([]ElementHandle, len(elems))
	for i, e := range elems {
		handles[i] = &wdHandle{sessionID: s.id, elem: e}
	}
	return handles, nil
}

func (s *WebDriverSession) FindOne(ctx context.Context, kind SelectorKind, selector string) (ElementHandle, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	by, err := wdBy(kind)
	if err != nil {
		return nil, err
	}
	elem, err := s.driver.FindElement(by, selector)
	if err != nil {
		if isNoSuchElement(err) {
			return nil, fmt.Errorf("%w: %s=%q", ErrNotFound, kind, selector)
		}
		return nil, fmt.Errorf("webdriver query %s=%q failed: %w", kind, selector, err)
	}
	return &wdHandle{sessionID: s.id, elem: elem}, nil
}

// execOn runs an element-first function expression with the element and args.
func (s *WebDriverSession) execOn(h ElementHandle, fn string, args ...interface{}) (interface{}, error) {
	elem, err := s.element(h)
	if err != nil {
		return nil, err
	}
	script := "return (" + fn + ").apply(null, arguments);"
	return s.driver.ExecuteScript(script, append([]interface{}{elem}, args...))
}

func (s *WebDriverSession) IsVisible(ctx context.Context, h ElementHandle) (bool, error) {
	elem, err := s.element(h)
	if err != nil {
		return false, err
	}
	return elem.IsDisplayed()
}

func (s *WebDriverSession) IsClickable(ctx context.Context, h ElementHandle) (bool, error) {
	elem, err := s.element(h)
	if err != nil {
		return false, err
	}
	displayed, err := elem.IsDisplayed()
	if err != nil || !displayed {
		return false, err
	}
	return elem.IsEnabled()
}

func (s *WebDriverSession) Attribute(ctx context.Context, h ElementHandle, name string) (string, bool, error) {
	v, err := s.execOn(h, attributeJS, name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	str, ok := v.(string)
	if !ok {
		return fmt.Sprint(v), true, nil
	}
	return str, true, nil
}

func (s *WebDriverSession) Clear(ctx context.Context, h ElementHandle) error {
	elem, err := s.element(h)
	if err != nil {
		return err
	}
	return elem.Clear()
}

// wdKeys maps control characters to WebDriver key codes.
var wdKeys = strings.NewReplacer("\t", selenium.TabKey, "\n", selenium.EnterKey)

func (s *WebDriverSession) SendInput(ctx context.Context, h ElementHandle, text string) error {
	elem, err := s.element(h)
	if err != nil {
		return err
	}
	return elem.SendKeys(wdKeys.Replace(text))
}

func (s *WebDriverSession) Click(ctx context.Context, h ElementHandle) error {
	elem, err := s.element(h)
	if err != nil {
		return err
	}
	return elem.Click()
}

// MoveTo synthesizes hover events in the page; the legacy moveto endpoint is
// not available on W3C drivers.
func (s *WebDriverSession) MoveTo(ctx context.Context, h ElementHandle) error {
	_, err := s.execOn(h, hoverJS)
	return err
}

func (s *WebDriverSession) SelectOptionByText(ctx context.Context, h ElementHandle, text string) error {
	v, err := s.execOn(h, selectTextJS, text)
	if err != nil {
		return err
	}
	if ok, _ := v.(bool); !ok {
		return fmt.Errorf("%w: text %q", ErrOptionNotFound, text)
	}
	return nil
}

func (s *WebDriverSession) SelectOptionByIndex(ctx context.Context, h ElementHandle, index int) error {
	v, err := s.execOn(h, selectIndexJS, index)
	if err != nil {
		return err
	}
	if ok, _ := v.(bool); !ok {
		return fmt.Errorf("%w: index %d", ErrOptionNotFound, index)
	}
	return nil
}

func (s *WebDriverSession) ListOptions(ctx context.Context, h ElementHandle) ([]string, error) {
	v, err := s.execOn(h, listOptionsJS)
	if err != nil {
		return nil, err
	}
	items, _ := v.([]interface{})
	options := make([]string, 0, len(items))
	for _, item := range items {
		options = append(options, fmt.Sprint(item))
	}
	return options, nil
}

func (s *WebDriverSession) Navigate(ctx context.Context, url string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.driver.Get(url); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Quit ends the remote session. Calling it again is a no-op.
func (s *WebDriverSession) Quit(ctx context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing webdriver session.")
	if err := s.driver.Quit(); err != nil {
		return fmt.Errorf("failed to quit webdriver session: %w", err)
	}
	return nil
}

func (s *WebDriverSession) SwitchToFrame(ctx context.Context, h ElementHandle) error {
	elem, err := s.element(h)
	if err != nil {
		return err
	}
	if err := s.driver.SwitchFrame(elem); err != nil {
		return fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	return nil
}

func (s *WebDriverSession) SwitchToDefaultContent(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.driver.SwitchFrame(nil)
}

func (s *WebDriverSession) CurrentLocation(ctx context.Context) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	return s.driver.CurrentURL()
}

func (s *WebDriverSession) EvaluateInDocument(ctx context.Context, script string, h ElementHandle) (json.RawMessage, error) {
	v, err := s.execOn(h, script)
	if err != nil {
		return nil, fmt.Errorf("script evaluation failed: %w", err)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode script result: %w", err)
	}
	return raw, nil
}
