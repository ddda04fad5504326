// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/pagedriver/internal/session"
)

// -- Element Handle --

// Handle is a session.ElementHandle identified by its own string value.
type Handle string

func (h Handle) HandleID() string { return string(h) }

// -- Session Mock --

// MockSession mocks the session.Session interface.
type MockSession struct {
	mock.Mock
}

var _ session.Session = (*MockSession)(nil)

func (m *MockSession) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSession) FindOne(ctx context.Context, kind session.SelectorKind, selector string) (session.ElementHandle, error) {
	args := m.Called(ctx, kind, selector)
	h, _ := args.Get(0).(session.ElementHandle)
	return h, args.Error(1)
}

func (m *MockSession) FindMany(ctx context.Context, kind session.SelectorKind, selector string) ([]session.ElementHandle, error) {
	args := m.Called(ctx, kind, selector)
	handles, _ := args.Get(0).([]session.ElementHandle)
	return handles, args.Error(1)
}

func (m *MockSession) IsVisible(ctx context.Context, h session.ElementHandle) (bool, error) {
	args := m.Called(ctx, h)
	return args.Bool(0), args.Error(1)
}

func (m *MockSession) IsClickable(ctx context.Context, h session.ElementHandle) (bool, error) {
	args := m.Called(ctx, h)
	return args.Bool(0), args.Error(1)
}

func (m *MockSession) Attribute(ctx context.Context, h session.ElementHandle, name string) (string, bool, error) {
	args := m.Called(ctx, h, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockSession) Clear(ctx context.Context, h session.ElementHandle) error {
	return m.Called(ctx, h).Error(0)
}

func (m *MockSession) SendInput(ctx context.Context, h session.ElementHandle, text string) error {
	return m.Called(ctx, h, text).Error(0)
}

func (m *MockSession) Click(ctx context.Context, h session.ElementHandle) error {
	return m.Called(ctx, h).Error(0)
}

func (m *MockSession) MoveTo(ctx context.Context, h session.ElementHandle) error {
	return m.Called(ctx, h).Error(0)
}

func (m *MockSession) SelectOptionByText(ctx context.Context, h session.ElementHandle, text string) error {
	return m.Called(ctx, h, text).Error(0)
}

func (m *MockSession) SelectOptionByIndex(ctx context.Context, h session.ElementHandle, index int) error {
	return m.Called(ctx, h, index).Error(0)
}

func (m *MockSession) ListOptions(ctx context.Context, h session.ElementHandle) ([]string, error) {
	args := m.Called(ctx, h)
	options, _ := args.Get(0).([]string)
	return options, args.Error(1)
}

func (m *MockSession) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockSession) Quit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSession) SwitchToFrame(ctx context.Context, h session.ElementHandle) error {
	return m.Called(ctx, h).Error(0)
}

func (m *MockSession) SwitchToDefaultContent(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSession) CurrentLocation(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSession) EvaluateInDocument(ctx context.Context, script string, h session.ElementHandle) (json.RawMessage, error) {
	args := m.Called(ctx, script, h)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}
