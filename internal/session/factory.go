// internal/session/factory.go
package session

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagedriver/internal/config"
)

// Factory opens a new Session. The CLI runs one per scenario.
type Factory func(ctx context.Context) (Session, error)

// NewFactory returns a Factory for the backend named in cfg.
func NewFactory(cfg config.BrowserConfig, logger *zap.Logger) (Factory, error) {
	switch cfg.Backend {
	case config.BackendCDP:
		return func(ctx context.Context) (Session, error) {
			return NewCDPSession(ctx, cfg, logger)
		}, nil
	case config.BackendWebDriver:
		return func(ctx context.Context) (Session, error) {
			return NewWebDriverSession(cfg, logger)
		}, nil
	case config.BackendStatic:
		client := &http.Client{Timeout: cfg.NavigationTimeout}
		return func(ctx context.Context) (Session, error) {
			return NewStaticSession(client, logger), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
