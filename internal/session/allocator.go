// internal/session/allocator.go
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagedriver/internal/config"
)

// DefaultAllocatorOptions builds the Chrome launch flags for cfg.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.DisableCache {
		opts = append(opts,
			chromedp.Flag("disk-cache-size", "0"),
			chromedp.Flag("media-cache-size", "0"),
			chromedp.Flag("disable-cache", true),
		)
	}
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}
	for _, arg := range cfg.Args {
		name, value := parseFlag(arg)
		if name == "" {
			continue
		}
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// parseFlag splits "--name=value" into a chromedp flag. Bare flags become booleans.
func parseFlag(arg string) (string, interface{}) {
	arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
	name, value, found := strings.Cut(arg, "=")
	if !found {
		return name, true
	}
	return name, value
}

// NewCDPSession launches a browser and opens one tab in it. The browser lives
// until Quit; ctx only bounds the startup.
func NewCDPSession(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*CDPSession, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(Detach(ctx), DefaultAllocatorOptions(cfg)...)

	sugar := logger.Named("chromedp").Sugar()
	ctxOpts := []chromedp.ContextOption{chromedp.WithErrorf(sugar.Debugf)}
	if cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(sugar.Debugf))
	}
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, ctxOpts...)
	cancel := func() {
		cancelTab()
		cancelAlloc()
	}

	// The first Run allocates the browser; it must not carry a deadline, or
	// the browser would die with it.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()
	select {
	case err := <-started:
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
	case <-ctx.Done():
		cancel()
		return nil, fmt.Errorf("browser startup interrupted: %w", ctx.Err())
	}

	s := newCDPSession(tabCtx, cancel, cfg.NavigationTimeout, logger)
	s.logger.Info("Browser session started.", zap.Bool("headless", cfg.Headless))
	return s, nil
}
