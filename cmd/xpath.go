// File: cmd/xpath.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagedriver/internal/commands"
	"github.com/xkilldash9x/pagedriver/internal/config"
	"github.com/xkilldash9x/pagedriver/internal/locator"
	"github.com/xkilldash9x/pagedriver/internal/observability"
	"github.com/xkilldash9x/pagedriver/internal/session"
	"github.com/xkilldash9x/pagedriver/internal/wait"
)

// newXPathCmd creates the `xpath` command, which prints stable paths for
// elements so they can be pasted into scenarios.
func newXPathCmd() *cobra.Command {
	xpathCmd := &cobra.Command{
		Use:   "xpath <url> <locator>",
		Short: "Prints the canonical path of every element a locator matches",
		Example: `  pagedriver xpath https://example.com "css=a"
  pagedriver xpath --backend static file:///tmp/page.html "//li"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			loc, err := locator.Parse(args[1])
			if err != nil {
				return err
			}
			factory, err := session.NewFactory(cfg.Browser(), logger)
			if err != nil {
				return err
			}
			return runXPath(ctx, logger, cfg, factory, args[0], loc, cmd.OutOrStdout())
		},
	}
	addBrowserFlags(xpathCmd)
	return xpathCmd
}

// runXPath is the testable core of the xpath command.
func runXPath(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	factory session.Factory,
	url string,
	loc locator.Locator,
	out io.Writer,
) error {
	policy, err := wait.NewPolicy(cfg.Wait().Timeout, cfg.Wait().Poll)
	if err != nil {
		return err
	}
	sess, err := factory(ctx)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	c := commands.New(sess, logger, commands.WithWaitPolicy(policy))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), sessionCloseTimeout)
		defer cancel()
		c.Close(closeCtx)
	}()

	if err := c.Open(ctx, url); err != nil {
		return err
	}
	handles, err := c.GetElements(ctx, loc)
	if err != nil {
		return err
	}
	for _, h := range handles {
		path, err := locator.CanonicalPath(ctx, c.Session(), h)
		if err != nil {
			return fmt.Errorf("failed to compute path for %s: %w", h.HandleID(), err)
		}
		fmt.Fprintln(out, path)
	}
	return nil
}
