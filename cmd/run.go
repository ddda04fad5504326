// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/pagedriver/internal/commands"
	"github.com/xkilldash9x/pagedriver/internal/config"
	"github.com/xkilldash9x/pagedriver/internal/observability"
	"github.com/xkilldash9x/pagedriver/internal/reporting"
	"github.com/xkilldash9x/pagedriver/internal/script"
	"github.com/xkilldash9x/pagedriver/internal/session"
	"github.com/xkilldash9x/pagedriver/internal/wait"
)

// errScenariosFailed is returned by run when at least one scenario failed.
var errScenariosFailed = errors.New("scenarios failed")

// errFailFast stops the remaining scenarios once one has failed.
var errFailFast = errors.New("stopping after first failed scenario")

// sessionCloseTimeout bounds how long a finished scenario may take to release its browser.
const sessionCloseTimeout = 15 * time.Second

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [scenario files...]",
		Short: "Runs one or more YAML scenarios",
		Long: `Parses every scenario file first, then runs them concurrently, one session per
scenario. A summary is printed to stdout; JSON and JUnit reports are written when
their paths are set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			scenarios, err := loadScenarios(args)
			if err != nil {
				return err
			}

			factory, err := session.NewFactory(cfg.Browser(), logger)
			if err != nil {
				return err
			}
			return runScenarios(ctx, logger, cfg, scenarios, factory, cmd.OutOrStdout())
		},
	}

	addBrowserFlags(runCmd)
	runCmd.Flags().IntP("concurrency", "j", 0, "Number of scenarios run at once. (Overrides config/env)")
	runCmd.Flags().String("report-json", "", "Write a JSON report to this path. (Overrides config/env)")
	runCmd.Flags().String("report-junit", "", "Write a JUnit XML report to this path. (Overrides config/env)")
	runCmd.Flags().Bool("fail-fast", false, "Skip scenarios not yet started once one fails. (Overrides config/env)")
	return runCmd
}

// loadScenarios parses every file up front so a typo in the last file fails
// the run before any browser starts.
func loadScenarios(paths []string) ([]*script.Scenario, error) {
	scenarios := make([]*script.Scenario, 0, len(paths))
	var errs []error
	for _, path := range paths {
		sc, err := script.ParseFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		scenarios = append(scenarios, sc)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return scenarios, nil
}

// runScenarios is the testable core of the run command.
func runScenarios(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	scenarios []*script.Scenario,
	factory session.Factory,
	out io.Writer,
) error {
	policy, err := wait.NewPolicy(cfg.Wait().Timeout, cfg.Wait().Poll)
	if err != nil {
		return err
	}
	reporter, err := openReporters(cfg.Run(), out, logger)
	if err != nil {
		return err
	}

	logger.Info("Running scenarios",
		zap.Int("scenarios", len(scenarios)),
		zap.Int("concurrency", cfg.Browser().Concurrency),
		zap.String("backend", cfg.Browser().Backend),
		zap.Stringer("wait_policy", policy),
	)

	runner := script.NewRunner(logger)
	results := make([]script.Result, len(scenarios))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Browser().Concurrency, 1))
	for i, sc := range scenarios {
		g.Go(func() error {
			results[i] = runOne(gctx, logger, cfg, policy, runner, factory, sc)
			if results[i].Failed() && cfg.Run().FailFast {
				return errFailFast
			}
			return nil
		})
	}
	// Only errFailFast is ever returned; the results carry the real failures.
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res.Failed() {
			failed++
		}
		if err := reporter.Write(res); err != nil {
			logger.Error("Failed to record scenario result", zap.String("scenario", res.Scenario), zap.Error(err))
		}
	}
	if err := reporter.Close(); err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errScenariosFailed, failed, len(results))
	}
	return nil
}

// runOne gives sc its own session and facade, and always releases the session.
func runOne(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	policy wait.Policy,
	runner *script.Runner,
	factory session.Factory,
	sc *script.Scenario,
) script.Result {
	if err := ctx.Err(); err != nil {
		return script.Aborted(sc, fmt.Errorf("not started: %w", err))
	}

	sess, err := factory(ctx)
	if err != nil {
		return script.Aborted(sc, fmt.Errorf("failed to start session: %w", err))
	}

	c := commands.New(sess, logger.With(zap.String("scenario", sc.Name)),
		commands.WithWaitPolicy(policy),
		commands.WithCommitKey(cfg.Wait().CommitKey))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), sessionCloseTimeout)
		defer cancel()
		c.Close(closeCtx)
	}()

	return runner.Run(ctx, c, sc)
}

// openReporters always prints the text summary to out and adds file reports
// for every configured path.
func openReporters(rc config.RunConfig, out io.Writer, logger *zap.Logger) (reporting.Reporter, error) {
	text, err := reporting.NewWithWriter(reporting.FormatText, reporting.NopWriteCloser(out), logger)
	if err != nil {
		return nil, err
	}
	multi := reporting.Multi{text}

	files := []struct{ format, path string }{
		{reporting.FormatJSON, rc.ReportJSON},
		{reporting.FormatJUnit, rc.ReportJUnit},
	}
	for _, f := range files {
		if f.path == "" {
			continue
		}
		r, err := reporting.New(f.format, f.path, logger)
		if err != nil {
			_ = multi.Close()
			return nil, err
		}
		multi = append(multi, r)
	}
	return multi, nil
}
