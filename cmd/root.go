// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagedriver/internal/config"
	"github.com/xkilldash9x/pagedriver/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// flagKeys maps command line flags to the configuration keys they override.
// Flags are only bound when the executing command declares them.
var flagKeys = map[string]string{
	"backend":       "browser.backend",
	"headless":      "browser.headless",
	"concurrency":   "browser.concurrency",
	"webdriver-url": "browser.webdriver_url",
	"timeout":       "wait.timeout",
	"poll":          "wait.poll",
	"report-json":   "run.report_json",
	"report-junit":  "run.report_junit",
	"fail-fast":     "run.fail_fast",
	"log-level":     "logger.level",
}

// NewRootCommand builds a fresh command tree. Each call returns independent
// flag state, which the interactive shell and the tests rely on.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "pagedriver",
		Short: "pagedriver runs scripted browser scenarios with resilient waits.",
		Long: `pagedriver drives a browser through YAML scenarios. Every element command
retries until the element is ready or the wait policy times out, and failures
name the command and the page they happened on.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "pagedriver"})
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "pagedriver"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting pagedriver", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./pagedriver.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error). (Overrides config/env)")
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newXPathCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the root command with ctx, logging any failure.
func Execute(ctx context.Context) error {
	defer observability.Sync()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			observability.GetLogger().Warn("Command aborted.")
		} else {
			observability.GetLogger().Error("Command execution failed", zap.Error(err))
		}
		return err
	}
	return nil
}

// initializeConfig reads the config file, then environment variables, then
// the flags of the executing command, in increasing precedence.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("pagedriver")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PAGEDRIVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}

	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// getConfigFromContext returns the configuration stored by PersistentPreRunE.
func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not found in context")
	}
	return cfg, nil
}

// addBrowserFlags declares the session overrides shared by commands that open pages.
func addBrowserFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "", "Session backend: cdp, webdriver or static. (Overrides config/env)")
	cmd.Flags().Bool("headless", true, "Run the browser without a window. (Overrides config/env)")
	cmd.Flags().String("webdriver-url", "", "Remote WebDriver endpoint for the webdriver backend. (Overrides config/env)")
	cmd.Flags().Duration("timeout", 0, "How long element commands keep retrying. (Overrides config/env)")
	cmd.Flags().Duration("poll", 0, "Interval between element lookups. (Overrides config/env)")
}
