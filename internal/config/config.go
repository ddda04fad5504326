// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Supported session backends.
const (
	BackendCDP       = "cdp"
	BackendWebDriver = "webdriver"
	BackendStatic    = "static"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Wait() WaitConfig
	Run() RunConfig

	SetBrowserBackend(string)
	SetBrowserHeadless(bool)
	SetWaitTimeout(time.Duration)
	SetWaitPoll(time.Duration)
	SetRunConfig(RunConfig)
}

// Config holds the entire application configuration.
// Fields are exported for viper's unmarshaller; callers should prefer the getters.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	WaitCfg    WaitConfig    `mapstructure:"wait" yaml:"wait"`
	RunCfg     RunConfig     `mapstructure:"run" yaml:"run"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Wait() WaitConfig       { return c.WaitCfg }
func (c *Config) Run() RunConfig         { return c.RunCfg }

// -- Setters (used by CLI flag overrides) --

func (c *Config) SetBrowserBackend(b string)     { c.BrowserCfg.Backend = b }
func (c *Config) SetBrowserHeadless(h bool)      { c.BrowserCfg.Headless = h }
func (c *Config) SetWaitTimeout(d time.Duration) { c.WaitCfg.Timeout = d }
func (c *Config) SetWaitPoll(d time.Duration)    { c.WaitCfg.Poll = d }
func (c *Config) SetRunConfig(rc RunConfig)      { c.RunCfg = rc }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names used for each log level on the console.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig selects and tunes the session backend.
type BrowserConfig struct {
	Backend           string         `mapstructure:"backend" yaml:"backend"`
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	DisableCache      bool           `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors   bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Debug             bool           `mapstructure:"debug" yaml:"debug"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	Viewport          map[string]int `mapstructure:"viewport" yaml:"viewport"`
	UserAgent         string         `mapstructure:"user_agent" yaml:"user_agent"`
	Concurrency       int            `mapstructure:"concurrency" yaml:"concurrency"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	WebDriverURL      string         `mapstructure:"webdriver_url" yaml:"webdriver_url"`
	BrowserName       string         `mapstructure:"browser_name" yaml:"browser_name"`
}

// WaitConfig is the initial wait policy given to every command facade.
type WaitConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Poll      time.Duration `mapstructure:"poll" yaml:"poll"`
	CommitKey string        `mapstructure:"commit_key" yaml:"commit_key"`
}

// RunConfig gets its marching orders mostly from `run` flags.
type RunConfig struct {
	ReportJSON  string `mapstructure:"report_json" yaml:"report_json"`
	ReportJUnit string `mapstructure:"report_junit" yaml:"report_junit"`
	FailFast    bool   `mapstructure:"fail_fast" yaml:"fail_fast"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static, so this is a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pagedriver")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "red")

	// -- Browser --
	v.SetDefault("browser.backend", BackendCDP)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_cache", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.debug", false)
	v.SetDefault("browser.viewport", map[string]int{"width": 1366, "height": 768})
	v.SetDefault("browser.concurrency", 2)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.webdriver_url", "")
	v.SetDefault("browser.browser_name", "chrome")

	// -- Wait --
	v.SetDefault("wait.timeout", "15s")
	v.SetDefault("wait.poll", "1s")
	v.SetDefault("wait.commit_key", "\t")

	// -- Run --
	v.SetDefault("run.report_json", "")
	v.SetDefault("run.report_junit", "")
	v.SetDefault("run.fail_fast", false)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in every file path the config carries.
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.LoggerCfg.LogFile, &c.RunCfg.ReportJSON, &c.RunCfg.ReportJUnit} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.BrowserCfg.Backend {
	case BackendCDP, BackendStatic:
	case BackendWebDriver:
		if c.BrowserCfg.WebDriverURL == "" {
			return fmt.Errorf("browser.webdriver_url is required for the %q backend", BackendWebDriver)
		}
	default:
		return fmt.Errorf("browser.backend %q is not supported", c.BrowserCfg.Backend)
	}
	if c.BrowserCfg.Concurrency <= 0 {
		return fmt.Errorf("browser.concurrency must be a positive integer")
	}
	if err := c.WaitCfg.Validate(); err != nil {
		return fmt.Errorf("wait configuration invalid: %w", err)
	}
	return nil
}

// Validate applies the same rule as the runtime wait policy: negative values
// count as zero and the timeout may not be shorter than the poll interval.
func (w *WaitConfig) Validate() error {
	timeout, poll := max(w.Timeout, 0), max(w.Poll, 0)
	if timeout < poll {
		return fmt.Errorf("timeout (%s) must not be shorter than poll (%s)", timeout, poll)
	}
	return nil
}
