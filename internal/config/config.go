// Package config loads the quizcheck settings from file, environment and
// flags through viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/denizgursoy/quizcheck/pkg/browser"
	"github.com/denizgursoy/quizcheck/pkg/quizcheck"
)

const (
	EnvPrefix   = "QUIZCHECK"
	DefaultName = "quizcheck"
)

// Config is the on-disk shape of quizcheck.yaml.
type Config struct {
	Target  TargetConfig  `mapstructure:"target" yaml:"target"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Settle  SettleConfig  `mapstructure:"settle" yaml:"settle"`
	Run     RunConfig     `mapstructure:"run" yaml:"run"`
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
}

// TargetConfig points at the quiz application under test.
type TargetConfig struct {
	BaseURL       string `mapstructure:"base_url" yaml:"base_url"`
	ScreenshotDir string `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
}

type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	Flags             []string      `mapstructure:"flags" yaml:"flags"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	LaunchTimeout     time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ElementTimeout    time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
}

type SettleConfig struct {
	Mode     string        `mapstructure:"mode" yaml:"mode"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// RunConfig selects and schedules scenarios.
type RunConfig struct {
	Features        []string `mapstructure:"features" yaml:"features"`
	Tags            string   `mapstructure:"tags" yaml:"tags"`
	Name            string   `mapstructure:"name" yaml:"name"`
	Parallel        int      `mapstructure:"parallel" yaml:"parallel"`
	FailFast        bool     `mapstructure:"fail_fast" yaml:"fail_fast"`
	NoColor         bool     `mapstructure:"no_color" yaml:"no_color"`
	DisableReporter bool     `mapstructure:"disable_reporter" yaml:"disable_reporter"`
	ReportPath      string   `mapstructure:"report_path" yaml:"report_path"`
}

type LoggerConfig struct {
	Disabled    bool   `mapstructure:"disabled" yaml:"disabled"`
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	// -- Target --
	v.SetDefault("target.base_url", quizcheck.DefaultBaseURL)
	v.SetDefault("target.screenshot_dir", quizcheck.DefaultScreenshotDir)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.flags", []string{})
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 800)
	v.SetDefault("browser.launch_timeout", browser.DefaultLaunchTimeout.String())
	v.SetDefault("browser.navigation_timeout", browser.DefaultNavigationTimeout.String())
	v.SetDefault("browser.element_timeout", quizcheck.DefaultElementTimeout.String())

	// -- Settle --
	v.SetDefault("settle.mode", string(browser.SettleNavigation))
	v.SetDefault("settle.interval", quizcheck.DefaultSettleInterval.String())

	// -- Run --
	v.SetDefault("run.features", []string{})
	v.SetDefault("run.tags", "")
	v.SetDefault("run.name", "")
	v.SetDefault("run.parallel", 1)
	v.SetDefault("run.fail_fast", false)
	v.SetDefault("run.no_color", false)
	v.SetDefault("run.disable_reporter", false)
	v.SetDefault("run.report_path", "")

	// -- Logger --
	v.SetDefault("logger.disabled", false)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", DefaultName)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)
}

// ReadInConfig points v at file, or at ./quizcheck.yaml when file is
// empty, and enables QUIZCHECK_* environment overrides. A missing default
// file is not an error.
func ReadInConfig(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(DefaultName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// Load decodes v and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values quizcheck.Config does not cover.
func (c *Config) Validate() error {
	var errs []error
	if c.Browser.ElementTimeout <= 0 {
		errs = append(errs, errors.New("browser.element_timeout must be positive"))
	}
	if c.Browser.LaunchTimeout <= 0 {
		errs = append(errs, errors.New("browser.launch_timeout must be positive"))
	}
	if c.Settle.Interval <= 0 {
		errs = append(errs, errors.New("settle.interval must be positive"))
	}
	if c.Run.Parallel < 1 {
		errs = append(errs, errors.New("run.parallel must be at least 1"))
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format))
	}
	if err := c.Scenario(nil).Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Scenario converts the loaded settings into the configuration handed to
// every scenario. A nil logger keeps the no-op default.
func (c *Config) Scenario(logger quizcheck.Logger) *quizcheck.Config {
	mode, err := browser.ParseSettleMode(c.Settle.Mode)
	if err != nil {
		// left for quizcheck.Config.Validate to report
		mode = browser.SettleMode(c.Settle.Mode)
	}
	return &quizcheck.Config{
		BaseURL:         c.Target.BaseURL,
		ScreenshotDir:   c.Target.ScreenshotDir,
		ElementTimeout:  c.Browser.ElementTimeout,
		SettleInterval:  c.Settle.Interval,
		SettleMode:      mode,
		FailFast:        c.Run.FailFast,
		Parallel:        c.Run.Parallel,
		NoColor:         c.Run.NoColor,
		DisableReporter: c.Run.DisableReporter,
		ReportPath:      c.Run.ReportPath,
		Logger:          logger,
		Now:             time.Now,
	}
}

// Chrome converts the browser section into launcher options.
func (c *Config) Chrome(logger *zap.Logger) browser.ChromeOptions {
	return browser.ChromeOptions{
		Headless:          c.Browser.Headless,
		ExecPath:          c.Browser.ExecPath,
		Flags:             append([]string(nil), c.Browser.Flags...),
		WindowWidth:       c.Browser.WindowWidth,
		WindowHeight:      c.Browser.WindowHeight,
		LaunchTimeout:     c.Browser.LaunchTimeout,
		NavigationTimeout: c.Browser.NavigationTimeout,
		Logger:            logger,
	}
}
