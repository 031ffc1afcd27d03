package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/denizgursoy/quizcheck/pkg/browser"
	"github.com/denizgursoy/quizcheck/pkg/quizcheck"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	require.Equal(t, "http://localhost/quiz", cfg.Target.BaseURL)
	require.Equal(t, "tests/screenshots", cfg.Target.ScreenshotDir)
	require.True(t, cfg.Browser.Headless)
	require.Equal(t, 10*time.Second, cfg.Browser.ElementTimeout)
	require.Equal(t, browser.DefaultLaunchTimeout, cfg.Browser.LaunchTimeout)
	require.Equal(t, 2*time.Second, cfg.Settle.Interval)
	require.Equal(t, "navigation", cfg.Settle.Mode)
	require.Equal(t, 1, cfg.Run.Parallel)
	require.Equal(t, "console", cfg.Logger.Format)
	require.Equal(t, "quizcheck", cfg.Logger.ServiceName)
}

func TestReadInConfig(t *testing.T) {
	t.Run("reads yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "quizcheck.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
target:
  base_url: http://quiz.test:8080/app
browser:
  flags: ["--lang=id"]
settle:
  mode: fixed
  interval: 500ms
run:
  tags: "@login and not @security"
  parallel: 3
`), 0o644))

		v := newViper(t)
		require.NoError(t, ReadInConfig(v, path))
		cfg, err := Load(v)
		require.NoError(t, err)

		require.Equal(t, "http://quiz.test:8080/app", cfg.Target.BaseURL)
		require.Equal(t, []string{"--lang=id"}, cfg.Browser.Flags)
		require.Equal(t, "fixed", cfg.Settle.Mode)
		require.Equal(t, 500*time.Millisecond, cfg.Settle.Interval)
		require.Equal(t, "@login and not @security", cfg.Run.Tags)
		require.Equal(t, 3, cfg.Run.Parallel)
	})

	t.Run("missing default file is fine", func(t *testing.T) {
		t.Chdir(t.TempDir())
		v := newViper(t)
		require.NoError(t, ReadInConfig(v, ""))
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		v := newViper(t)
		err := ReadInConfig(v, filepath.Join(t.TempDir(), "absent.yaml"))
		require.ErrorContains(t, err, "error reading config file")
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("QUIZCHECK_TARGET_BASE_URL", "https://staging.example.com/quiz")
		t.Setenv("QUIZCHECK_SETTLE_INTERVAL", "3s")

		v := newViper(t)
		require.NoError(t, ReadInConfig(v, ""))
		cfg, err := Load(v)
		require.NoError(t, err)
		require.Equal(t, "https://staging.example.com/quiz", cfg.Target.BaseURL)
		require.Equal(t, 3*time.Second, cfg.Settle.Interval)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"element timeout", func(c *Config) { c.Browser.ElementTimeout = 0 }, "browser.element_timeout must be positive"},
		{"launch timeout", func(c *Config) { c.Browser.LaunchTimeout = -time.Second }, "browser.launch_timeout must be positive"},
		{"settle interval", func(c *Config) { c.Settle.Interval = 0 }, "settle.interval must be positive"},
		{"parallel", func(c *Config) { c.Run.Parallel = 0 }, "run.parallel must be at least 1"},
		{"log format", func(c *Config) { c.Logger.Format = "xml" }, `logger.format must be console or json, got "xml"`},
		{"settle mode", func(c *Config) { c.Settle.Mode = "sleepy" }, `unknown settle mode "sleepy"`},
		{"relative base url", func(c *Config) { c.Target.BaseURL = "quiz" }, "must be absolute"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(newViper(t))
			require.NoError(t, err)

			tt.mutate(cfg)
			require.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestConfig_Scenario(t *testing.T) {
	cfg, err := Load(newViper(t))
	require.NoError(t, err)
	cfg.Settle.Mode = "FIXED"
	cfg.Run.FailFast = true
	cfg.Run.ReportPath = "report.html"

	logger := quizcheck.NewNoopLogger()
	qc := cfg.Scenario(logger)

	require.Equal(t, cfg.Target.BaseURL, qc.BaseURL)
	require.Equal(t, browser.SettleFixed, qc.SettleMode)
	require.Equal(t, 10*time.Second, qc.ElementTimeout)
	require.Equal(t, 2*time.Second, qc.SettleInterval)
	require.True(t, qc.FailFast)
	require.Equal(t, "report.html", qc.ReportPath)
	require.Same(t, logger, qc.Logger)
	require.NotNil(t, qc.Now)
	require.NoError(t, qc.Validate())
}

func TestConfig_Chrome(t *testing.T) {
	cfg, err := Load(newViper(t))
	require.NoError(t, err)
	cfg.Browser.Flags = []string{"--lang=id"}
	cfg.Browser.ExecPath = "/usr/bin/chromium"

	logger := zap.NewNop()
	opts := cfg.Chrome(logger)
	require.True(t, opts.Headless)
	require.Equal(t, "/usr/bin/chromium", opts.ExecPath)
	require.Equal(t, []string{"--lang=id"}, opts.Flags)
	require.Equal(t, 1280, opts.WindowWidth)
	require.Same(t, logger, opts.Logger)

	opts.Flags[0] = "--changed"
	require.Equal(t, "--lang=id", cfg.Browser.Flags[0])
}
