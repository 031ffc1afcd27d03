package quizcheck

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/denizgursoy/quizcheck/pkg/browser"
)

const (
	DefaultBaseURL        = "http://localhost/quiz"
	DefaultScreenshotDir  = "tests/screenshots"
	DefaultElementTimeout = 10 * time.Second
	DefaultSettleInterval = 2 * time.Second
)

// Config holds the settings every scenario runs with. It is passed
// explicitly to each scenario so runs against different targets can share
// a process.
type Config struct {
	// BaseURL is the root of the quiz application; page paths such as
	// "login.php" are resolved against it.
	BaseURL string

	// ScreenshotDir receives the PNG artifacts. Created if absent.
	ScreenshotDir string

	// ElementTimeout bounds every element lookup.
	ElementTimeout time.Duration

	// SettleInterval bounds the pause between a submission and the result
	// screenshot.
	SettleInterval time.Duration

	// SettleMode selects a fixed pause or a navigation aware wait.
	SettleMode browser.SettleMode

	// FailFast stops scheduling scenarios after the first failure.
	FailFast bool

	// Parallel is the number of scenarios run at once. Values below 2 run
	// scenarios one after another.
	Parallel int

	// NoColor disables colored console output.
	NoColor bool

	// DisableReporter suppresses the console reporter. Summary statistics
	// are still collected.
	DisableReporter bool

	// ReportPath, when set, receives an HTML report after the run.
	ReportPath string

	// Logger is handed to step functions. Nil selects a no-op logger.
	Logger Logger

	// Now is the clock used for derived inputs. Nil selects time.Now.
	Now func() time.Time
}

// DefaultConfig returns the configuration of the original suite: a local
// quiz install, 10 second lookups and a 2 second settle interval.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		ScreenshotDir:  DefaultScreenshotDir,
		ElementTimeout: DefaultElementTimeout,
		SettleInterval: DefaultSettleInterval,
		SettleMode:     browser.SettleNavigation,
		Parallel:       1,
		Now:            time.Now,
	}
}

// WithDefaults returns a copy of c with every unset field filled from
// DefaultConfig.
func (c *Config) WithDefaults() *Config {
	defaults := DefaultConfig()
	if c == nil {
		return defaults
	}
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = defaults.BaseURL
	}
	if out.ScreenshotDir == "" {
		out.ScreenshotDir = defaults.ScreenshotDir
	}
	if out.ElementTimeout <= 0 {
		out.ElementTimeout = defaults.ElementTimeout
	}
	if out.SettleInterval <= 0 {
		out.SettleInterval = defaults.SettleInterval
	}
	if out.SettleMode == "" {
		out.SettleMode = defaults.SettleMode
	}
	if out.Parallel < 1 {
		out.Parallel = 1
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return &out
}

// Validate reports configuration errors that would make every scenario fail.
func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid base URL %q: %w", c.BaseURL, err))
	} else if u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base URL %q must be absolute", c.BaseURL))
	}
	if strings.TrimSpace(c.ScreenshotDir) == "" {
		errs = append(errs, errors.New("screenshot directory is empty"))
	}
	if _, err := browser.ParseSettleMode(string(c.SettleMode)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// URL resolves a page path against the base URL.
func (c *Config) URL(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
