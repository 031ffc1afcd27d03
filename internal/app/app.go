// Package app wires configuration, logging, the browser launcher and the
// step vocabulary into the quizcheck command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"testing"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/denizgursoy/quizcheck/features"
	"github.com/denizgursoy/quizcheck/internal/config"
	"github.com/denizgursoy/quizcheck/internal/generator"
	"github.com/denizgursoy/quizcheck/internal/observability"
	"github.com/denizgursoy/quizcheck/internal/steps"
	"github.com/denizgursoy/quizcheck/pkg/browser"
	"github.com/denizgursoy/quizcheck/pkg/quizcheck"
	"github.com/denizgursoy/quizcheck/pkg/runner"
)

// ConfigEnv names the config file used by generated tests.
const ConfigEnv = "QUIZCHECK_CONFIG"

// LauncherFactory creates the launcher a run acquires its sessions from.
type LauncherFactory func(opts browser.ChromeOptions) browser.Launcher

type (
	Application struct {
		viper       *viper.Viper
		newLauncher LauncherFactory
		featuresFS  fs.FS
		hooks       []*quizcheck.Hooks
		out         io.Writer
		errOut      io.Writer

		configFile string
		cfg        *config.Config
		logger     *zap.Logger
	}

	Option func(*Application)
)

func WithLauncherFactory(factory LauncherFactory) Option {
	return func(a *Application) { a.newLauncher = factory }
}

// WithFeaturesFS replaces the embedded feature bundle used when no feature
// directory is configured.
func WithFeaturesFS(fsys fs.FS) Option {
	return func(a *Application) { a.featuresFS = fsys }
}

func WithHooks(hooks ...*quizcheck.Hooks) Option {
	return func(a *Application) { a.hooks = append(a.hooks, hooks...) }
}

// WithOutput sets the writer of the scenario report and command output.
func WithOutput(w io.Writer) Option {
	return func(a *Application) { a.out = w }
}

// WithErrorOutput sets the writer of the console log.
func WithErrorOutput(w io.Writer) Option {
	return func(a *Application) { a.errOut = w }
}

func New(opts ...Option) *Application {
	a := &Application{
		viper: viper.New(),
		newLauncher: func(opts browser.ChromeOptions) browser.Launcher {
			return browser.NewChromeLauncher(opts)
		},
		featuresFS: features.FS,
		out:        os.Stdout,
		errOut:     os.Stderr,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	config.SetDefaults(a.viper)
	return a
}

// Execute runs the command line with os.Args.
func Execute(ctx context.Context) error {
	return New().Execute(ctx, os.Args[1:])
}

func (a *Application) Execute(ctx context.Context, args []string) error {
	cmd := a.Command()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, runner.ErrScenariosFailed) {
		fmt.Fprintln(a.errOut, "Error:", err)
	}
	return err
}

// Command builds the root command with its subcommands.
func (a *Application) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "quizcheck",
		Short:         "quizcheck drives the quiz login and registration pages through headless Chrome.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			observability.Sync(a.logger)
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file (default is ./quizcheck.yaml)")
	flags.StringSlice("features", nil, "directories to search for .feature files (default is the embedded bundle)")
	flags.StringP("tags", "t", "", `tag expression, e.g. "@login and not @security"`)
	flags.StringP("name", "n", "", "regular expression matched against scenario names")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("disable-log", false, "disable logging")
	a.bind(flags.Lookup, map[string]string{
		"run.features":    "features",
		"run.tags":        "tags",
		"run.name":        "name",
		"logger.level":    "log-level",
		"logger.disabled": "disable-log",
	})

	root.AddCommand(a.runCommand(), a.listCommand(), a.generateCommand())
	return root
}

func (a *Application) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the selected scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			launcher := a.newLauncher(a.cfg.Chrome(a.logger.Named("browser")))
			_, err := a.newRunner(launcher).Run(cmd.Context())
			return err
		},
	}

	flags := cmd.Flags()
	flags.String("base-url", quizcheck.DefaultBaseURL, "root URL of the quiz application")
	flags.String("screenshot-dir", quizcheck.DefaultScreenshotDir, "directory receiving the screenshots")
	flags.String("settle-mode", string(browser.SettleNavigation), "settle strategy after a submit (navigation, fixed)")
	flags.Duration("settle-interval", quizcheck.DefaultSettleInterval, "upper bound of the settle wait")
	flags.Duration("element-timeout", quizcheck.DefaultElementTimeout, "upper bound of every element lookup")
	flags.IntP("parallel", "p", 1, "number of scenarios run at once")
	flags.Bool("fail-fast", false, "stop after the first failed scenario")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("report", "", "write an HTML report to this path")
	flags.Bool("headless", true, "run Chrome without a window")
	flags.String("chrome-path", "", "Chrome binary (default is looked up)")
	a.bind(flags.Lookup, map[string]string{
		"target.base_url":         "base-url",
		"target.screenshot_dir":   "screenshot-dir",
		"settle.mode":             "settle-mode",
		"settle.interval":         "settle-interval",
		"browser.element_timeout": "element-timeout",
		"run.parallel":            "parallel",
		"run.fail_fast":           "fail-fast",
		"run.no_color":            "no-color",
		"run.report_path":         "report",
		"browser.headless":        "headless",
		"browser.exec_path":       "chrome-path",
	})
	return cmd
}

func (a *Application) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the selected scenarios without running them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios, err := a.newRunner(nil).Discover()
			if err != nil {
				return err
			}
			// plain columns, the reporter's step layout does not apply here
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCENARIO\tFEATURE\tLOCATION\tTAGS")
			for _, s := range scenarios {
				fmt.Fprintf(w, "%s\t%s\t%s:%d\t%s\n", s.Name, s.FeatureName, s.URI, s.Line, strings.Join(s.Tags, " "))
			}
			return w.Flush()
		},
	}
}

func (a *Application) generateCommand() *cobra.Command {
	var opts generator.Options
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write one Go test per scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := generator.StartGenerator(a.newRunner(nil), opts)
			if err != nil {
				return err
			}
			a.logger.Info("test file generated", zap.String("path", path))
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Dir, "dir", "e2e", "directory of the generated test file")
	cmd.Flags().StringVar(&opts.FileName, "file", generator.DefaultFileName, "name of the generated test file")
	cmd.Flags().StringVar(&opts.BuildTag, "build-tag", generator.DefaultBuildTag, "build constraint of the generated file")
	return cmd
}

// RunScenarioForTest runs the named scenario as a subtest of t with the
// configuration found in $QUIZCHECK_CONFIG, ./quizcheck.yaml and the
// QUIZCHECK_* environment.
func RunScenarioForTest(t *testing.T, name string) {
	t.Helper()
	New().RunScenario(t, name)
}

// RunScenario runs exactly the scenario called name, ignoring configured
// name and tag filters.
func (a *Application) RunScenario(t *testing.T, name string) {
	t.Helper()
	a.configFile = os.Getenv(ConfigEnv)
	if err := a.setup(); err != nil {
		t.Fatal(err)
	}
	defer observability.Sync(a.logger)

	launcher := a.newLauncher(a.cfg.Chrome(a.logger.Named("browser")))
	result, err := a.newRunner(launcher).
		WithTags("").
		WithName("^" + regexp.QuoteMeta(name) + "$").
		WithTestingT(t).
		Run(t.Context())
	if err != nil && !errors.Is(err, runner.ErrScenariosFailed) {
		t.Fatal(err)
	}
	if result != nil && len(result.Scenarios) == 0 {
		t.Fatalf("scenario %q not found", name)
	}
}

// setup loads the configuration and builds the logger.
func (a *Application) setup() error {
	if err := config.ReadInConfig(a.viper, a.configFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.viper)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Logger, zapcore.Lock(zapcore.AddSync(a.errOut)))
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.logger.Debug("configuration loaded", zap.String("config_file", a.viper.ConfigFileUsed()))
	return nil
}

// newRunner builds a runner with the loaded configuration and every step
// of the vocabulary registered.
func (a *Application) newRunner(launcher browser.Launcher) *runner.CucumberRunner {
	r := runner.NewCucumberRunner(launcher).
		WithConfig(a.cfg.Scenario(observability.NewStepLogger(a.logger.Named("step")))).
		WithLogger(a.logger.Named("runner")).
		WithOutput(a.out).
		WithHooks(a.hooks...).
		WithTags(a.cfg.Run.Tags).
		WithName(a.cfg.Run.Name)
	if len(a.cfg.Run.Features) > 0 {
		r.WithFeaturesDirectories(a.cfg.Run.Features...)
	} else {
		r.WithFeaturesFS(a.featuresFS)
	}
	for _, d := range steps.Definitions() {
		r.RegisterStep(d.Pattern, d.Func)
	}
	return r
}

func (a *Application) bind(lookup func(string) *pflag.Flag, keys map[string]string) {
	for key, flag := range keys {
		// only fails for a nil flag
		_ = a.viper.BindPFlag(key, lookup(flag))
	}
}
