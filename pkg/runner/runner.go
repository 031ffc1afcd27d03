package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	messages "github.com/cucumber/messages/go/v21"
	tagexpressions "github.com/cucumber/tag-expressions/go/v6"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/denizgursoy/quizcheck/pkg/browser"
	"github.com/denizgursoy/quizcheck/pkg/executor"
	"github.com/denizgursoy/quizcheck/pkg/gherkin_parser"
	"github.com/denizgursoy/quizcheck/pkg/quizcheck"
)

// ErrScenariosFailed is returned by Run when at least one scenario failed.
var ErrScenariosFailed = errors.New("scenarios failed")

type (
	CucumberRunner struct {
		launcher           browser.Launcher
		config             *quizcheck.Config
		featureDirectories []string
		featuresFS         fs.FS
		executor           *executor.StepExecutor
		registerErrs       []error
		hooks              []*quizcheck.Hooks
		output             io.Writer
		tagExpression      string
		namePattern        string
		logger             *zap.Logger
		testingT           *testing.T
	}

	// scheduled is one pickle selected for execution.
	scheduled struct {
		feature  *gherkin_parser.Feature
		pickle   *messages.Pickle
		scenario quizcheck.Scenario
		astSteps map[string]*messages.Step
	}
)

// NewCucumberRunner creates a runner that acquires one browser session per
// scenario from launcher.
func NewCucumberRunner(launcher browser.Launcher) *CucumberRunner {
	return &CucumberRunner{
		launcher: launcher,
		executor: executor.NewStepExecutor(),
		output:   os.Stdout,
		logger:   zap.NewNop(),
	}
}

func (c *CucumberRunner) WithConfig(config *quizcheck.Config) *CucumberRunner {
	c.config = config
	return c
}

// WithFeaturesDirectories selects directories searched for feature files.
// They take precedence over WithFeaturesFS.
func (c *CucumberRunner) WithFeaturesDirectories(directories ...string) *CucumberRunner {
	c.featureDirectories = directories
	return c
}

// WithFeaturesFS selects an fs.FS, typically an embedded bundle, to read
// feature files from when no directory is configured.
func (c *CucumberRunner) WithFeaturesFS(fsys fs.FS) *CucumberRunner {
	c.featuresFS = fsys
	return c
}

func (c *CucumberRunner) WithHooks(hooks ...*quizcheck.Hooks) *CucumberRunner {
	c.hooks = append(c.hooks, hooks...)
	return c
}

// WithOutput sets where the console reporter writes. Defaults to stdout.
func (c *CucumberRunner) WithOutput(w io.Writer) *CucumberRunner {
	c.output = w
	return c
}

// WithTags filters scenarios by a cucumber tag expression such as
// "@login and not @security".
func (c *CucumberRunner) WithTags(expression string) *CucumberRunner {
	c.tagExpression = expression
	return c
}

// WithName filters scenarios whose name matches the regular expression.
func (c *CucumberRunner) WithName(pattern string) *CucumberRunner {
	c.namePattern = pattern
	return c
}

func (c *CucumberRunner) WithLogger(logger *zap.Logger) *CucumberRunner {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithTestingT runs every scenario as a subtest of t. Scenarios then run
// one after another regardless of the parallel setting.
func (c *CucumberRunner) WithTestingT(t *testing.T) *CucumberRunner {
	c.testingT = t
	return c
}

// RegisterStep adds a step definition. Registration errors are returned by
// Run and Discover.
func (c *CucumberRunner) RegisterStep(definition string, function any) *CucumberRunner {
	if err := c.executor.RegisterStep(definition, function); err != nil {
		c.registerErrs = append(c.registerErrs, err)
	}
	return c
}

// Discover returns the scenarios Run would execute, in execution order.
func (c *CucumberRunner) Discover() ([]quizcheck.Scenario, error) {
	if err := errors.Join(c.registerErrs...); err != nil {
		return nil, err
	}
	selected, err := c.schedule()
	if err != nil {
		return nil, err
	}
	scenarios := make([]quizcheck.Scenario, len(selected))
	for i, s := range selected {
		scenarios[i] = s.scenario
	}
	return scenarios, nil
}

// Run executes every selected scenario. The returned error wraps
// ErrScenariosFailed when a scenario failed; the result is returned in
// either case once execution started.
func (c *CucumberRunner) Run(ctx context.Context) (*quizcheck.RunResult, error) {
	cfg := c.config.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := errors.Join(c.registerErrs...); err != nil {
		return nil, err
	}
	if c.launcher == nil {
		return nil, errors.New("no browser launcher configured")
	}

	selected, err := c.schedule()
	if err != nil {
		return nil, err
	}

	result := &quizcheck.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: cfg.Now(),
	}
	logger := c.logger.With(zap.String("run_id", result.RunID))
	logger.Info("starting run",
		zap.Int("scenarios", len(selected)),
		zap.String("base_url", cfg.BaseURL),
		zap.Int("parallel", cfg.Parallel))

	reporter := quizcheck.NewConsoleReporter(c.output, !cfg.NoColor)
	if cfg.DisableReporter {
		reporter = quizcheck.NewNoopConsoleReporter()
	}
	hooks := quizcheck.NewHookExecutor(c.hooks...)
	artifacts := quizcheck.NewArtifacts(cfg.ScreenshotDir)

	hooks.BeforeAll()

	start := time.Now()
	var results []quizcheck.ScenarioResult
	switch {
	case c.testingT != nil:
		results = c.runAsSubtests(ctx, cfg, artifacts, reporter, hooks, logger, selected)
	case cfg.Parallel > 1:
		results = c.runParallel(ctx, cfg, artifacts, reporter, hooks, logger, selected)
	default:
		results = c.runSequential(ctx, cfg, artifacts, reporter, hooks, logger, selected)
	}

	result.Scenarios = results
	result.Duration = time.Since(start)
	result.Summary = reporter.GetSummary()

	reporter.PrintSummary()
	hooks.AfterAll(*result)

	if cfg.ReportPath != "" {
		if err := quizcheck.GenerateHTMLReport(cfg.ReportPath, *result); err != nil {
			logger.Error("could not write HTML report", zap.String("path", cfg.ReportPath), zap.Error(err))
		} else {
			logger.Info("HTML report written", zap.String("path", cfg.ReportPath))
		}
	}

	failed := len(result.Failed())
	logger.Info("run finished",
		zap.Int("passed", len(results)-failed),
		zap.Int("failed", failed),
		zap.Duration("duration", result.Duration))

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("run interrupted: %w", err)
	}
	if failed > 0 {
		return result, fmt.Errorf("%w: %d of %d", ErrScenariosFailed, failed, len(results))
	}
	return result, nil
}

func (c *CucumberRunner) runSequential(ctx context.Context, cfg *quizcheck.Config, artifacts *quizcheck.Artifacts,
	reporter *quizcheck.ConsoleReporter, hooks *quizcheck.HookExecutor, logger *zap.Logger, selected []scheduled,
) []quizcheck.ScenarioResult {
	results := make([]quizcheck.ScenarioResult, 0, len(selected))
	var currentFeature *gherkin_parser.Feature

	for _, s := range selected {
		if ctx.Err() != nil {
			break
		}
		if s.feature != currentFeature {
			currentFeature = s.feature
			reporter.FeatureStart(s.feature.Name())
		}

		res := c.runScenario(ctx, cfg, artifacts, reporter, hooks, logger, s)
		results = append(results, res)
		if !res.Passed && cfg.FailFast {
			logger.Warn("fail-fast: skipping remaining scenarios", zap.String("scenario", res.Scenario.Name))
			break
		}
	}
	return results
}

// runParallel starts up to cfg.Parallel scenarios at once. Each scenario
// reports into its own buffer which is flushed when it finishes.
func (c *CucumberRunner) runParallel(ctx context.Context, cfg *quizcheck.Config, artifacts *quizcheck.Artifacts,
	reporter *quizcheck.ConsoleReporter, hooks *quizcheck.HookExecutor, logger *zap.Logger, selected []scheduled,
) []quizcheck.ScenarioResult {
	results := make([]*quizcheck.ScenarioResult, len(selected))
	var failed atomic.Bool
	var flushMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Parallel)

	for i, s := range selected {
		if gctx.Err() != nil || (cfg.FailFast && failed.Load()) {
			break
		}
		g.Go(func() error {
			if cfg.FailFast && failed.Load() {
				return nil
			}
			buffered := quizcheck.NewBufferedReporter(c.output, !cfg.NoColor)
			if cfg.DisableReporter {
				buffered = quizcheck.NewNoopConsoleReporter()
			}
			buffered.FeatureStart(s.feature.Name())

			res := c.runScenario(gctx, cfg, artifacts, buffered, hooks, logger, s)
			results[i] = &res
			if !res.Passed {
				failed.Store(true)
			}

			flushMu.Lock()
			buffered.Flush()
			reporter.MergeSummary(buffered)
			flushMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]quizcheck.ScenarioResult, 0, len(selected))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (c *CucumberRunner) runAsSubtests(ctx context.Context, cfg *quizcheck.Config, artifacts *quizcheck.Artifacts,
	reporter *quizcheck.ConsoleReporter, hooks *quizcheck.HookExecutor, logger *zap.Logger, selected []scheduled,
) []quizcheck.ScenarioResult {
	results := make([]quizcheck.ScenarioResult, 0, len(selected))
	for _, s := range selected {
		var res quizcheck.ScenarioResult
		c.testingT.Run(s.scenario.Name, func(t *testing.T) {
			res = c.runScenario(ctx, cfg, artifacts, reporter, hooks, logger, s)
			if !res.Passed {
				t.Error(res.Error)
			}
		})
		results = append(results, res)
		if !res.Passed && cfg.FailFast {
			break
		}
	}
	return results
}

// runScenario acquires a session, runs the steps and releases the session
// on every path out.
func (c *CucumberRunner) runScenario(ctx context.Context, cfg *quizcheck.Config, artifacts *quizcheck.Artifacts,
	reporter quizcheck.Reporter, hooks *quizcheck.HookExecutor, logger *zap.Logger, s scheduled,
) (res quizcheck.ScenarioResult) {
	res = quizcheck.ScenarioResult{Scenario: s.scenario, StartedAt: time.Now()}
	logger = logger.With(zap.String("scenario", s.scenario.Name))
	reporter.ScenarioStart(s.scenario.Name)

	defer func() {
		res.Duration = time.Since(res.StartedAt)
		reporter.AddScenarioResult(res.Passed)
	}()

	page, err := c.launcher.Launch(ctx)
	if err != nil {
		logger.Error("could not acquire browser session", zap.Error(err))
		res.Error = err.Error()
		for _, step := range s.pickle.Steps {
			c.skipStep(&res, reporter, s.step(step))
		}
		return res
	}
	logger.Debug("browser session acquired")
	defer func() {
		if err := page.Close(); err != nil {
			logger.Warn("could not release browser session", zap.Error(err))
			return
		}
		logger.Debug("browser session released")
	}()

	stepLogger := cfg.Logger
	if stepLogger == nil {
		stepLogger = quizcheck.NewNoopLogger()
	}
	qc := quizcheck.New(
		quizcheck.WithContext(ctx),
		quizcheck.WithLogger(stepLogger),
		quizcheck.WithPage(page),
		quizcheck.WithConfig(cfg),
		quizcheck.WithArtifacts(artifacts),
		quizcheck.WithScenario(s.scenario),
	)

	hooks.BeforeScenario(qc)

	var scenarioErr error
	for _, pickleStep := range s.pickle.Steps {
		step := s.step(pickleStep)
		if scenarioErr != nil {
			c.skipStep(&res, reporter, step)
			continue
		}

		var table *quizcheck.Table
		var rows [][]string
		if pickleStep.Argument != nil && pickleStep.Argument.DataTable != nil {
			t := quizcheck.NewTableFromPickle(pickleStep.Argument.DataTable)
			table = &t
			rows = quizcheck.PickleTableCells(pickleStep.Argument.DataTable)
		}

		savedBefore := len(qc.SavedArtifacts())
		hooks.BeforeStep(qc, step)
		started := time.Now()
		execResult, stepErr := c.executor.Execute(qc, step.Text, table)
		duration := time.Since(started)
		hooks.AfterStep(qc, step, stepErr)

		stepResult := quizcheck.StepResult{
			Keyword:   step.Keyword,
			Text:      step.Text,
			Duration:  duration,
			StartedAt: started,
			MatchLocs: execResult.MatchLocs,
			Table:     rows,
		}
		if stepErr != nil {
			scenarioErr = fmt.Errorf("step %q failed: %w", step.Text, stepErr)
			stepResult.Status = quizcheck.StepFailed
			stepResult.Error = stepErr.Error()
			reporter.StepFailed(step.Keyword, step.Text, stepErr.Error(), execResult.MatchLocs)
			logger.Error("step failed", zap.String("step", step.Text), zap.Error(stepErr))
		} else {
			stepResult.Status = quizcheck.StepPassed
			reporter.StepPassed(step.Keyword, step.Text, execResult.MatchLocs)
		}
		if rows != nil {
			reporter.StepDataTable(rows)
		}
		for _, path := range qc.SavedArtifacts()[savedBefore:] {
			reporter.Artifact(path)
		}
		reporter.AddStepResult(stepResult.Status)
		res.Steps = append(res.Steps, stepResult)
	}

	hooks.AfterScenario(qc, scenarioErr)

	res.Artifacts = qc.SavedArtifacts()
	res.Passed = scenarioErr == nil
	if scenarioErr != nil {
		res.Error = scenarioErr.Error()
	}
	return res
}

func (c *CucumberRunner) skipStep(res *quizcheck.ScenarioResult, reporter quizcheck.Reporter, step quizcheck.Step) {
	reporter.StepSkipped(step.Keyword, step.Text)
	reporter.AddStepResult(quizcheck.StepSkipped)
	res.Steps = append(res.Steps, quizcheck.StepResult{
		Keyword: step.Keyword,
		Text:    step.Text,
		Status:  quizcheck.StepSkipped,
	})
}

func (s scheduled) step(ps *messages.PickleStep) quizcheck.Step {
	var ast *messages.Step
	if len(ps.AstNodeIds) > 0 {
		ast = s.astSteps[ps.AstNodeIds[0]]
	}
	return quizcheck.StepFromPickle(ps, ast)
}

// schedule loads the feature files and selects pickles by tag expression
// and name.
func (c *CucumberRunner) schedule() ([]scheduled, error) {
	var evaluator tagexpressions.Evaluatable
	if c.tagExpression != "" {
		e, err := tagexpressions.Parse(c.tagExpression)
		if err != nil {
			return nil, fmt.Errorf("invalid tag expression %q: %w", c.tagExpression, err)
		}
		evaluator = e
	}

	var nameFilter *regexp.Regexp
	if c.namePattern != "" {
		re, err := regexp.Compile(c.namePattern)
		if err != nil {
			return nil, fmt.Errorf("invalid name filter %q: %w", c.namePattern, err)
		}
		nameFilter = re
	}

	features, err := c.loadFeatures()
	if err != nil {
		return nil, err
	}

	selected := make([]scheduled, 0)
	for _, feature := range features {
		astSteps, astScenarios := indexDocument(feature.Document)
		for _, pickle := range feature.Pickles {
			tags := extractTagNames(pickle.Tags)
			if evaluator != nil && !evaluator.Evaluate(tags) {
				continue
			}
			if nameFilter != nil && !nameFilter.MatchString(pickle.Name) {
				continue
			}

			var astScenario *messages.Scenario
			if len(pickle.AstNodeIds) > 0 {
				astScenario = astScenarios[pickle.AstNodeIds[0]]
			}
			selected = append(selected, scheduled{
				feature:  feature,
				pickle:   pickle,
				scenario: quizcheck.ScenarioFromPickle(pickle, feature.Name(), astScenario),
				astSteps: astSteps,
			})
		}
	}
	return selected, nil
}

func (c *CucumberRunner) loadFeatures() ([]*gherkin_parser.Feature, error) {
	newId := func() string { return uuid.NewString() }

	if len(c.featureDirectories) == 0 && c.featuresFS != nil {
		return gherkin_parser.LoadFeaturesFS(c.featuresFS, newId)
	}

	directories := c.featureDirectories
	if len(directories) == 0 {
		directories = []string{"."}
	}
	files, err := gherkin_parser.SearchFeatureFilesIn(directories)
	if err != nil {
		return nil, err
	}
	return gherkin_parser.LoadFeatures(files, newId)
}

// indexDocument maps AST node ids to steps and scenarios so pickles can be
// traced back to their keywords and lines.
func indexDocument(doc *messages.GherkinDocument) (map[string]*messages.Step, map[string]*messages.Scenario) {
	steps := make(map[string]*messages.Step)
	scenarios := make(map[string]*messages.Scenario)
	if doc == nil || doc.Feature == nil {
		return steps, scenarios
	}

	addSteps := func(list []*messages.Step) {
		for _, s := range list {
			steps[s.Id] = s
		}
	}
	addChildren := func(background *messages.Background, scenario *messages.Scenario) {
		if background != nil {
			addSteps(background.Steps)
		}
		if scenario != nil {
			scenarios[scenario.Id] = scenario
			addSteps(scenario.Steps)
		}
	}

	for _, child := range doc.Feature.Children {
		addChildren(child.Background, child.Scenario)
		if child.Rule != nil {
			for _, rc := range child.Rule.Children {
				addChildren(rc.Background, rc.Scenario)
			}
		}
	}
	return steps, scenarios
}

// extractTagNames returns tag names including the @ prefix.
func extractTagNames(tags []*messages.PickleTag) []string {
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	return names
}
