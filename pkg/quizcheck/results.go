package quizcheck

import "time"

// StepStatus represents the execution outcome of a step.
type StepStatus int

const (
	StepPassed StepStatus = iota
	StepFailed
	// StepSkipped marks steps after the first failure of a scenario.
	StepSkipped
)

func (s StepStatus) String() string {
	switch s {
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// StepResult holds the execution result of a single step.
type StepResult struct {
	Keyword string
	Text    string
	Status  StepStatus

	// Error is empty unless the step failed.
	Error string

	// Duration and StartedAt are zero for skipped steps.
	Duration  time.Duration
	StartedAt time.Time

	// MatchLocs holds [start, end) byte offsets of each captured parameter
	// within Text, used to highlight parameters in reports.
	MatchLocs []int

	// Table is the raw DataTable attached to the step, if any.
	Table [][]string
}

// ScenarioResult holds the execution result of a single scenario.
type ScenarioResult struct {
	Scenario Scenario
	Passed   bool

	// Error is empty if the scenario passed.
	Error string

	// Duration covers session setup, hooks, steps and release.
	Duration  time.Duration
	StartedAt time.Time

	Steps []StepResult

	// Artifacts lists the screenshot files written by the scenario.
	Artifacts []string
}

// ReporterSummary tracks aggregate counters of a run.
type ReporterSummary struct {
	ScenariosTotal  int
	ScenariosPassed int
	ScenariosFailed int
	StepsTotal      int
	StepsPassed     int
	StepsFailed     int
	StepsSkipped    int
}

// Add merges other into s.
func (s *ReporterSummary) Add(other ReporterSummary) {
	s.ScenariosTotal += other.ScenariosTotal
	s.ScenariosPassed += other.ScenariosPassed
	s.ScenariosFailed += other.ScenariosFailed
	s.StepsTotal += other.StepsTotal
	s.StepsPassed += other.StepsPassed
	s.StepsFailed += other.StepsFailed
	s.StepsSkipped += other.StepsSkipped
}

// RunResult holds the complete results of a run.
type RunResult struct {
	// RunID identifies the run in logs and reports.
	RunID     string
	Scenarios []ScenarioResult
	Summary   ReporterSummary
	Duration  time.Duration
	StartedAt time.Time
}

// Failed returns the scenarios that did not pass.
func (r RunResult) Failed() []ScenarioResult {
	var failed []ScenarioResult
	for _, s := range r.Scenarios {
		if !s.Passed {
			failed = append(failed, s)
		}
	}
	return failed
}
