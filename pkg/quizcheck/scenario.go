package quizcheck

import messages "github.com/cucumber/messages/go/v21"

// Scenario holds metadata about one compiled scenario.
type Scenario struct {
	// ID is the pickle id, unique within a run.
	ID string

	// Name is the scenario name as written in the feature file, for example
	// "login_sql_injection".
	Name string

	// FeatureName is the name of the enclosing feature.
	FeatureName string

	// URI is the feature file the scenario comes from.
	URI string

	// Tags includes tags inherited from the feature and rule.
	Tags []string

	// Line is the line of the Scenario keyword; zero when unknown.
	Line int64
}

// Step holds metadata about one step of a scenario.
type Step struct {
	// Keyword includes its trailing space ("Given ", "And ").
	Keyword string
	Text    string
	Line    int64
}

// ScenarioFromPickle builds scenario metadata from a compiled pickle. The
// AST scenario, when known, supplies the source line.
func ScenarioFromPickle(p *messages.Pickle, featureName string, ast *messages.Scenario) Scenario {
	tags := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		tags[i] = t.Name
	}
	var line int64
	if ast != nil && ast.Location != nil {
		line = ast.Location.Line
	}
	return Scenario{
		ID:          p.Id,
		Name:        p.Name,
		FeatureName: featureName,
		URI:         p.Uri,
		Tags:        tags,
		Line:        line,
	}
}

// StepFromPickle builds step metadata. The keyword and line come from the
// AST step, which is nil for steps the runner could not trace back.
func StepFromPickle(s *messages.PickleStep, ast *messages.Step) Step {
	step := Step{Text: s.Text, Keyword: "* "}
	if ast != nil {
		step.Keyword = ast.Keyword
		if ast.Location != nil {
			step.Line = ast.Location.Line
		}
	}
	return step
}
