package quizcheck

import (
	"fmt"
	"html"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// featureGroup holds the scenarios of one feature file.
type featureGroup struct {
	Name      string
	Passed    int
	Failed    int
	Duration  time.Duration
	Scenarios []scenarioView
}

type scenarioView struct {
	ScenarioResult
	Screenshots []screenshotLink
}

type screenshotLink struct {
	Name string
	Href string
}

type reportData struct {
	RunID         string
	Summary       ReporterSummary
	TotalDuration time.Duration
	ExecutedAt    time.Time
	Features      []featureGroup
}

// buildReportData groups scenarios by feature in execution order. Failed
// scenarios are listed before passed ones within a feature. Screenshot
// links are made relative to reportDir.
func buildReportData(result RunResult, reportDir string) reportData {
	var groups []featureGroup
	index := make(map[string]int)

	for _, s := range result.Scenarios {
		i, ok := index[s.Scenario.FeatureName]
		if !ok {
			i = len(groups)
			index[s.Scenario.FeatureName] = i
			groups = append(groups, featureGroup{Name: s.Scenario.FeatureName})
		}
		g := &groups[i]
		g.Duration += s.Duration
		if s.Passed {
			g.Passed++
		} else {
			g.Failed++
		}
		g.Scenarios = append(g.Scenarios, scenarioView{
			ScenarioResult: s,
			Screenshots:    screenshotLinks(s.Artifacts, reportDir),
		})
	}

	for i := range groups {
		scenarios := groups[i].Scenarios
		ordered := make([]scenarioView, 0, len(scenarios))
		for _, s := range scenarios {
			if !s.Passed {
				ordered = append(ordered, s)
			}
		}
		for _, s := range scenarios {
			if s.Passed {
				ordered = append(ordered, s)
			}
		}
		groups[i].Scenarios = ordered
	}

	return reportData{
		RunID:         result.RunID,
		Summary:       result.Summary,
		TotalDuration: result.Duration,
		ExecutedAt:    result.StartedAt,
		Features:      groups,
	}
}

func screenshotLinks(paths []string, reportDir string) []screenshotLink {
	links := make([]screenshotLink, 0, len(paths))
	for _, p := range paths {
		href := p
		if rel, err := filepath.Rel(reportDir, p); err == nil {
			href = rel
		}
		links = append(links, screenshotLink{
			Name: filepath.Base(p),
			Href: filepath.ToSlash(href),
		})
	}
	return links
}

// colorizeStepText returns safe HTML for a step's text with captured
// parameters wrapped in spans.
func colorizeStepText(step StepResult) template.HTML {
	cls := step.Status.String()
	span := func(class, s string) string {
		return fmt.Sprintf(`<span class="%s">%s</span>`, class, html.EscapeString(s))
	}

	if len(step.MatchLocs) == 0 {
		return template.HTML(span("step-text "+cls, step.Text))
	}

	var b strings.Builder
	cursor := 0
	for i := 0; i+1 < len(step.MatchLocs); i += 2 {
		start, end := step.MatchLocs[i], step.MatchLocs[i+1]
		if start < cursor || end > len(step.Text) || start > end {
			continue
		}
		if cursor < start {
			b.WriteString(span("step-text "+cls, step.Text[cursor:start]))
		}
		if step.Status == StepSkipped {
			b.WriteString(span("step-text skipped", step.Text[start:end]))
		} else {
			b.WriteString(span("step-param", step.Text[start:end]))
		}
		cursor = end
	}
	if cursor < len(step.Text) {
		b.WriteString(span("step-text "+cls, step.Text[cursor:]))
	}
	return template.HTML(b.String())
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%.0fµs", float64(d)/float64(time.Microsecond))
	case d < time.Second:
		return fmt.Sprintf("%.0fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

var reportFuncs = template.FuncMap{
	"colorizeStepText": colorizeStepText,
	"formatDuration":   formatDuration,
	"statusSymbol": func(s StepStatus) string {
		switch s {
		case StepPassed:
			return "✓"
		case StepFailed:
			return "✗"
		default:
			return "–"
		}
	},
	"scenarioClass": func(passed bool) string {
		if passed {
			return "passed"
		}
		return "failed"
	},
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04:05")
	},
}

var reportTemplate = template.Must(template.New("report").Funcs(reportFuncs).Parse(htmlTemplate))

// GenerateHTMLReport writes a self-contained HTML report of result to path.
// Screenshots are linked, not embedded.
func GenerateHTMLReport(path string, result RunResult) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("could not create report directory %q: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create report file %q: %w", path, err)
	}
	defer f.Close()

	if err := reportTemplate.Execute(f, buildReportData(result, dir)); err != nil {
		return fmt.Errorf("could not render HTML report: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Quiz Login and Register Report</title>
<style>
  * { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; background: #f8f9fa; color: #212529; line-height: 1.6; padding: 2rem; }
  h1 { font-size: 1.5rem; margin-bottom: 0.25rem; }
  h2 { font-size: 1.1rem; margin: 1.5rem 0 0.5rem; border-bottom: 2px solid #dee2e6; }
  .meta { font-size: 0.8rem; color: #868e96; margin-bottom: 1.5rem; }
  .summary { display: flex; gap: 1rem; flex-wrap: wrap; padding: 1rem; background: #fff; border-radius: 10px; border: 2px solid #2b8a3e; }
  .summary.has-failures { border-color: #c92a2a; background: #fff5f5; }
  .summary-item { text-align: center; min-width: 90px; }
  .number { font-size: 1.8rem; font-weight: 700; }
  .label { font-size: 0.7rem; text-transform: uppercase; color: #868e96; }
  .green { color: #2b8a3e; } .red { color: #c92a2a; } .yellow { color: #e67700; } .blue { color: #1864ab; }
  .scenario { margin-bottom: 0.5rem; background: #fff; border-radius: 8px; border: 1px solid #e9ecef; overflow: hidden; }
  .scenario.passed { border-left: 4px solid #69db7c; }
  .scenario.failed { border-left: 4px solid #ff6b6b; }
  .scenario-header { display: flex; justify-content: space-between; padding: 0.6rem 1rem; cursor: pointer; }
  .scenario-name { font-weight: 600; font-size: 0.9rem; }
  .tag { background: #e9ecef; border-radius: 4px; padding: 0.1rem 0.45rem; font-size: 0.68rem; }
  .body { display: none; background: #1e1f22; padding: 0.5rem 1rem; }
  .scenario.open .body { display: block; }
  .step { display: flex; gap: 0.5rem; font-family: "JetBrains Mono", monospace; font-size: 0.82rem; }
  .symbol.passed { color: #32cd32; } .symbol.failed { color: #ff4444; } .symbol.skipped { color: #e6b800; }
  .step-keyword { color: #CF8E6D; font-weight: 600; white-space: pre; }
  .step-text { color: #BCBEC4; } .step-text.skipped { color: #6F737A; }
  .step-param { color: #5C92FF; font-weight: 600; }
  .duration { margin-left: auto; color: #6F737A; font-size: 0.72rem; }
  .error { color: #ff4444; background: #2c1a1a; padding: 0.3rem 0.5rem; margin-left: 1.7rem; font-size: 0.78rem; white-space: pre-wrap; }
  .shots { display: flex; gap: 0.75rem; flex-wrap: wrap; padding: 0.75rem 0; }
  .shots a { color: #BCBEC4; font-size: 0.75rem; text-decoration: none; }
  .shots img { display: block; max-width: 280px; border: 1px solid #444; }
</style>
</head>
<body>
<h1>Quiz Login and Register Report</h1>
<div class="meta">Run {{.RunID}}{{if not .ExecutedAt.IsZero}}, executed at {{formatTime .ExecutedAt}}{{end}}</div>

<div class="summary{{if .Summary.ScenariosFailed}} has-failures{{end}}">
  <div class="summary-item"><div class="number blue">{{.Summary.ScenariosTotal}}</div><div class="label">Scenarios</div></div>
  <div class="summary-item"><div class="number green">{{.Summary.ScenariosPassed}}</div><div class="label">Passed</div></div>
  <div class="summary-item"><div class="number red">{{.Summary.ScenariosFailed}}</div><div class="label">Failed</div></div>
  <div class="summary-item"><div class="number blue">{{.Summary.StepsTotal}}</div><div class="label">Steps</div></div>
  <div class="summary-item"><div class="number yellow">{{.Summary.StepsSkipped}}</div><div class="label">Skipped</div></div>
  <div class="summary-item"><div class="number blue">{{formatDuration .TotalDuration}}</div><div class="label">Duration</div></div>
</div>

{{range .Features}}
<h2>{{.Name}} <span class="meta">{{.Passed}} passed, {{.Failed}} failed, {{formatDuration .Duration}}</span></h2>
{{range .Scenarios}}
<div class="scenario {{scenarioClass .Passed}}{{if not .Passed}} open{{end}}">
  <div class="scenario-header" onclick="this.parentElement.classList.toggle('open')">
    <div><span class="scenario-name">{{.Scenario.Name}}</span> {{range .Scenario.Tags}}<span class="tag">{{.}}</span> {{end}}</div>
    <div class="meta">{{formatDuration .Duration}}</div>
  </div>
  <div class="body">
    {{range .Steps}}
    <div class="step">
      <span class="symbol {{.Status}}">{{statusSymbol .Status}}</span>
      <span class="step-keyword">{{.Keyword}}</span>
      {{colorizeStepText .}}
      <span class="duration">{{formatDuration .Duration}}</span>
    </div>
    {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
    {{end}}
    {{if .Screenshots}}
    <div class="shots">
      {{range .Screenshots}}<a href="{{.Href}}"><img src="{{.Href}}" alt="{{.Name}}">{{.Name}}</a>{{end}}
    </div>
    {{end}}
  </div>
</div>
{{end}}
{{else}}
<div class="meta">No scenarios were executed.</div>
{{end}}
</body>
</html>
`
