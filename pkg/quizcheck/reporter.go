package quizcheck

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ANSI color codes
const (
	colorReset   = "\033[0m"
	colorGreen   = "\033[32m"
	colorRed     = "\033[31m"
	colorYellow  = "\033[33m"
	colorKeyword = "\033[38;2;207;142;109m"
	colorText    = "\033[38;2;188;190;196m"
	colorParam   = "\033[38;2;92;146;255m"
	colorHeader  = "\033[38;2;199;125;187m"
	colorDim     = "\033[38;2;111;115;122m"
)

const (
	symbolPass = "✓"
	symbolFail = "✗"
	symbolSkip = "-"
)

// Reporter receives progress events of a run.
type Reporter interface {
	FeatureStart(name string)
	ScenarioStart(name string)

	// matchLocs holds [start, end) offsets of captured parameters within
	// text; nil when unknown.
	StepPassed(keyword, text string, matchLocs []int)
	StepFailed(keyword, text, errMsg string, matchLocs []int)
	StepSkipped(keyword, text string)

	// StepDataTable prints the DataTable of the step reported just before.
	StepDataTable(rows [][]string)

	// Artifact reports a screenshot written by the current scenario.
	Artifact(path string)

	AddScenarioResult(passed bool)
	AddStepResult(status StepStatus)

	// Flush writes accumulated output of buffered reporters.
	Flush()
}

// ConsoleReporter prints Gherkin-style progress lines.
type ConsoleReporter struct {
	out       io.Writer
	useColors bool
	buffer    *strings.Builder
	disabled  bool

	mu      sync.Mutex
	summary ReporterSummary
}

// NewConsoleReporter creates a reporter that writes directly to out.
func NewConsoleReporter(out io.Writer, useColors bool) *ConsoleReporter {
	return &ConsoleReporter{out: out, useColors: useColors}
}

// NewBufferedReporter creates a reporter that keeps its output until Flush,
// so scenarios running in parallel do not interleave.
func NewBufferedReporter(out io.Writer, useColors bool) *ConsoleReporter {
	return &ConsoleReporter{out: out, useColors: useColors, buffer: &strings.Builder{}}
}

// NewNoopConsoleReporter suppresses all output but still counts results.
func NewNoopConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: io.Discard, disabled: true}
}

func (r *ConsoleReporter) writeln(s string) {
	if r.disabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.buffer != nil {
		r.buffer.WriteString(s + "\n")
		return
	}
	fmt.Fprintln(r.out, s)
}

func (r *ConsoleReporter) color(c, s string) string {
	if r.useColors {
		return c + s + colorReset
	}
	return s
}

func (r *ConsoleReporter) FeatureStart(name string) {
	r.writeln("")
	r.writeln(r.color(colorKeyword, "Feature:") + " " + r.color(colorText, name))
}

func (r *ConsoleReporter) ScenarioStart(name string) {
	r.writeln("")
	r.writeln("  " + r.color(colorKeyword, "Scenario:") + " " + r.color(colorText, name))
}

func (r *ConsoleReporter) stepLine(keyword, text string, matchLocs []int, symbol string) string {
	plainWidth := len("    ") + len(keyword) + len(text)
	padding := ""
	if plainWidth < 72 {
		padding = strings.Repeat(" ", 72-plainWidth)
	}
	return "    " + r.color(colorKeyword, keyword) + r.highlight(text, matchLocs) + padding + " " + symbol
}

// highlight colors captured parameters of text. Plain text is returned
// when colors are off or no match locations are known.
func (r *ConsoleReporter) highlight(text string, matchLocs []int) string {
	if !r.useColors {
		return text
	}
	var b strings.Builder
	cursor := 0
	for i := 0; i+1 < len(matchLocs); i += 2 {
		start, end := matchLocs[i], matchLocs[i+1]
		if start < cursor || end > len(text) || start >= end {
			continue
		}
		b.WriteString(colorText + text[cursor:start] + colorReset)
		b.WriteString(colorParam + text[start:end] + colorReset)
		cursor = end
	}
	if cursor < len(text) {
		b.WriteString(colorText + text[cursor:] + colorReset)
	}
	return b.String()
}

func (r *ConsoleReporter) StepPassed(keyword, text string, matchLocs []int) {
	r.writeln(r.stepLine(keyword, text, matchLocs, r.color(colorGreen, symbolPass)))
}

func (r *ConsoleReporter) StepFailed(keyword, text, errMsg string, matchLocs []int) {
	r.writeln(r.stepLine(keyword, text, matchLocs, r.color(colorRed, symbolFail)))
	if errMsg == "" {
		return
	}
	for _, line := range strings.Split(errMsg, "\n") {
		r.writeln(r.color(colorRed, "      "+line))
	}
}

func (r *ConsoleReporter) StepSkipped(keyword, text string) {
	line := "    " + keyword + text
	if r.useColors {
		line = "    " + r.color(colorDim, keyword+text)
	}
	r.writeln(line + " " + r.color(colorYellow, symbolSkip))
}

// StepDataTable prints rows with aligned columns. The first row uses the
// header color.
func (r *ConsoleReporter) StepDataTable(rows [][]string) {
	widths := make([]int, 0)
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], len(cell))
		}
	}

	pipe := r.color(colorKeyword, "|")
	for rowIdx, row := range rows {
		cellColor := colorParam
		if rowIdx == 0 && len(rows) > 1 {
			cellColor = colorHeader
		}
		var b strings.Builder
		b.WriteString("      " + pipe)
		for i, cell := range row {
			b.WriteString(" " + r.color(cellColor, fmt.Sprintf("%-*s", widths[i], cell)) + " " + pipe)
		}
		r.writeln(b.String())
	}
}

func (r *ConsoleReporter) Artifact(path string) {
	r.writeln(r.color(colorDim, "      saved "+path))
}

func (r *ConsoleReporter) AddScenarioResult(passed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.ScenariosTotal++
	if passed {
		r.summary.ScenariosPassed++
	} else {
		r.summary.ScenariosFailed++
	}
}

func (r *ConsoleReporter) AddStepResult(status StepStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.StepsTotal++
	switch status {
	case StepPassed:
		r.summary.StepsPassed++
	case StepFailed:
		r.summary.StepsFailed++
	case StepSkipped:
		r.summary.StepsSkipped++
	}
}

func (r *ConsoleReporter) GetSummary() ReporterSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// MergeSummary adds the counters of other, typically a buffered reporter
// of one parallel scenario.
func (r *ConsoleReporter) MergeSummary(other *ConsoleReporter) {
	summary := other.GetSummary()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Add(summary)
}

// PrintSummary prints the scenario and step totals.
func (r *ConsoleReporter) PrintSummary() {
	s := r.GetSummary()

	r.writeln("")
	r.writeln(r.summaryLine(fmt.Sprintf("%d scenario(s)", s.ScenariosTotal),
		countPart{s.ScenariosPassed, "passed", colorGreen},
		countPart{s.ScenariosFailed, "failed", colorRed},
	))
	r.writeln(r.summaryLine(fmt.Sprintf("%d step(s)", s.StepsTotal),
		countPart{s.StepsPassed, "passed", colorGreen},
		countPart{s.StepsFailed, "failed", colorRed},
		countPart{s.StepsSkipped, "skipped", colorYellow},
	))
}

type countPart struct {
	n     int
	label string
	color string
}

func (r *ConsoleReporter) summaryLine(head string, parts ...countPart) string {
	shown := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.n > 0 {
			shown = append(shown, r.color(p.color, fmt.Sprintf("%d %s", p.n, p.label)))
		}
	}
	if len(shown) == 0 {
		return head
	}
	return head + " (" + strings.Join(shown, ", ") + ")"
}

// Flush writes buffered output in one piece.
func (r *ConsoleReporter) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.buffer == nil || r.buffer.Len() == 0 {
		return
	}
	io.WriteString(r.out, r.buffer.String())
	r.buffer.Reset()
}

// noopReporter discards all output
type noopReporter struct{}

// NewNoopReporter creates a reporter that discards everything.
func NewNoopReporter() Reporter {
	return &noopReporter{}
}

func (r *noopReporter) FeatureStart(name string)                               {}
func (r *noopReporter) ScenarioStart(name string)                              {}
func (r *noopReporter) StepPassed(keyword, text string, matchLocs []int)       {}
func (r *noopReporter) StepFailed(keyword, text, errMsg string, matchLocs []int) {}
func (r *noopReporter) StepSkipped(keyword, text string)                       {}
func (r *noopReporter) StepDataTable(rows [][]string)                          {}
func (r *noopReporter) Artifact(path string)                                   {}
func (r *noopReporter) AddScenarioResult(passed bool)                          {}
func (r *noopReporter) AddStepResult(status StepStatus)                        {}
func (r *noopReporter) Flush()                                                 {}
