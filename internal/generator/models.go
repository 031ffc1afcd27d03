package generator

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"

	"github.com/denizgursoy/quizcheck/pkg/quizcheck"
)

const appPackage = "github.com/denizgursoy/quizcheck/internal/app"

type (
	// TestCase is one generated test function.
	TestCase struct {
		FuncName     string
		ScenarioName string
		FeatureName  string
	}

	Output struct {
		PackageName string // Defaults to "main" when empty
		BuildTag    string // Build constraint expression, e.g. "e2e"; none when empty
		Tests       []TestCase
	}
)

// NewOutput builds one test case per scenario, in scenario order. Names
// that collide after conversion get a numeric suffix.
func NewOutput(packageName, buildTag string, scenarios []quizcheck.Scenario) *Output {
	out := &Output{PackageName: packageName, BuildTag: buildTag}
	seen := make(map[string]int)
	for _, s := range scenarios {
		name := TestName(s.Name)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s%d", name, n)
		}
		out.Tests = append(out.Tests, TestCase{
			FuncName:     name,
			ScenarioName: s.Name,
			FeatureName:  s.FeatureName,
		})
	}
	return out
}

// TestName converts a scenario name such as "login_sql_injection" into an
// exported test function name ("TestLoginSqlInjection").
func TestName(scenario string) string {
	var b strings.Builder
	b.WriteString("Test")
	upper := true
	for _, r := range scenario {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			b.WriteRune(r)
		default:
			upper = true
		}
	}
	return b.String()
}

func (o *Output) Generate(writer io.Writer) error {
	pkgName := o.PackageName
	if pkgName == "" {
		pkgName = "main"
	}
	file := jen.NewFile(pkgName)
	file.HeaderComment("Code generated by quizcheck generate. DO NOT EDIT.")

	for _, tc := range o.Tests {
		doc := fmt.Sprintf("%s runs the %s scenario", tc.FuncName, tc.ScenarioName)
		if tc.FeatureName != "" {
			doc += " of the " + tc.FeatureName + " feature"
		}
		file.Comment(doc + ".")
		file.Func().Id(tc.FuncName).Params(
			jen.Id("t").Op("*").Qual("testing", "T"),
		).Block(
			jen.Qual(appPackage, "RunScenarioForTest").Call(jen.Id("t"), jen.Lit(tc.ScenarioName)),
		)
		file.Line()
	}

	var buf bytes.Buffer
	if o.BuildTag != "" {
		// a build constraint must be separated from the rest of the header
		buf.WriteString("//go:build " + o.BuildTag + "\n\n")
	}
	if err := file.Render(&buf); err != nil {
		return fmt.Errorf("could not render test file: %w", err)
	}
	_, err := writer.Write(buf.Bytes())
	return err
}
