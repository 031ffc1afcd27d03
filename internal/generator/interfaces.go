//go:generate mockgen -source=interfaces.go -destination=interface_mock.go -package=generator
package generator

import "github.com/denizgursoy/quizcheck/pkg/quizcheck"

type (
	// ScenarioSource lists the scenarios a test file is generated for.
	ScenarioSource interface {
		Discover() ([]quizcheck.Scenario, error)
	}
)
