package quizcheck

import (
	"context"

	"github.com/denizgursoy/quizcheck/pkg/browser"
)

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger for the context.
func WithLogger(logger Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

// WithContext sets the underlying context.Context.
func WithContext(ctx context.Context) Option {
	return func(c *Context) {
		c.ctx = ctx
	}
}

// WithData sets initial scenario data.
func WithData(data map[string]any) Option {
	return func(c *Context) {
		c.data.values = data
	}
}

// WithPage attaches a browser session.
func WithPage(page browser.Page) Option {
	return func(c *Context) {
		c.page = page
	}
}

// WithConfig sets the run configuration.
func WithConfig(cfg *Config) Option {
	return func(c *Context) {
		c.config = cfg
	}
}

// WithArtifacts sets the store screenshots are written to. Scenarios of
// one run share a store so names stay unique across the run.
func WithArtifacts(artifacts *Artifacts) Option {
	return func(c *Context) {
		c.artifacts = artifacts
	}
}

// WithScenario sets the metadata of the running scenario.
func WithScenario(scenario Scenario) Option {
	return func(c *Context) {
		c.scenario = scenario
	}
}
