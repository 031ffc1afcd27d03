// Package quizcheck provides the execution context, results and reporting
// shared by the scenario runner and the step definitions.
package quizcheck

import (
	"context"
	"fmt"

	"github.com/denizgursoy/quizcheck/pkg/browser"
)

// Logger is the interface for structured logging within step functions.
// Arguments after the message are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Data provides scenario-scoped state shared between steps.
type Data struct {
	t      *panicT
	values map[string]any
}

// Set stores a value in the scenario-scoped data store.
func (d *Data) Set(key string, value any) {
	d.values[key] = value
}

// Get retrieves a value from the scenario-scoped data store.
func (d *Data) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// MustGet retrieves a value or fails the step if it is missing.
func (d *Data) MustGet(key string) any {
	v, ok := d.values[key]
	if !ok {
		d.t.Errorf("key %q not found in scenario data", key)
	}
	return v
}

// String returns the value stored under key formatted as a string.
func (d *Data) String(key string) (string, bool) {
	v, ok := d.values[key]
	if !ok {
		return "", false
	}
	if s, isString := v.(string); isString {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Context is passed as the first argument of every step function. It owns
// nothing itself: the runner acquires the session before the first step and
// releases it after the last one.
type Context struct {
	ctx       context.Context
	logger    Logger
	assert    *Assert
	data      *Data
	page      browser.Page
	config    *Config
	artifacts *Artifacts
	scenario  Scenario

	saved []string
}

// New creates a new Context with the given options.
func New(opts ...Option) *Context {
	t := &panicT{}
	c := &Context{
		ctx:    context.Background(),
		assert: &Assert{t: t},
		data:   &Data{t: t, values: make(map[string]any)},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = &noopLogger{}
	}
	if c.config == nil {
		c.config = DefaultConfig()
	}
	if c.artifacts == nil {
		c.artifacts = NewArtifacts(c.config.ScreenshotDir)
	}
	return c
}

// Context returns the underlying context.Context.
func (c *Context) Context() context.Context {
	return c.ctx
}

// WithContext replaces the underlying context.Context.
func (c *Context) WithContext(ctx context.Context) {
	c.ctx = ctx
}

func (c *Context) Logger() Logger {
	return c.logger
}

func (c *Context) Assert() *Assert {
	return c.assert
}

func (c *Context) Data() *Data {
	return c.data
}

// Page returns the browser session of the running scenario. Steps fail when
// the scenario has no session.
func (c *Context) Page() browser.Page {
	if c.page == nil {
		c.assert.Fail("no browser session attached to scenario %q", c.scenario.Name)
	}
	return c.page
}

// SetPage attaches the scenario's browser session.
func (c *Context) SetPage(page browser.Page) {
	c.page = page
}

func (c *Context) Config() *Config {
	return c.config
}

func (c *Context) Artifacts() *Artifacts {
	return c.artifacts
}

// SaveArtifact writes data to the artifact store and records the path as
// produced by this scenario.
func (c *Context) SaveArtifact(name string, data []byte) (string, error) {
	path, err := c.artifacts.Save(name, data)
	if err != nil {
		return "", err
	}
	c.saved = append(c.saved, path)
	return path, nil
}

// SavedArtifacts returns the paths written through SaveArtifact, in order.
func (c *Context) SavedArtifacts() []string {
	out := make([]string, len(c.saved))
	copy(out, c.saved)
	return out
}

// Scenario returns the metadata of the running scenario.
func (c *Context) Scenario() Scenario {
	return c.scenario
}

// noopLogger discards all log messages.
type noopLogger struct{}

func (n *noopLogger) Debug(msg string, args ...any) {}
func (n *noopLogger) Info(msg string, args ...any)  {}
func (n *noopLogger) Warn(msg string, args ...any)  {}
func (n *noopLogger) Error(msg string, args ...any) {}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

// AssertionError is the panic value raised by a failed assertion. The step
// executor recovers it and fails the step with Message.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return e.Message
}

// panicT panics on test failure.
type panicT struct{}

func (p *panicT) Errorf(format string, args ...any) {
	panic(&AssertionError{Message: fmt.Sprintf(format, args...)})
}
