package quizcheck

import "sort"

// Hooks holds lifecycle callbacks run around scenarios and steps.
// All registered hooks run, sorted by Order.
type Hooks struct {
	// Order determines execution order (lower = runs first). Hooks with the
	// same Order run in registration order.
	Order int

	BeforeAll func()
	AfterAll  func(RunResult)

	// BeforeScenario runs after the browser session was acquired, so the
	// hook may already use c.Page().
	BeforeScenario func(c *Context)

	// AfterScenario runs before the session is released. err is nil when the
	// scenario passed.
	AfterScenario func(c *Context, err error)

	BeforeStep func(c *Context, step Step)
	AfterStep  func(c *Context, step Step, err error)
}

// SortHooks returns hooks sorted by Order without touching the input.
func SortHooks(hooks []*Hooks) []*Hooks {
	sorted := make([]*Hooks, len(hooks))
	copy(sorted, hooks)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	return sorted
}

// HookExecutor runs a fixed, ordered set of hooks.
type HookExecutor struct {
	hooks []*Hooks
}

// NewHookExecutor drops nil hooks and sorts the rest.
func NewHookExecutor(hooks ...*Hooks) *HookExecutor {
	valid := make([]*Hooks, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			valid = append(valid, h)
		}
	}

	return &HookExecutor{
		hooks: SortHooks(valid),
	}
}

func (e *HookExecutor) BeforeAll() {
	for _, h := range e.hooks {
		if h.BeforeAll != nil {
			h.BeforeAll()
		}
	}
}

func (e *HookExecutor) AfterAll(result RunResult) {
	for _, h := range e.hooks {
		if h.AfterAll != nil {
			h.AfterAll(result)
		}
	}
}

func (e *HookExecutor) BeforeScenario(c *Context) {
	for _, h := range e.hooks {
		if h.BeforeScenario != nil {
			h.BeforeScenario(c)
		}
	}
}

func (e *HookExecutor) AfterScenario(c *Context, err error) {
	for _, h := range e.hooks {
		if h.AfterScenario != nil {
			h.AfterScenario(c, err)
		}
	}
}

func (e *HookExecutor) BeforeStep(c *Context, step Step) {
	for _, h := range e.hooks {
		if h.BeforeStep != nil {
			h.BeforeStep(c, step)
		}
	}
}

func (e *HookExecutor) AfterStep(c *Context, step Step, err error) {
	for _, h := range e.hooks {
		if h.AfterStep != nil {
			h.AfterStep(c, step, err)
		}
	}
}
