package executor

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"

	"github.com/denizgursoy/quizcheck/pkg/quizcheck"
)

// ErrUndefinedStep is returned for step text no registered pattern matches.
var ErrUndefinedStep = errors.New("no matching step definition found")

var (
	contextType = reflect.TypeOf((*quizcheck.Context)(nil))
	tableType   = reflect.TypeOf(quizcheck.Table{})
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// StepDefinition holds a compiled regex pattern and its associated function
type StepDefinition struct {
	Pattern  *regexp.Regexp
	Function any

	takesTable bool
}

// StepExecutor matches step text against registered definitions and calls
// the first one that matches.
type StepExecutor struct {
	steps      []StepDefinition
	patternSet map[string]bool
}

func NewStepExecutor() *StepExecutor {
	return &StepExecutor{
		steps:      make([]StepDefinition, 0),
		patternSet: make(map[string]bool),
	}
}

// RegisterStep registers fn for pattern. fn must take *quizcheck.Context
// first, then one parameter per capture group, then optionally a
// quizcheck.Table; it may return an error.
func (e *StepExecutor) RegisterStep(pattern string, fn any) error {
	if e.patternSet[pattern] {
		return fmt.Errorf("duplicate step pattern: %s", pattern)
	}

	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid step pattern %q: %w", pattern, err)
	}

	fnType := reflect.TypeOf(fn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return fmt.Errorf("step handler must be a function, got %T", fn)
	}
	takesTable, err := validateSignature(fnType, compiled.NumSubexp())
	if err != nil {
		return fmt.Errorf("step %q: %w", pattern, err)
	}

	e.steps = append(e.steps, StepDefinition{
		Pattern:    compiled,
		Function:   fn,
		takesTable: takesTable,
	})
	e.patternSet[pattern] = true
	return nil
}

func validateSignature(fnType reflect.Type, groups int) (bool, error) {
	if fnType.IsVariadic() {
		return false, errors.New("variadic step handlers are not supported")
	}
	numIn := fnType.NumIn()
	if numIn == 0 || fnType.In(0) != contextType {
		return false, fmt.Errorf("first parameter must be %s", contextType)
	}

	takesTable := numIn > 1 && fnType.In(numIn-1) == tableType
	params := numIn - 1
	if takesTable {
		params--
	}
	if params != groups {
		return false, fmt.Errorf("handler takes %d argument(s) but the pattern has %d capture group(s)", params, groups)
	}
	for i := 1; i <= params; i++ {
		if !convertible(fnType.In(i).Kind()) {
			return false, fmt.Errorf("unsupported parameter type: %s", fnType.In(i))
		}
	}

	switch fnType.NumOut() {
	case 0:
	case 1:
		if fnType.Out(0) != errorType {
			return false, fmt.Errorf("handler must return error, got %s", fnType.Out(0))
		}
	default:
		return false, errors.New("handler must return at most an error")
	}
	return takesTable, nil
}

// Result describes one executed step.
type Result struct {
	// Pattern is the matched definition's expression; empty for undefined
	// steps.
	Pattern string

	// MatchLocs holds [start, end) byte offsets of each capture group in the
	// step text.
	MatchLocs []int
}

// Execute runs the definition matching text. table is passed to handlers
// that accept one.
func (e *StepExecutor) Execute(c *quizcheck.Context, text string, table *quizcheck.Table) (Result, error) {
	for _, def := range e.steps {
		locs := def.Pattern.FindStringSubmatchIndex(text)
		if locs == nil {
			continue
		}

		result := Result{Pattern: def.Pattern.String(), MatchLocs: locs[2:]}
		args := make([]string, 0, len(locs)/2-1)
		for i := 2; i+1 < len(locs); i += 2 {
			if locs[i] < 0 {
				args = append(args, "")
				continue
			}
			args = append(args, text[locs[i]:locs[i+1]])
		}

		return result, e.invoke(c, def, args, table)
	}

	return Result{}, fmt.Errorf("%w: %s", ErrUndefinedStep, text)
}

func (e *StepExecutor) invoke(c *quizcheck.Context, def StepDefinition, args []string, table *quizcheck.Table) (err error) {
	fnValue := reflect.ValueOf(def.Function)
	fnType := fnValue.Type()

	callArgs := make([]reflect.Value, 0, fnType.NumIn())
	callArgs = append(callArgs, reflect.ValueOf(c))
	for i, arg := range args {
		converted, convErr := convertArg(arg, fnType.In(i+1))
		if convErr != nil {
			return fmt.Errorf("failed to convert argument %q to %s: %w", arg, fnType.In(i+1), convErr)
		}
		callArgs = append(callArgs, converted)
	}
	if def.takesTable {
		var t quizcheck.Table
		if table != nil {
			t = *table
		}
		callArgs = append(callArgs, reflect.ValueOf(t))
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var assertion *quizcheck.AssertionError
		if rErr, ok := r.(error); ok && errors.As(rErr, &assertion) {
			err = assertion
			return
		}
		err = fmt.Errorf("step panicked: %v", r)
	}()

	results := fnValue.Call(callArgs)
	if len(results) == 1 && !results[0].IsNil() {
		return results[0].Interface().(error)
	}
	return nil
}

func convertible(kind reflect.Kind) bool {
	switch kind {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// convertArg converts a string argument to the target type
func convertArg(arg string, targetType reflect.Type) (reflect.Value, error) {
	v := reflect.New(targetType).Elem()

	switch targetType.Kind() {
	case reflect.String:
		v.SetString(arg)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(arg, 10, targetType.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(arg, 10, targetType.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetUint(n)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(arg, targetType.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(arg)
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetBool(b)

	default:
		return reflect.Value{}, fmt.Errorf("unsupported parameter type: %s", targetType.Kind())
	}
	return v, nil
}

// Patterns returns the registered expressions in registration order.
func (e *StepExecutor) Patterns() []string {
	patterns := make([]string, len(e.steps))
	for i, s := range e.steps {
		patterns[i] = s.Pattern.String()
	}
	return patterns
}
