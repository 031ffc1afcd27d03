package quizcheck

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Assert provides fail-fast assertions for step functions. A failed
// assertion aborts the step; the executor turns it into a step failure.
type Assert struct {
	t *panicT
}

// Equal asserts expected == actual using reflect.DeepEqual.
func (a *Assert) Equal(expected, actual any, msgAndArgs ...any) {
	if !reflect.DeepEqual(expected, actual) {
		a.failf(msgAndArgs, "not equal:\n\texpected: %v\n\tactual:   %v", expected, actual)
	}
}

func (a *Assert) NotEqual(expected, actual any, msgAndArgs ...any) {
	if reflect.DeepEqual(expected, actual) {
		a.failf(msgAndArgs, "expected values to differ, both are: %v", expected)
	}
}

func (a *Assert) True(condition bool, msgAndArgs ...any) {
	if !condition {
		a.failf(msgAndArgs, "expected true, got false")
	}
}

func (a *Assert) False(condition bool, msgAndArgs ...any) {
	if condition {
		a.failf(msgAndArgs, "expected false, got true")
	}
}

func (a *Assert) NoError(err error, msgAndArgs ...any) {
	if err != nil {
		a.failf(msgAndArgs, "unexpected error: %v", err)
	}
}

// ErrorIs asserts that err matches target using errors.Is.
func (a *Assert) ErrorIs(err, target error, msgAndArgs ...any) {
	if !errors.Is(err, target) {
		a.failf(msgAndArgs, "expected error %v, got: %v", target, err)
	}
}

// Contains asserts that s contains substr.
func (a *Assert) Contains(s, substr string, msgAndArgs ...any) {
	if !strings.Contains(s, substr) {
		a.failf(msgAndArgs, "%q does not contain %q", truncate(s, 200), substr)
	}
}

func (a *Assert) NotContains(s, substr string, msgAndArgs ...any) {
	if strings.Contains(s, substr) {
		a.failf(msgAndArgs, "%q should not contain %q", truncate(s, 200), substr)
	}
}

// HasSuffix asserts that s ends with suffix.
func (a *Assert) HasSuffix(s, suffix string, msgAndArgs ...any) {
	if !strings.HasSuffix(s, suffix) {
		a.failf(msgAndArgs, "%q does not end with %q", s, suffix)
	}
}

// NotEmpty asserts that a string, slice, map, array or channel has a
// non-zero length.
func (a *Assert) NotEmpty(collection any, msgAndArgs ...any) {
	rv := reflect.ValueOf(collection)
	switch rv.Kind() {
	case reflect.Array, reflect.Chan, reflect.Map, reflect.Slice, reflect.String:
		if rv.Len() == 0 {
			a.failf(msgAndArgs, "expected a non-empty value")
		}
	default:
		a.failf(msgAndArgs, "cannot get length of type %T", collection)
	}
}

// Fail fails the step with the given message.
func (a *Assert) Fail(msgAndArgs ...any) {
	msg := "step failed"
	if len(msgAndArgs) > 0 {
		msg = formatMsgAndArgs(msgAndArgs...)
	}
	a.t.Errorf("%s", msg)
}

func (a *Assert) failf(msgAndArgs []any, format string, formatArgs ...any) {
	msg := fmt.Sprintf(format, formatArgs...)
	if len(msgAndArgs) > 0 {
		msg += ": " + formatMsgAndArgs(msgAndArgs...)
	}
	a.t.Errorf("%s", msg)
}

// formatMsgAndArgs treats a leading string as a format for the rest.
func formatMsgAndArgs(msgAndArgs ...any) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if s, ok := msgAndArgs[0].(string); ok {
		if len(msgAndArgs) == 1 {
			return s
		}
		return fmt.Sprintf(s, msgAndArgs[1:]...)
	}
	return fmt.Sprint(msgAndArgs...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
