package browser

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSessionClosed is returned by every Page method called after Close.
	ErrSessionClosed = errors.New("browser session is closed")

	// ErrPollTimeout is returned by Poll when the condition never held.
	ErrPollTimeout = errors.New("condition not met before timeout")
)

// LaunchError reports that the browser binary could not be started or did
// not answer in time.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("could not launch browser: %v", e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// NotFoundError reports that no element matched a selector within the wait
// window.
type NotFoundError struct {
	Selector Selector
	Timeout  time.Duration
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("element %s not found within %s", e.Selector, e.Timeout)
}
