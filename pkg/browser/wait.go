package browser

import (
	"context"
	"time"
)

// DefaultPollInterval is the pause between two checks of a Poll loop.
const DefaultPollInterval = 100 * time.Millisecond

// CheckFunc reports whether a polled condition holds. A non-nil error aborts
// the poll.
type CheckFunc func(ctx context.Context) (bool, error)

// Poll runs check until it reports true, the timeout elapses or ctx is done.
// check always runs at least once. On timeout Poll returns ErrPollTimeout;
// when ctx ends first it returns the context error.
func Poll(ctx context.Context, interval, timeout time.Duration, check CheckFunc) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for first := true; ; first = false {
		if !first {
			timer.Reset(interval)
		}
		ok, err := check(pollCtx)
		if ok {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if pollCtx.Err() != nil {
			return ErrPollTimeout
		}
		if err != nil {
			return err
		}

		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrPollTimeout
		case <-timer.C:
		}
	}
}

// sleep pauses for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
