package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SettleMode selects how a page is given time to render after a submission.
type SettleMode string

const (
	// SettleFixed sleeps for the whole settle interval.
	SettleFixed SettleMode = "fixed"
	// SettleNavigation waits until the submitted document has been replaced
	// and the new one finished loading, never longer than the interval.
	SettleNavigation SettleMode = "navigation"
)

// ParseSettleMode converts a mode name. An empty name selects SettleNavigation.
func ParseSettleMode(mode string) (SettleMode, error) {
	switch SettleMode(strings.ToLower(strings.TrimSpace(mode))) {
	case "", SettleNavigation:
		return SettleNavigation, nil
	case SettleFixed:
		return SettleFixed, nil
	default:
		return "", fmt.Errorf("unknown settle mode %q", mode)
	}
}

// Settler bridges the gap between submitting a form and capturing its
// result. Arm must be called before the click, Wait after it.
type Settler struct {
	page     Page
	mode     SettleMode
	interval time.Duration
	poll     time.Duration
	token    string
}

// NewSettler returns a settler for page. The interval bounds Wait in both
// modes.
func NewSettler(page Page, mode SettleMode, interval time.Duration) *Settler {
	return &Settler{
		page:     page,
		mode:     mode,
		interval: interval,
		poll:     DefaultPollInterval,
	}
}

// Arm tags the current document so Wait can tell when it was replaced.
func (s *Settler) Arm(ctx context.Context) error {
	if s.mode != SettleNavigation {
		return nil
	}
	token := uuid.NewString()
	if err := s.page.MarkDocument(ctx, token); err != nil {
		return fmt.Errorf("could not mark document before submit: %w", err)
	}
	s.token = token
	return nil
}

// Wait blocks until the page settled or the interval elapsed. Running out
// of time is not an error: the caller captures whatever is rendered.
func (s *Settler) Wait(ctx context.Context) error {
	if s.mode == SettleFixed {
		return sleep(ctx, s.interval)
	}

	err := Poll(ctx, s.poll, s.interval, func(pollCtx context.Context) (bool, error) {
		if s.token != "" {
			marked, err := s.page.DocumentMarked(pollCtx, s.token)
			if err != nil || marked {
				return false, nil
			}
		}
		state, err := s.page.ReadyState(pollCtx)
		if err != nil {
			return false, nil
		}
		return state == "complete", nil
	})
	if errors.Is(err, ErrPollTimeout) {
		return nil
	}
	return err
}
