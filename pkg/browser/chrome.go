package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	DefaultLaunchTimeout     = 30 * time.Second
	DefaultNavigationTimeout = 30 * time.Second

	// markerVariable is the window property used to tell one document from
	// the next across a form submission.
	markerVariable = "__quizcheckMarker"
)

// ChromeOptions configures the Chrome instances started by ChromeLauncher.
type ChromeOptions struct {
	Headless          bool
	ExecPath          string
	Flags             []string
	WindowWidth       int
	WindowHeight      int
	LaunchTimeout     time.Duration
	NavigationTimeout time.Duration
	PollInterval      time.Duration
	Logger            *zap.Logger
}

// ChromeLauncher starts one fresh Chrome process per Launch call.
type ChromeLauncher struct {
	opts ChromeOptions
}

// NewChromeLauncher returns a launcher using opts, filling unset timeouts
// with their defaults.
func NewChromeLauncher(opts ChromeOptions) *ChromeLauncher {
	if opts.LaunchTimeout <= 0 {
		opts.LaunchTimeout = DefaultLaunchTimeout
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = 1280, 800
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &ChromeLauncher{opts: opts}
}

// allocatorOptions builds the command line for a CI friendly Chrome: no
// sandbox and no /dev/shm usage, plus any extra flags from the config.
func (l *ChromeLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.WindowSize(l.opts.WindowWidth, l.opts.WindowHeight),
	)
	if l.opts.Headless {
		opts = append(opts, chromedp.DisableGPU)
	}
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}

	for _, arg := range l.opts.Flags {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}

// Launch starts Chrome and waits until it answers the DevTools protocol.
// The browser lives until Close is called on the returned page or ctx is
// cancelled.
func (l *ChromeLauncher) Launch(ctx context.Context) (Page, error) {
	log := l.opts.Logger.Named("browser")

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Sugar().Debugf))

	// The first Run starts the process. Its context must not carry the
	// launch deadline or the browser would die with it.
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(tabCtx)
	}()

	timer := time.NewTimer(l.opts.LaunchTimeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-started:
	case <-timer.C:
		err = fmt.Errorf("no answer within %s", l.opts.LaunchTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		tabCancel()
		allocCancel()
		return nil, &LaunchError{Err: err}
	}

	log.Debug("Browser session started.")
	return &ChromeSession{
		ctx:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		opts:        l.opts,
		logger:      log,
	}, nil
}

// ChromeSession is a Page backed by one Chrome process.
type ChromeSession struct {
	ctx         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	opts        ChromeOptions
	logger      *zap.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// run executes actions on the session's tab, stopping early when ctx ends.
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *ChromeSession) runWithTimeout(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.run(opCtx, actions...)
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	if err := s.runWithTimeout(ctx, s.opts.NavigationTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("could not navigate to %s: %w", url, err)
	}
	return nil
}

// Find polls the document until sel matches an element or timeout elapses.
// Query errors while a new document is loading count as "not yet present".
func (s *ChromeSession) Find(ctx context.Context, sel Selector, timeout time.Duration) (*Element, error) {
	query, by, err := sel.query()
	if err != nil {
		return nil, err
	}

	var found *cdp.Node
	err = Poll(ctx, s.opts.PollInterval, timeout, func(pollCtx context.Context) (bool, error) {
		var nodes []*cdp.Node
		if err := s.run(pollCtx, chromedp.Nodes(query, &nodes, by, chromedp.AtLeast(0))); err != nil {
			if errors.Is(err, ErrSessionClosed) {
				return false, err
			}
			return false, nil
		}
		if len(nodes) == 0 {
			return false, nil
		}
		found = nodes[0]
		return true, nil
	})
	if errors.Is(err, ErrPollTimeout) {
		return nil, &NotFoundError{Selector: sel, Timeout: timeout}
	}
	if err != nil {
		return nil, err
	}
	return &Element{Selector: sel, NodeID: found.NodeID, Node: found}, nil
}

func (s *ChromeSession) Fill(ctx context.Context, sel Selector, text string, timeout time.Duration) error {
	el, err := s.Find(ctx, sel, timeout)
	if err != nil {
		return err
	}
	if err := s.runWithTimeout(ctx, timeout, chromedp.SendKeys([]cdp.NodeID{el.NodeID}, text, chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("could not type into %s: %w", sel, err)
	}
	return nil
}

func (s *ChromeSession) Click(ctx context.Context, sel Selector, timeout time.Duration) error {
	el, err := s.Find(ctx, sel, timeout)
	if err != nil {
		return err
	}
	if err := s.runWithTimeout(ctx, timeout, chromedp.Click([]cdp.NodeID{el.NodeID}, chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("could not click %s: %w", sel, err)
	}
	return nil
}

// Screenshot captures the visible viewport as PNG.
func (s *ChromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("could not capture screenshot: %w", err)
	}
	return buf, nil
}

func (s *ChromeSession) Location(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Text returns the rendered text of the document body.
func (s *ChromeSession) Text(ctx context.Context) (string, error) {
	var text string
	err := s.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text))
	return text, err
}

func (s *ChromeSession) ReadyState(ctx context.Context) (string, error) {
	var state string
	err := s.run(ctx, chromedp.Evaluate(`document.readyState`, &state))
	return state, err
}

// MarkDocument tags the current document. The tag disappears as soon as
// another document replaces it.
func (s *ChromeSession) MarkDocument(ctx context.Context, token string) error {
	var ok bool
	script := fmt.Sprintf(`window.%s = %s; true`, markerVariable, strconv.Quote(token))
	return s.run(ctx, chromedp.Evaluate(script, &ok))
}

func (s *ChromeSession) DocumentMarked(ctx context.Context, token string) (bool, error) {
	var marked bool
	script := fmt.Sprintf(`window.%s === %s`, markerVariable, strconv.Quote(token))
	if err := s.run(ctx, chromedp.Evaluate(script, &marked)); err != nil {
		return false, err
	}
	return marked, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *ChromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = chromedp.Cancel(s.ctx)
		s.tabCancel()
		s.allocCancel()
		if errors.Is(s.closeErr, context.Canceled) {
			s.closeErr = nil
		}
		s.logger.Debug("Browser session released.")
	})
	return s.closeErr
}
