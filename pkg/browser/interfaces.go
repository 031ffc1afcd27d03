//go:generate mockgen -source=interfaces.go -destination=interfaces_mock.go -package=browser
package browser

import (
	"context"
	"time"
)

type (
	// Launcher starts browser sessions. Every session returned by Launch
	// is owned by the caller and must be released with Close.
	Launcher interface {
		Launch(ctx context.Context) (Page, error)
	}

	// Page is the automation handle of one browser session.
	Page interface {
		Navigate(ctx context.Context, url string) error
		Find(ctx context.Context, sel Selector, timeout time.Duration) (*Element, error)
		Fill(ctx context.Context, sel Selector, text string, timeout time.Duration) error
		Click(ctx context.Context, sel Selector, timeout time.Duration) error
		Screenshot(ctx context.Context) ([]byte, error)
		Location(ctx context.Context) (string, error)
		Text(ctx context.Context) (string, error)
		ReadyState(ctx context.Context) (string, error)
		MarkDocument(ctx context.Context, token string) error
		DocumentMarked(ctx context.Context, token string) (bool, error)
		Close() error
	}
)
