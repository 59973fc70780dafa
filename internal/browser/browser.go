// Package browser drives a Chrome session for the messenger.
package browser

import (
	"context"
	"time"
)

// Driver is the subset of browser control the messenger needs.
type Driver interface {
	// Navigate opens url in the current tab and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until selector is visible or timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// ClickWhenReady waits up to timeout for selector to be visible and
	// enabled, then clicks it.
	ClickWhenReady(ctx context.Context, selector string, timeout time.Duration) error
	Close() error
}

type Config struct {
	// ProfileDir is Chrome's user-data-dir; keeping it between runs keeps the
	// WhatsApp Web login.
	ProfileDir string
	ExecPath   string
	Headless   bool
	// NavigateTimeout bounds a single page load. Zero means 60s.
	NavigateTimeout time.Duration
}
