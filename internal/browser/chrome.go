package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	logx "wabulk/pkg/logx"
)

// Chrome is a Driver backed by chromedp with a persistent profile directory.
type Chrome struct {
	cfg Config
	log logx.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

var _ Driver = (*Chrome)(nil)

// Launch starts Chrome and opens the first tab. Errors here are fatal for a run.
func Launch(ctx context.Context, cfg Config, log logx.Logger) (*Chrome, error) {
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = 60 * time.Second
	}
	dir := strings.TrimSpace(cfg.ProfileDir)
	if dir == "" {
		return nil, errors.New("browser: profile dir is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("browser: profile dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("browser: create profile dir: %w", err)
	}
	cfg.ProfileDir = abs

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(cfg)...)
	bctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			log.Warn(fmt.Sprintf(format, args...))
		}),
	)
	// An empty Run starts the browser process.
	if err := chromedp.Run(bctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("browser: launch chrome: %w", err)
	}
	log.Info("browser started", logx.String("profile", abs), logx.Bool("headless", cfg.Headless))
	return &Chrome{cfg: cfg, log: log, ctx: bctx, cancel: cancel, allocCancel: allocCancel}, nil
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.UserDataDir(cfg.ProfileDir),
		chromedp.Flag("disable-features", "FontEnumeration"),
		chromedp.WindowSize(1280, 900),
	)
	if p := strings.TrimSpace(cfg.ExecPath); p != "" {
		opts = append(opts, chromedp.ExecPath(p))
	}
	return opts
}

// scoped derives a context that runs against the browser tab but also ends
// when the caller's ctx ends.
func (c *Chrome) scoped(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	tctx, cancel := context.WithTimeout(c.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return tctx, func() {
		stop()
		cancel()
	}
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	tctx, cancel := c.scoped(ctx, c.cfg.NavigateTimeout)
	defer cancel()
	if err := chromedp.Run(tctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

func (c *Chrome) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	tctx, cancel := c.scoped(ctx, timeout)
	defer cancel()
	if err := chromedp.Run(tctx, chromedp.WaitVisible(selector, chromedp.BySearch)); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

func (c *Chrome) ClickWhenReady(ctx context.Context, selector string, timeout time.Duration) error {
	tctx, cancel := c.scoped(ctx, timeout)
	defer cancel()
	err := chromedp.Run(tctx,
		chromedp.WaitVisible(selector, chromedp.BySearch),
		chromedp.WaitEnabled(selector, chromedp.BySearch),
		chromedp.Click(selector, chromedp.BySearch, chromedp.NodeVisible),
	)
	if err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// Close shuts the browser down gracefully, flushing the profile to disk.
func (c *Chrome) Close() error {
	if c == nil || c.cancel == nil {
		return nil
	}
	err := chromedp.Cancel(c.ctx)
	c.cancel()
	c.allocCancel()
	c.cancel = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	c.log.Info("browser closed")
	return nil
}
