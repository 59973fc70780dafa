package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type LoginConfig struct {
	URL string
	// Selector, when set, is an element that only shows once the session is
	// logged in. Without it Confirm is used.
	Selector string
	Timeout  time.Duration // 0 means 5m
	// Confirm blocks until the operator says the login is done.
	Confirm func(ctx context.Context) error
}

// WaitLogin opens the login page and blocks until the session is usable.
func WaitLogin(ctx context.Context, d Driver, cfg LoginConfig) error {
	if strings.TrimSpace(cfg.URL) == "" {
		return errors.New("browser: login url is required")
	}
	if err := d.Navigate(ctx, cfg.URL); err != nil {
		return fmt.Errorf("browser: open login page: %w", err)
	}
	if sel := strings.TrimSpace(cfg.Selector); sel != "" {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		if err := d.WaitVisible(ctx, sel, timeout); err != nil {
			return fmt.Errorf("browser: login not detected: %w", err)
		}
		return nil
	}
	if cfg.Confirm == nil {
		return nil
	}
	return cfg.Confirm(ctx)
}
