//go:build cgo

package keyboard

import (
	"context"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// WatchCancel calls fn the first time key (e.g. "esc") goes down anywhere on
// the desktop, regardless of which window has focus. The hook is removed when
// ctx ends or stop is called.
func WatchCancel(ctx context.Context, key string, fn func()) (stop func(), err error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		key = "esc"
	}
	var fired sync.Once
	hook.Register(hook.KeyDown, []string{key}, func(hook.Event) {
		fired.Do(fn)
	})
	events := hook.Start()
	done := hook.Process(events)

	var once sync.Once
	stop = func() { once.Do(hook.End) }
	go func() {
		select {
		case <-ctx.Done():
			stop()
			<-done
		case <-done:
		}
	}()
	return stop, nil
}
