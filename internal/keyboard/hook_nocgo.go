//go:build !cgo

package keyboard

import "context"

func WatchCancel(ctx context.Context, key string, fn func()) (stop func(), err error) {
	_ = ctx
	_ = key
	_ = fn
	return func() {}, ErrNoHook
}
