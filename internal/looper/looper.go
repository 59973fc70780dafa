// Package looper presses Enter on a timer.
//
// It is meant to be paired with a page that has already queued a message in
// the focused chat window: every press sends it. The window that has OS input
// focus receives the key; the looper has no way to check which one that is.
package looper

import (
	"context"
	"errors"
	"time"

	logx "wabulk/pkg/logx"
)

// ErrCancelKey is the cancel cause used when the operator presses the cancel key.
var ErrCancelKey = errors.New("cancel key pressed")

// Presser emits one synthetic Enter key event to the focused window.
type Presser interface {
	PressEnter() error
}

type PresserFunc func() error

func (f PresserFunc) PressEnter() error { return f() }

type Config struct {
	MaxMessages int
	SafetyDelay time.Duration
	Interval    time.Duration
}

// StopReason tells why a run ended.
type StopReason string

const (
	StopCap        StopReason = "cap"
	StopCancelKey  StopReason = "cancel_key"
	StopInterrupt  StopReason = "interrupt"
	StopPressError StopReason = "press_error"
)

type Result struct {
	Count     int
	Reason    StopReason
	Err       error
	StartedAt time.Time
	Elapsed   time.Duration
}

// Tick describes progress for the optional progress callback.
type Tick struct {
	// Iteration is the 1-based press number.
	Iteration int
	Phase     Phase
	// Remaining is set during PhaseWait: whole seconds left in the interval.
	Remaining time.Duration
}

type Phase int

const (
	PhaseSafety Phase = iota
	PhasePressed
	PhaseWait
)

type Option func(*options)

type options struct {
	log    logx.Logger
	onTick func(Tick)
}

func WithLogger(log logx.Logger) Option { return func(o *options) { o.log = log } }

// WithProgress registers a callback invoked on the run goroutine.
func WithProgress(fn func(Tick)) Option { return func(o *options) { o.onTick = fn } }

// Run presses Enter up to cfg.MaxMessages times. Each iteration waits
// SafetyDelay, presses, then waits Interval. It stops as soon as ctx is done;
// cancel with context.WithCancelCause(ErrCancelKey) to report StopCancelKey.
func Run(ctx context.Context, cfg Config, p Presser, opts ...Option) Result {
	o := options{log: logx.Nop(), onTick: func(Tick) {}}
	for _, fn := range opts {
		fn(&o)
	}
	res := Result{StartedAt: time.Now()}

	stop := func() Result {
		res.Reason = reasonFor(ctx)
		res.Elapsed = time.Since(res.StartedAt)
		return res
	}

	o.log.Info("looper started", logx.Int("max", cfg.MaxMessages), logx.Duration("interval", cfg.Interval))
	for res.Count < cfg.MaxMessages {
		n := res.Count + 1
		o.onTick(Tick{Iteration: n, Phase: PhaseSafety})
		if !sleep(ctx, cfg.SafetyDelay) {
			return stop()
		}
		if err := p.PressEnter(); err != nil {
			o.log.Error("key press failed", logx.Int("iteration", n), logx.Err(err))
			res.Reason = StopPressError
			res.Err = err
			res.Elapsed = time.Since(res.StartedAt)
			return res
		}
		res.Count = n
		o.onTick(Tick{Iteration: n, Phase: PhasePressed})

		if !countdown(ctx, cfg.Interval, func(left time.Duration) {
			o.onTick(Tick{Iteration: n, Phase: PhaseWait, Remaining: left})
		}) {
			return stop()
		}
	}
	res.Reason = StopCap
	res.Elapsed = time.Since(res.StartedAt)
	return res
}

func reasonFor(ctx context.Context) StopReason {
	if errors.Is(context.Cause(ctx), ErrCancelKey) {
		return StopCancelKey
	}
	return StopInterrupt
}

func sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// countdown waits d, reporting the time left once per second. It returns false
// as soon as ctx is done.
func countdown(ctx context.Context, d time.Duration, report func(time.Duration)) bool {
	for left := d; left > 0; {
		report(left.Round(time.Second))
		step := min(left, time.Second)
		if !sleep(ctx, step) {
			return false
		}
		left -= step
	}
	return ctx.Err() == nil
}
