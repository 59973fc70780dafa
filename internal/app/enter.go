package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"wabulk/internal/keyboard"
	"wabulk/internal/looper"
	"wabulk/internal/storage"
	logx "wabulk/pkg/logx"
	"wabulk/pkg/tgui"
)

// RunEnter runs the key-press looper: confirm, press Enter on a timer until
// the cap, the cancel key or ctx, then print the summary.
func (a *App) RunEnter(ctx context.Context) (looper.Result, error) {
	cfg := a.Config()
	lc, err := mapLooperConfig(cfg)
	if err != nil {
		return looper.Result{}, err
	}
	log := a.log.With(logx.String("comp", "looper"))

	a.printf("Focus the chat window that should receive Enter.\n")
	a.printf("Up to %d presses, one every %s. Press %s to stop.\n", lc.MaxMessages, lc.Interval, cfg.Looper.CancelKey)
	if err := a.Confirm(ctx, "Press Enter to start..."); err != nil {
		return looper.Result{Reason: looper.StopInterrupt}, nil
	}

	p, err := a.newPresser()
	if err != nil {
		return looper.Result{}, err
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop, err := a.watchCancel(runCtx, cfg.Looper.CancelKey, func() { cancel(looper.ErrCancelKey) })
	switch {
	case errors.Is(err, keyboard.ErrNoHook):
		log.Warn("cancel key unavailable; use Ctrl+C to stop", logx.Err(err))
	case err != nil:
		log.Warn("cancel key hook failed; use Ctrl+C to stop", logx.Err(err))
	}
	if stop != nil {
		defer stop()
	}
	notifyStatus(log, "pressing Enter")

	res := looper.Run(runCtx, lc, p,
		looper.WithLogger(log),
		looper.WithProgress(a.printTick),
	)
	notifyStopping(log)

	summary := FormatEnterSummary(res)
	a.printf("\n%s\n", summary)
	a.recordRun(ctx, storage.Run{
		ID:          uuid.NewString(),
		Kind:        "enter",
		StartedAt:   res.StartedAt,
		FinishedAt:  res.StartedAt.Add(res.Elapsed),
		Total:       lc.MaxMessages,
		OK:          res.Count,
		Interrupted: res.Reason != looper.StopCap,
		Source:      string(res.Reason),
	})
	a.notifyChat(ctx, tgui.NewCard("wabulk enter").
		Row("pressed", strconv.Itoa(res.Count)).
		Row("stop", string(res.Reason)).
		Row("took", res.Elapsed.Round(time.Second).String()))
	if res.Reason == looper.StopPressError {
		return res, res.Err
	}
	return res, nil
}

func (a *App) printTick(t looper.Tick) {
	switch t.Phase {
	case looper.PhasePressed:
		a.printf("\rSent message #%d          ", t.Iteration)
	case looper.PhaseWait:
		a.printf("\rSent message #%d, next in %s   ", t.Iteration, t.Remaining)
	}
}

// FormatEnterSummary reports the press count and the time taken in minutes.
func FormatEnterSummary(r looper.Result) string {
	var why string
	switch r.Reason {
	case looper.StopCap:
		why = "limit reached"
	case looper.StopCancelKey:
		why = "cancelled by user"
	case looper.StopInterrupt:
		why = "interrupted"
	case looper.StopPressError:
		why = fmt.Sprintf("key press failed: %v", r.Err)
	}
	return fmt.Sprintf("Total messages sent: %d\nTime taken: %.2f minutes (%s)",
		r.Count, r.Elapsed.Round(time.Second).Minutes(), why)
}
