// Package messenger sends one templated WhatsApp message per contact by
// driving WhatsApp Web through a browser.
//
// The run is a single pass over the contact list: each contact gets exactly
// one attempt, failures are logged and skipped, and a fixed delay follows
// every contact. There is no retry and no dedup; running twice sends twice.
package messenger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"wabulk/internal/browser"
	"wabulk/internal/contacts"
	"wabulk/internal/message"
	logx "wabulk/pkg/logx"
)

type Config struct {
	Template     string
	DeepLink     string
	SendSelector string
	WaitTimeout  time.Duration
	Delay        time.Duration
}

// Outcome is the result of the single attempt made for one contact.
type Outcome struct {
	Index   int // 1-based
	Total   int
	Contact contacts.Contact
	Link    string
	Err     error
	At      time.Time
	Took    time.Duration
}

func (o Outcome) OK() bool { return o.Err == nil }

// Report summarizes a run. Sent+Failed == len(Outcomes) <= Total.
type Report struct {
	RunID       string
	Total       int
	Sent        int
	Failed      int
	Outcomes    []Outcome
	StartedAt   time.Time
	FinishedAt  time.Time
	Interrupted bool
}

func (r Report) Attempted() int { return r.Sent + r.Failed }

// Observer is notified after every contact, in order, on the run goroutine.
type Observer interface {
	Observe(ctx context.Context, runID string, o Outcome)
}

type ObserverFunc func(ctx context.Context, runID string, o Outcome)

func (f ObserverFunc) Observe(ctx context.Context, runID string, o Outcome) { f(ctx, runID, o) }

type Runner struct {
	mu  sync.Mutex
	cfg Config

	drv       browser.Driver
	log       logx.Logger
	observers []Observer
}

func New(cfg Config, drv browser.Driver, log logx.Logger, observers ...Observer) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{cfg: withDefaults(cfg), drv: drv, log: log, observers: observers}
}

func withDefaults(cfg Config) Config {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 15 * time.Second
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	return cfg
}

// Apply swaps the config used for the next contact. Safe to call during Run.
func (r *Runner) Apply(cfg Config) {
	r.mu.Lock()
	r.cfg = withDefaults(cfg)
	r.mu.Unlock()
	r.log.Info("messenger config applied", logx.Duration("delay", cfg.Delay), logx.Duration("wait_timeout", cfg.WaitTimeout))
}

func (r *Runner) config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// Run messages every contact in order. It returns early only when ctx ends,
// in which case the report is marked Interrupted.
func (r *Runner) Run(ctx context.Context, list []contacts.Contact) Report {
	rep := Report{
		RunID:     uuid.NewString(),
		Total:     len(list),
		StartedAt: time.Now(),
		Outcomes:  make([]Outcome, 0, len(list)),
	}
	log := r.log.With(logx.String("run", rep.RunID))
	log.Info("messenger run started", logx.Int("total", rep.Total))

	for i, c := range list {
		if ctx.Err() != nil {
			rep.Interrupted = true
			break
		}
		cfg := r.config()

		start := time.Now()
		link, err := r.sendOne(ctx, cfg, c)
		o := Outcome{
			Index:   i + 1,
			Total:   rep.Total,
			Contact: c,
			Link:    link,
			Err:     err,
			At:      start,
			Took:    time.Since(start),
		}
		rep.Outcomes = append(rep.Outcomes, o)
		if err != nil {
			rep.Failed++
			log.Warn("contact failed", logx.Int("index", o.Index), logx.String("name", c.Name), logx.String("phone", c.Phone), logx.Err(err))
		} else {
			rep.Sent++
			log.Debug("contact sent", logx.Int("index", o.Index), logx.String("phone", c.Phone), logx.Duration("took", o.Took))
		}
		for _, obs := range r.observers {
			obs.Observe(ctx, rep.RunID, o)
		}

		if err := sleepCtx(ctx, cfg.Delay); err != nil {
			rep.Interrupted = i < len(list)-1
			break
		}
	}

	rep.FinishedAt = time.Now()
	fields := []logx.Field{
		logx.Int("total", rep.Total),
		logx.Int("sent", rep.Sent),
		logx.Int("failed", rep.Failed),
		logx.Bool("interrupted", rep.Interrupted),
		logx.Duration("dur", rep.FinishedAt.Sub(rep.StartedAt)),
	}
	if rep.Failed > 0 || rep.Interrupted {
		log.Warn("messenger run finished with failures", fields...)
	} else {
		log.Info("messenger run finished", fields...)
	}
	return rep
}

// sendOne is the guarded per-contact block: build link, navigate, click send.
func (r *Runner) sendOne(ctx context.Context, cfg Config, c contacts.Contact) (link string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	text := message.Render(cfg.Template, c)
	link, err = message.DeepLink(cfg.DeepLink, c.Phone, text)
	if err != nil {
		return "", err
	}
	if err := r.drv.Navigate(ctx, link); err != nil {
		return link, err
	}
	if err := r.drv.ClickWhenReady(ctx, cfg.SendSelector, cfg.WaitTimeout); err != nil {
		return link, err
	}
	return link, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
