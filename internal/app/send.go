package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wabulk/internal/browser"
	"wabulk/internal/config"
	"wabulk/internal/contacts"
	"wabulk/internal/message"
	"wabulk/internal/messenger"
	"wabulk/internal/schedule"
	"wabulk/internal/storage"
	logx "wabulk/pkg/logx"
	"wabulk/pkg/tgui"
)

type SendOptions struct {
	// Contacts overrides send.contacts.
	Contacts string
	// StartAt overrides send.start_at.
	StartAt string
	// DryRun prints every deep link instead of opening a browser.
	DryRun bool
}

// RunSend runs the contact messenger. Loading contacts and launching the
// browser are fatal; per-contact failures are only counted.
func (a *App) RunSend(ctx context.Context, opt SendOptions) (messenger.Report, error) {
	cfg := a.Config()
	mc, err := mapMessengerConfig(cfg)
	if err != nil {
		return messenger.Report{}, err
	}
	log := a.log.With(logx.String("comp", "messenger"))

	path := firstNonEmpty(opt.Contacts, cfg.Send.Contacts)
	list, err := contacts.Load(path, contacts.Options{
		Sheet:         cfg.Send.Sheet,
		DefaultRegion: cfg.Send.DefaultRegion,
		Log:           log,
	})
	if err != nil {
		log.Error("load contacts failed", logx.String("path", path), logx.Err(err))
		return messenger.Report{}, err
	}
	a.printf("Loaded %d contacts from %s\n", len(list), path)

	if opt.DryRun {
		return messenger.Report{Total: len(list)}, a.printLinks(mc, list)
	}

	if raw := firstNonEmpty(opt.StartAt, cfg.Send.StartAt); raw != "" {
		if err := a.waitStart(ctx, log, raw); err != nil {
			if ctx.Err() != nil {
				return messenger.Report{Total: len(list), Interrupted: true}, nil
			}
			return messenger.Report{}, err
		}
	}

	drv, err := a.launch(ctx, mapBrowserConfig(cfg), log.With(logx.String("comp", "browser")))
	if err != nil {
		log.Error("browser launch failed", logx.Err(err))
		return messenger.Report{}, err
	}
	defer func() {
		if err := drv.Close(); err != nil {
			log.Warn("browser close failed", logx.Err(err))
		}
	}()

	lc, err := mapLoginConfig(cfg)
	if err != nil {
		return messenger.Report{}, err
	}
	lc.Confirm = func(ctx context.Context) error {
		return a.Confirm(ctx, "Scan the QR code in the browser, then press Enter to continue...")
	}
	if err := browser.WaitLogin(ctx, drv, lc); err != nil {
		if ctx.Err() != nil {
			return messenger.Report{Total: len(list), Interrupted: true}, nil
		}
		return messenger.Report{}, err
	}

	observers := []messenger.Observer{messenger.NewConsole(a.out)}
	if a.store != nil {
		observers = append(observers, recorder{store: a.store, log: log})
	}
	runner := messenger.New(mc, drv, log, observers...)

	reloadCtx, stopReloads := context.WithCancel(ctx)
	defer stopReloads()
	a.applyReloads(reloadCtx, func(c *config.Config) {
		next, err := mapMessengerConfig(c)
		if err != nil {
			log.Warn("invalid send config; keeping previous", logx.Err(err))
			return
		}
		runner.Apply(next)
	})

	notifyStatus(log, fmt.Sprintf("sending to %d contacts", len(list)))
	rep := runner.Run(ctx, list)
	notifyStopping(log)

	summary := messenger.FormatSummary(rep)
	a.printf("%s\n", summary)
	a.recordRun(ctx, storage.Run{
		ID:          rep.RunID,
		Kind:        "send",
		StartedAt:   rep.StartedAt,
		FinishedAt:  rep.FinishedAt,
		Total:       rep.Total,
		OK:          rep.Sent,
		Fail:        rep.Failed,
		Interrupted: rep.Interrupted,
		Source:      path,
	})
	a.notifyChat(ctx, sendCard(rep, path))
	return rep, nil
}

func sendCard(rep messenger.Report, source string) *tgui.Card {
	title := "wabulk send finished"
	if rep.Interrupted {
		title = "wabulk send stopped"
	}
	card := tgui.NewCard(title).
		Row("run", rep.RunID).
		Row("contacts", source).
		Row("sent", strconv.Itoa(rep.Sent)).
		Row("failed", strconv.Itoa(rep.Failed)).
		Row("attempted", fmt.Sprintf("%d/%d", rep.Attempted(), rep.Total)).
		Row("took", rep.FinishedAt.Sub(rep.StartedAt).Round(time.Second).String())
	var failed []string
	for _, o := range rep.Outcomes {
		if !o.OK() {
			failed = append(failed, fmt.Sprintf("%s (%s) - %v", o.Contact.Name, o.Contact.Phone, o.Err))
		}
	}
	return card.Bullets(failed, 20)
}

func (a *App) waitStart(ctx context.Context, log logx.Logger, raw string) error {
	spec, err := schedule.Parse(raw)
	if err != nil {
		return err
	}
	next := spec.Next(time.Now())
	a.printf("Waiting until %s (%s)...\n", next.Format(time.DateTime), spec)
	log.Info("waiting for start", logx.String("spec", spec.String()), logx.Time("at", next))
	notifyStatus(log, "waiting until "+next.Format(time.DateTime))
	_, err = schedule.Wait(ctx, spec)
	return err
}

func (a *App) printLinks(mc messenger.Config, list []contacts.Contact) error {
	for i, c := range list {
		link, err := message.DeepLink(mc.DeepLink, c.Phone, message.Render(mc.Template, c))
		if err != nil {
			return fmt.Errorf("row %d: %w", c.Row, err)
		}
		a.printf("[%d/%d] %s (%s) %s\n", i+1, len(list), c.Name, c.Phone, link)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
