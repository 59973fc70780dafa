// Package app wires configuration, logging, storage and notifications
// around the two tools.
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"wabulk/internal/browser"
	"wabulk/internal/config"
	"wabulk/internal/keyboard"
	"wabulk/internal/looper"
	"wabulk/internal/storage"
	kit "wabulk/internal/transport"
	telegram "wabulk/internal/transport/telegram/adapter"
	logx "wabulk/pkg/logx"
	"wabulk/pkg/tgui"
)

type App struct {
	cfgm *config.ConfigManager

	log   logx.Logger
	logs  *logx.Service
	store storage.Store

	notify kit.Sender
	target kit.ChatTarget

	in  *bufio.Reader
	out io.Writer

	newPresser  func() (looper.Presser, error)
	watchCancel func(ctx context.Context, key string, fn func()) (func(), error)
	launch      func(ctx context.Context, cfg browser.Config, log logx.Logger) (browser.Driver, error)
}

type Option func(*App)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.in = bufio.NewReader(in)
		a.out = out
	}
}

// WithSender replaces the Telegram bot used for notifications.
func WithSender(s kit.Sender) Option { return func(a *App) { a.notify = s } }

// WithPresser replaces the OS keyboard.
func WithPresser(fn func() (looper.Presser, error)) Option {
	return func(a *App) { a.newPresser = fn }
}

// WithCancelHook replaces the global cancel-key hook.
func WithCancelHook(fn func(ctx context.Context, key string, cb func()) (func(), error)) Option {
	return func(a *App) { a.watchCancel = fn }
}

// WithBrowser replaces the Chrome launcher.
func WithBrowser(fn func(ctx context.Context, cfg browser.Config, log logx.Logger) (browser.Driver, error)) Option {
	return func(a *App) { a.launch = fn }
}

// New loads the config at cfgPath (missing file means defaults) and opens
// the logging service, the optional delivery log and the optional notifier.
func New(cfgPath string, opts ...Option) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	a := &App{
		cfgm:        cfgm,
		in:          bufio.NewReader(os.Stdin),
		out:         logx.Stdout(),
		newPresser:  func() (looper.Presser, error) { return keyboard.NewPresser() },
		watchCancel: keyboard.WatchCancel,
		launch: func(ctx context.Context, cfg browser.Config, log logx.Logger) (browser.Driver, error) {
			return browser.Launch(ctx, cfg, log)
		},
	}
	for _, opt := range opts {
		opt(a)
	}

	bootLog := logx.NewConsole(cfg.Logging.Level)
	if a.notify == nil && cfg.Telegram.Enabled {
		tc, err := mapTelegramConfig(cfg)
		if err != nil {
			return nil, err
		}
		ad, err := telegram.New(tc, bootLog.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, err
		}
		a.notify = ad
	}
	a.target = kit.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID}

	// The chat target must be set before the sink is enabled.
	logCfg := mapLogConfig(cfg)
	chatEnabled := logCfg.Chat.Enabled
	logCfg.Chat.Enabled = false
	a.logs, a.log = logx.New(logCfg, a.notify)
	a.logs.SetChatTarget(a.target)
	if chatEnabled {
		logCfg.Chat.Enabled = true
		a.logs.Apply(logCfg)
	}
	a.log = a.log.With(logx.String("comp", "app"))
	cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		_ = a.logs.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, a.log.With(logx.String("comp", "storage")))
		if err != nil {
			_ = a.logs.Close()
			return nil, fmt.Errorf("open storage: %w", err)
		}
		a.store = st
		a.log.Debug("storage enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	}
	return a, nil
}

func (a *App) Config() *config.Config { return a.cfgm.Get() }

func (a *App) Log() logx.Logger { return a.log }

func (a *App) Close() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
	}
	if cerr := a.logs.Close(); err == nil {
		err = cerr
	}
	return err
}

// Confirm prints prompt and blocks until the operator presses Enter.
func (a *App) Confirm(ctx context.Context, prompt string) error {
	fmt.Fprint(a.out, prompt)
	done := make(chan error, 1)
	go func() {
		_, err := a.in.ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		done <- err
	}()
	select {
	case <-ctx.Done():
		fmt.Fprintln(a.out)
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// notifyChat sends card to the operator chat, if one is configured.
func (a *App) notifyChat(ctx context.Context, card *tgui.Card) {
	if a.notify == nil || a.target.ChatID == 0 || !a.Config().Telegram.Enabled {
		return
	}
	opt := &kit.SendOptions{ParseMode: tgui.ParseMode, DisablePreview: true}
	if err := a.notify.SendText(context.WithoutCancel(ctx), a.target, card.HTML(), opt); err != nil {
		a.log.Warn("telegram notify failed", logx.Err(err))
	}
}

// applyReloads pushes hot-reloaded configs to the logging service and fn
// until ctx is done.
func (a *App) applyReloads(ctx context.Context, fn func(*config.Config)) {
	sub := a.cfgm.Subscribe(4)
	go func() { _ = a.cfgm.Watch(ctx) }()
	go func() {
		defer a.cfgm.Unsubscribe(sub)
		last := a.Config()
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				if cfg.Storage != last.Storage || cfg.Telegram != last.Telegram {
					a.log.Warn("storage/telegram config changed; restart required for changes to take effect")
				}
				last = cfg
				a.logs.Apply(mapLogConfig(cfg))
				if fn != nil {
					fn(cfg)
				}
			}
		}
	}()
}
