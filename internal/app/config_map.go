package app

import (
	"strings"
	"time"

	"wabulk/internal/browser"
	"wabulk/internal/config"
	"wabulk/internal/looper"
	"wabulk/internal/messenger"
	"wabulk/internal/storage"
	telegram "wabulk/internal/transport/telegram/adapter"
	logx "wabulk/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    cfg.Logging.Chat.Enabled && cfg.Telegram.Enabled,
			MinLevel:   cfg.Logging.Chat.MinLevel,
			RatePerSec: cfg.Logging.Chat.RatePerSec,
		},
	}
}

// Zero delays are allowed; Defaults() already fills the stock values.
func mapLooperConfig(cfg *config.Config) (looper.Config, error) {
	safety, err := config.ParseDurationField("looper.safety_delay", cfg.Looper.SafetyDelay)
	if err != nil {
		return looper.Config{}, err
	}
	interval, err := config.ParseDurationOrDefault("looper.interval", cfg.Looper.Interval, time.Second)
	if err != nil {
		return looper.Config{}, err
	}
	return looper.Config{
		MaxMessages: cfg.Looper.MaxMessages,
		SafetyDelay: safety,
		Interval:    interval,
	}, nil
}

func mapMessengerConfig(cfg *config.Config) (messenger.Config, error) {
	wait, err := config.ParseDurationOrDefault("send.wait_timeout", cfg.Send.WaitTimeout, 15*time.Second)
	if err != nil {
		return messenger.Config{}, err
	}
	delay, err := config.ParseDurationField("send.delay", cfg.Send.Delay)
	if err != nil {
		return messenger.Config{}, err
	}
	return messenger.Config{
		Template:     cfg.Send.Template,
		DeepLink:     cfg.Send.DeepLink,
		SendSelector: cfg.Send.SendSelector,
		WaitTimeout:  wait,
		Delay:        delay,
	}, nil
}

func mapBrowserConfig(cfg *config.Config) browser.Config {
	return browser.Config{
		ProfileDir: cfg.Browser.ProfileDir,
		ExecPath:   cfg.Browser.ExecPath,
		Headless:   cfg.Browser.Headless,
	}
}

func mapLoginConfig(cfg *config.Config) (browser.LoginConfig, error) {
	timeout, err := config.ParseDurationOrDefault("browser.login_timeout", cfg.Browser.LoginTimeout, 5*time.Minute)
	if err != nil {
		return browser.LoginConfig{}, err
	}
	return browser.LoginConfig{
		URL:      cfg.Browser.LoginURL,
		Selector: cfg.Browser.LoginSelector,
		Timeout:  timeout,
	}, nil
}

// mapStorageConfig returns enabled=false when no driver is configured.
func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)
	if driver == "file" && path == "" {
		path = "./wabulk.jsonl"
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
}

func mapTelegramConfig(cfg *config.Config) (telegram.Config, error) {
	timeout, err := config.ParseDurationOrDefault("telegram.timeout", cfg.Telegram.Timeout, 10*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{Token: cfg.Telegram.Token, Timeout: timeout}, nil
}
