package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

const (
	EnvTelegramToken  = "WABULK_TELEGRAM_TOKEN"
	EnvTelegramChatID = "WABULK_TELEGRAM_CHAT_ID"
)

// ApplyEnv overlays secrets and deployment-specific values from the environment.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvTelegramToken)); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelegramChatID)); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
}

// Validate rejects configs that would fail later at run time.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	durations := []struct{ path, raw string }{
		{"looper.safety_delay", cfg.Looper.SafetyDelay},
		{"looper.interval", cfg.Looper.Interval},
		{"send.wait_timeout", cfg.Send.WaitTimeout},
		{"send.delay", cfg.Send.Delay},
		{"browser.login_timeout", cfg.Browser.LoginTimeout},
		{"storage.busy_timeout", cfg.Storage.BusyTimeout},
		{"telegram.timeout", cfg.Telegram.Timeout},
	}
	for _, d := range durations {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}

	if cfg.Looper.MaxMessages < 0 {
		return fmt.Errorf("looper.max_messages must be >= 0")
	}
	if strings.TrimSpace(cfg.Send.Template) == "" {
		return fmt.Errorf("send.template is required")
	}
	if !strings.Contains(cfg.Send.DeepLink, "{phone}") {
		return fmt.Errorf("send.deep_link must contain {phone}")
	}
	if strings.TrimSpace(cfg.Send.SendSelector) == "" {
		return fmt.Errorf("send.send_selector is required")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "none", "file":
	case "sqlite", "sqlite3":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
	default:
		return fmt.Errorf("unknown storage.driver: %s", cfg.Storage.Driver)
	}

	if cfg.Telegram.Enabled {
		if strings.TrimSpace(cfg.Telegram.Token) == "" {
			return fmt.Errorf("telegram.token (or %s) is required when telegram.enabled", EnvTelegramToken)
		}
		if cfg.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id (or %s) is required when telegram.enabled", EnvTelegramChatID)
		}
	}
	if cfg.Logging.Chat.RatePerSec < 0 {
		return fmt.Errorf("logging.chat.rate_per_sec must be >= 0")
	}
	return nil
}

// SummarizeChange lists the top-level sections that differ between two configs.
// Values are never included, so secrets stay out of the logs.
func SummarizeChange(oldCfg, newCfg *Config) []string {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	sections := []struct {
		name     string
		old, new any
	}{
		{"logging", oldCfg.Logging, newCfg.Logging},
		{"looper", oldCfg.Looper, newCfg.Looper},
		{"send", oldCfg.Send, newCfg.Send},
		{"browser", oldCfg.Browser, newCfg.Browser},
		{"storage", oldCfg.Storage, newCfg.Storage},
		{"telegram", oldCfg.Telegram, newCfg.Telegram},
	}
	changed := make([]string, 0, len(sections))
	for _, s := range sections {
		if !reflect.DeepEqual(s.old, s.new) {
			changed = append(changed, s.name)
		}
	}
	return changed
}
