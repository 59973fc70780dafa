package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvTelegramToken, "")
	t.Setenv(EnvTelegramChatID, "")
	m := NewConfigManager(filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Defaults()) {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	t.Setenv(EnvTelegramToken, "")
	t.Setenv(EnvTelegramChatID, "")
	path := filepath.Join(t.TempDir(), "wabulk.yaml")
	writeFile(t, path, `
send:
  contacts: people.csv
  delay: 5s
looper:
  max_messages: 10
`)
	cfg, err := NewConfigManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Send.Contacts != "people.csv" || cfg.Send.Delay != "5s" {
		t.Fatalf("send section not applied: %+v", cfg.Send)
	}
	if cfg.Send.Template != DefaultTemplate || cfg.Send.WaitTimeout != DefaultWaitTimeout {
		t.Fatalf("defaults lost: %+v", cfg.Send)
	}
	if cfg.Looper.MaxMessages != 10 || cfg.Looper.Interval != DefaultInterval {
		t.Fatalf("looper section: %+v", cfg.Looper)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wabulk.json")
	writeFile(t, path, `{"send":{"contacts":"a.xlsx","retries":3}}`)
	if _, err := NewConfigManager(path).Load(); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wabulk.json")
	writeFile(t, path, `{"looper":{}} {"looper":{}}`)
	if _, err := NewConfigManager(path).Load(); err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestEnvOverridesTelegram(t *testing.T) {
	t.Setenv(EnvTelegramToken, "123:abc")
	t.Setenv(EnvTelegramChatID, "-100200")
	path := filepath.Join(t.TempDir(), "wabulk.yaml")
	writeFile(t, path, "telegram:\n  enabled: true\n")
	cfg, err := NewConfigManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.ChatID != -100200 {
		t.Fatalf("env not applied: %+v", cfg.Telegram)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad duration", mutate: func(c *Config) { c.Send.Delay = "two seconds" }, wantErr: "send.delay"},
		{name: "negative duration", mutate: func(c *Config) { c.Looper.Interval = "-1s" }, wantErr: "looper.interval"},
		{name: "negative cap", mutate: func(c *Config) { c.Looper.MaxMessages = -1 }, wantErr: "max_messages"},
		{name: "empty template", mutate: func(c *Config) { c.Send.Template = " " }, wantErr: "send.template"},
		{name: "link without phone", mutate: func(c *Config) { c.Send.DeepLink = "https://wa.me/?text={text}" }, wantErr: "deep_link"},
		{name: "sqlite without path", mutate: func(c *Config) { c.Storage.Driver = "sqlite" }, wantErr: "storage.path"},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "mongo" }, wantErr: "unknown storage.driver"},
		{name: "telegram without token", mutate: func(c *Config) { c.Telegram.Enabled = true; c.Telegram.ChatID = 1 }, wantErr: "telegram.token"},
		{name: "telegram without chat", mutate: func(c *Config) { c.Telegram.Enabled = true; c.Telegram.Token = "x" }, wantErr: "telegram.chat_id"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()
	a := Defaults()
	b := Defaults()
	b.Send.Delay = "3s"
	b.Telegram.Token = "secret"
	got := SummarizeChange(a, b)
	if !reflect.DeepEqual(got, []string{"send", "telegram"}) {
		t.Fatalf("SummarizeChange = %v", got)
	}
}

func TestWatchPublishesReload(t *testing.T) {
	t.Setenv(EnvTelegramToken, "")
	t.Setenv(EnvTelegramChatID, "")
	path := filepath.Join(t.TempDir(), "wabulk.yaml")
	writeFile(t, path, "send:\n  delay: 2s\n")
	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()

	// Give the watcher a moment to register before editing.
	time.Sleep(200 * time.Millisecond)
	writeFile(t, path, "send:\n  delay: 7s\n")

	select {
	case cfg := <-sub:
		if cfg.Send.Delay != "7s" {
			t.Fatalf("published delay = %q", cfg.Send.Delay)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no config published after file change")
	}
	cancel()
	<-done
}
