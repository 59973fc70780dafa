package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"wabulk/internal/browser"
	"wabulk/internal/config"
	"wabulk/internal/looper"
	kit "wabulk/internal/transport"
	logx "wabulk/pkg/logx"
)

type fakeDriver struct {
	mu      sync.Mutex
	visited []string
	fail    map[string]bool // by phone substring
}

func (f *fakeDriver) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visited = append(f.visited, url)
	return nil
}

func (f *fakeDriver) WaitVisible(context.Context, string, time.Duration) error { return nil }

func (f *fakeDriver) ClickWhenReady(context.Context, string, time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	last := f.visited[len(f.visited)-1]
	for phone := range f.fail {
		if strings.Contains(last, phone) {
			return errors.New("send button not found")
		}
	}
	return nil
}

func (f *fakeDriver) Close() error { return nil }

type recordingSender struct {
	mu    sync.Mutex
	to    []kit.ChatTarget
	texts []string
}

func (r *recordingSender) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to = append(r.to, to)
	r.texts = append(r.texts, text)
	return nil
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// newTestApp writes cfgBody into a temp config file and builds an App whose
// stdin is stdin and whose stdout is returned.
func newTestApp(t *testing.T, cfgBody, stdin string, opts ...Option) (*App, *bytes.Buffer, string) {
	t.Helper()
	t.Setenv(config.EnvTelegramToken, "")
	t.Setenv(config.EnvTelegramChatID, "")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "wabulk.yaml")
	writeFile(t, cfgPath, "logging:\n  console: false\n"+cfgBody)

	var out bytes.Buffer
	opts = append([]Option{WithIO(strings.NewReader(stdin), &out)}, opts...)
	a, err := New(cfgPath, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a, &out, dir
}

func TestRunSendDryRun(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "contacts.csv")
	writeFile(t, csvPath, "Name,Phone\nAli,+20 100 123 4567\nNobody,\n")

	a, out, _ := newTestApp(t, "", "", WithBrowser(func(context.Context, browser.Config, logx.Logger) (browser.Driver, error) {
		t.Fatal("dry run must not launch a browser")
		return nil, nil
	}))
	rep, err := a.RunSend(context.Background(), SendOptions{Contacts: csvPath, DryRun: true})
	if err != nil {
		t.Fatalf("RunSend: %v", err)
	}
	if rep.Total != 1 || rep.Attempted() != 0 {
		t.Fatalf("report = %+v", rep)
	}
	want := "https://wa.me/201001234567?text=Hello%20Ali%2C%20this%20is%20a%20test%20message%21"
	if !strings.Contains(out.String(), want) {
		t.Fatalf("output missing link %s:\n%s", want, out.String())
	}
}

func TestRunSendMissingContactsIsFatal(t *testing.T) {
	a, _, dir := newTestApp(t, "", "")
	_, err := a.RunSend(context.Background(), SendOptions{Contacts: filepath.Join(dir, "absent.xlsx")})
	if err == nil {
		t.Fatal("expected error for missing contacts file")
	}
}

func TestRunSendLaunchFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "contacts.csv")
	writeFile(t, csvPath, "Name,Phone\nAli,201001234567\n")
	launchErr := errors.New("chrome not found")
	a, _, _ := newTestApp(t, "", "", WithBrowser(func(context.Context, browser.Config, logx.Logger) (browser.Driver, error) {
		return nil, launchErr
	}))
	if _, err := a.RunSend(context.Background(), SendOptions{Contacts: csvPath}); !errors.Is(err, launchErr) {
		t.Fatalf("err = %v, want %v", err, launchErr)
	}
}

func TestRunSendRecordsAndNotifies(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "contacts.csv")
	writeFile(t, csvPath, "Name,Phone\nAli,201001234567\nMona,201001234568\nSara,201001234569\n")
	dbPath := filepath.Join(dir, "history.db")

	drv := &fakeDriver{fail: map[string]bool{"201001234568": true}}
	chat := &recordingSender{}
	cfg := "send:\n  delay: 1ms\nstorage:\n  driver: sqlite\n  path: " + dbPath +
		"\ntelegram:\n  enabled: true\n  token: test\n  chat_id: 42\n"
	a, out, _ := newTestApp(t, cfg, "\n",
		WithSender(chat),
		WithBrowser(func(context.Context, browser.Config, logx.Logger) (browser.Driver, error) { return drv, nil }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rep, err := a.RunSend(ctx, SendOptions{Contacts: csvPath})
	if err != nil {
		t.Fatalf("RunSend: %v", err)
	}
	if rep.Sent != 2 || rep.Failed != 1 || rep.Interrupted {
		t.Fatalf("report = %+v", rep)
	}
	// login page + one deep link per contact
	if len(drv.visited) != 4 || drv.visited[0] != config.DefaultLoginURL {
		t.Fatalf("visited = %v", drv.visited)
	}
	text := out.String()
	for _, want := range []string{
		"[1/3] ✅ sent to: Ali (201001234567)",
		"[2/3] ❌ failed to send to: Mona (201001234568) - send button not found",
		"2 sent, 1 failed, 3/3 attempted",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}

	chat.mu.Lock()
	if len(chat.texts) != 1 || chat.to[0].ChatID != 42 || !strings.Contains(chat.texts[0], rep.RunID) {
		t.Fatalf("telegram = %v %v", chat.to, chat.texts)
	}
	chat.mu.Unlock()

	out.Reset()
	if err := a.History(ctx, rep.RunID, 0); err != nil {
		t.Fatalf("History: %v", err)
	}
	if lines := strings.Count(out.String(), "\n"); lines != 3 {
		t.Fatalf("history lines = %d:\n%s", lines, out.String())
	}
	out.Reset()
	if err := a.History(ctx, "", 10); err != nil {
		t.Fatalf("History runs: %v", err)
	}
	if !strings.Contains(out.String(), rep.RunID) || !strings.Contains(out.String(), "ok=2 fail=1 total=3") {
		t.Fatalf("runs output:\n%s", out.String())
	}
}

func TestHistoryWithoutStorage(t *testing.T) {
	a, _, _ := newTestApp(t, "", "")
	if err := a.History(context.Background(), "", 5); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("err = %v", err)
	}
}

func TestRunEnterStopsAtCap(t *testing.T) {
	var presses int
	a, out, _ := newTestApp(t, "looper:\n  max_messages: 3\n  interval: 1ms\n  safety_delay: 0s\n", "\n",
		WithPresser(func() (looper.Presser, error) {
			return looper.PresserFunc(func() error { presses++; return nil }), nil
		}),
		WithCancelHook(func(context.Context, string, func()) (func(), error) { return func() {}, nil }),
	)
	res, err := a.RunEnter(context.Background())
	if err != nil {
		t.Fatalf("RunEnter: %v", err)
	}
	if res.Count != 3 || presses != 3 || res.Reason != looper.StopCap {
		t.Fatalf("result = %+v presses = %d", res, presses)
	}
	if !strings.Contains(out.String(), "Total messages sent: 3") {
		t.Fatalf("summary missing:\n%s", out.String())
	}
}

func TestRunEnterCancelKey(t *testing.T) {
	a, _, _ := newTestApp(t, "looper:\n  interval: 1h\n", "\n",
		WithPresser(func() (looper.Presser, error) {
			return looper.PresserFunc(func() error { return nil }), nil
		}),
		WithCancelHook(func(_ context.Context, _ string, fn func()) (func(), error) {
			time.AfterFunc(300*time.Millisecond, fn)
			return func() {}, nil
		}),
	)
	res, err := a.RunEnter(context.Background())
	if err != nil {
		t.Fatalf("RunEnter: %v", err)
	}
	if res.Reason != looper.StopCancelKey || res.Count != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestFormatEnterSummary(t *testing.T) {
	t.Parallel()
	got := FormatEnterSummary(looper.Result{Count: 12, Reason: looper.StopCancelKey, Elapsed: 90 * time.Second})
	want := "Total messages sent: 12\nTime taken: 1.50 minutes (cancelled by user)"
	if got != want {
		t.Fatalf("FormatEnterSummary = %q, want %q", got, want)
	}
}

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	if _, enabled, err := mapStorageConfig(cfg); enabled || err != nil {
		t.Fatalf("default storage enabled=%v err=%v", enabled, err)
	}
	cfg.Storage.Driver = "FILE"
	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil || !enabled || sc.Driver != "file" || sc.Path == "" || sc.BusyTimeout != time.Second {
		t.Fatalf("file storage = %+v enabled=%v err=%v", sc, enabled, err)
	}
	cfg.Storage.BusyTimeout = "soon"
	if _, _, err := mapStorageConfig(cfg); err == nil {
		t.Fatal("expected busy_timeout error")
	}
}
