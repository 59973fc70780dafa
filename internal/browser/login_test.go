package browser

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeDriver struct {
	navigated []string
	waited    []string
	waitErr   error
}

func (f *fakeDriver) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakeDriver) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	f.waited = append(f.waited, selector)
	return f.waitErr
}

func (f *fakeDriver) ClickWhenReady(context.Context, string, time.Duration) error { return nil }
func (f *fakeDriver) Close() error                                                  { return nil }

func TestWaitLoginManualConfirm(t *testing.T) {
	t.Parallel()
	d := &fakeDriver{}
	confirmed := false
	err := WaitLogin(context.Background(), d, LoginConfig{
		URL: "https://web.whatsapp.com/",
		Confirm: func(context.Context) error {
			confirmed = true
			return nil
		},
	})
	if err != nil {
		t.Fatalf("WaitLogin: %v", err)
	}
	if !confirmed || len(d.navigated) != 1 || len(d.waited) != 0 {
		t.Fatalf("confirmed=%v navigated=%v waited=%v", confirmed, d.navigated, d.waited)
	}
}

func TestWaitLoginSelector(t *testing.T) {
	t.Parallel()
	d := &fakeDriver{}
	err := WaitLogin(context.Background(), d, LoginConfig{
		URL:      "https://web.whatsapp.com/",
		Selector: "#pane-side",
		Confirm: func(context.Context) error {
			t.Fatal("Confirm must not be called when a selector is set")
			return nil
		},
	})
	if err != nil {
		t.Fatalf("WaitLogin: %v", err)
	}
	if len(d.waited) != 1 || d.waited[0] != "#pane-side" {
		t.Fatalf("waited = %v", d.waited)
	}

	d = &fakeDriver{waitErr: context.DeadlineExceeded}
	err = WaitLogin(context.Background(), d, LoginConfig{URL: "u", Selector: "#pane-side"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestWaitLoginRequiresURL(t *testing.T) {
	t.Parallel()
	if err := WaitLogin(context.Background(), &fakeDriver{}, LoginConfig{}); err == nil {
		t.Fatal("expected error")
	}
}
