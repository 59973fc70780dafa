package message

import (
	"net/url"
	"testing"

	"wabulk/internal/contacts"
)

func TestRender(t *testing.T) {
	t.Parallel()
	c := contacts.Contact{Name: "Ali", Phone: "201001234567"}
	tests := []struct {
		tmpl string
		want string
	}{
		{"Hello {name}, this is a test message!", "Hello Ali, this is a test message!"},
		{"{name} {name} ({phone})", "Ali Ali (201001234567)"},
		{"no placeholders", "no placeholders"},
	}
	for _, tt := range tests {
		if got := Render(tt.tmpl, c); got != tt.want {
			t.Fatalf("Render(%q) = %q, want %q", tt.tmpl, got, tt.want)
		}
	}
}

func TestDeepLink(t *testing.T) {
	t.Parallel()
	link, err := DeepLink("https://wa.me/{phone}?text={text}", "201001234567", "Hello Ali & co? 100%")
	if err != nil {
		t.Fatalf("DeepLink: %v", err)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse %q: %v", link, err)
	}
	if u.Host != "wa.me" || u.Path != "/201001234567" {
		t.Fatalf("unexpected link %q", link)
	}
	if got := u.Query().Get("text"); got != "Hello Ali & co? 100%" {
		t.Fatalf("text round trip = %q (link %q)", got, link)
	}
}

func TestDeepLinkErrors(t *testing.T) {
	t.Parallel()
	if _, err := DeepLink("https://wa.me/?text={text}", "1", "x"); err == nil {
		t.Fatal("expected error for pattern without {phone}")
	}
	if _, err := DeepLink("https://wa.me/{phone}", "", "x"); err == nil {
		t.Fatal("expected error for empty phone")
	}
}
