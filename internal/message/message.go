// Package message renders the per-contact text and the WhatsApp deep link.
package message

import (
	"fmt"
	"net/url"
	"strings"

	"wabulk/internal/contacts"
)

// Render substitutes {name} and {phone} in tmpl.
func Render(tmpl string, c contacts.Contact) string {
	return strings.NewReplacer("{name}", c.Name, "{phone}", c.Phone).Replace(tmpl)
}

// DeepLink fills a link pattern such as "https://wa.me/{phone}?text={text}".
// text is query-escaped with %20 for spaces, which both wa.me and
// web.whatsapp.com/send accept.
func DeepLink(pattern, phone, text string) (string, error) {
	if !strings.Contains(pattern, "{phone}") {
		return "", fmt.Errorf("deep link pattern %q has no {phone}", pattern)
	}
	if phone == "" {
		return "", fmt.Errorf("empty phone")
	}
	link := strings.NewReplacer(
		"{phone}", url.PathEscape(phone),
		"{text}", queryEscape(text),
	).Replace(pattern)
	if _, err := url.Parse(link); err != nil {
		return "", fmt.Errorf("deep link: %w", err)
	}
	return link, nil
}

func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
