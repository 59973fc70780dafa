package tgui

import (
	"strconv"
	"strings"
)

// Card is a bold title followed by "key: value" rows and free lines.
//
//	<b>wabulk send</b>
//	sent: <code>12</code>
//	• Mona (2010...) - timeout
type Card struct {
	title string
	lines []H
}

func NewCard(title string) *Card { return &Card{title: title} }

// Row adds "key: value" with value set in monospace.
func (c *Card) Row(key, value string) *Card {
	c.lines = append(c.lines, JoinH(" ", Esc(key+":"), Code(value)))
	return c
}

// Line adds a pre-rendered line.
func (c *Card) Line(h H) *Card {
	c.lines = append(c.lines, h)
	return c
}

// Bullets adds one "• item" line per item, keeping at most limit and noting
// how many were left out.
func (c *Card) Bullets(items []string, limit int) *Card {
	for i, it := range items {
		if limit > 0 && i == limit {
			c.lines = append(c.lines, I("… and "+strconv.Itoa(len(items)-limit)+" more"))
			break
		}
		c.lines = append(c.lines, H("• ")+Esc(it))
	}
	return c
}

func (c *Card) HTML() string {
	var b strings.Builder
	b.WriteString(B(c.title).String())
	for _, l := range c.lines {
		b.WriteByte('\n')
		b.WriteString(l.String())
	}
	return b.String()
}
