package messenger

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Console prints one line per contact:
//
//	[3/10] ✅ sent to: Ali (201001234567)
//	[4/10] ❌ failed to send to: Mona (201001234568) - click ...: context deadline exceeded
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console { return &Console{w: w} }

func (c *Console) Observe(_ context.Context, _ string, o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, FormatOutcome(o)+"\n")
}

func FormatOutcome(o Outcome) string {
	if o.OK() {
		return fmt.Sprintf("[%d/%d] ✅ sent to: %s (%s)", o.Index, o.Total, o.Contact.Name, o.Contact.Phone)
	}
	return fmt.Sprintf("[%d/%d] ❌ failed to send to: %s (%s) - %v", o.Index, o.Total, o.Contact.Name, o.Contact.Phone, o.Err)
}

// FormatSummary is the closing line of a run.
func FormatSummary(r Report) string {
	head := "🎉 finished sending all messages"
	if r.Interrupted {
		head = "🛑 stopped before the end of the list"
	}
	return fmt.Sprintf("%s: %d sent, %d failed, %d/%d attempted", head, r.Sent, r.Failed, r.Attempted(), r.Total)
}
