package transport

import "context"

// ChatTarget addresses an operator chat (and optional forum thread).
type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Sender delivers operator-facing text (run summaries, warnings).
// It is not used for the WhatsApp messages themselves.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) error
}
