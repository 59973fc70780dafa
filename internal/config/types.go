package config

// Config is the on-disk configuration (JSON or YAML).
//
// All durations are Go duration strings (e.g. "500ms", "2s", "1m").
// Every section is optional; Defaults() fills the gaps.
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Looper   LooperConfig   `json:"looper"`
	Send     SendConfig     `json:"send"`
	Browser  BrowserConfig  `json:"browser"`
	Storage  StorageConfig  `json:"storage"`
	Telegram TelegramConfig `json:"telegram"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
	// Chat forwards warn+ logs to the Telegram chat (requires telegram.enabled).
	Chat LoggingChat `json:"chat"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingChat struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// LooperConfig controls `wabulk enter`.
//
// Defaults:
//   - max_messages: 1000
//   - safety_delay: "100ms"
//   - interval: "1s"
//   - cancel_key: "esc"
type LooperConfig struct {
	MaxMessages int    `json:"max_messages"`
	SafetyDelay string `json:"safety_delay"`
	Interval    string `json:"interval"`
	CancelKey   string `json:"cancel_key"`
}

// SendConfig controls `wabulk send`.
//
// Template placeholders: {name}, {phone}.
// DeepLink placeholders: {phone}, {text} (text is query-escaped).
type SendConfig struct {
	Contacts      string `json:"contacts"`
	Sheet         string `json:"sheet,omitempty"`
	Template      string `json:"template"`
	DeepLink      string `json:"deep_link"`
	SendSelector  string `json:"send_selector"`
	WaitTimeout   string `json:"wait_timeout"`
	Delay         string `json:"delay"`
	DefaultRegion string `json:"default_region,omitempty"`
	// StartAt delays the run: cron expression, "HH:MM" wall clock, or a duration.
	StartAt string `json:"start_at,omitempty"`
}

type BrowserConfig struct {
	ProfileDir string `json:"profile_dir"`
	ExecPath   string `json:"exec_path,omitempty"`
	Headless   bool   `json:"headless,omitempty"`
	LoginURL   string `json:"login_url"`
	// LoginSelector, when set, replaces the manual "press Enter after login" prompt
	// with a wait for this element.
	LoginSelector string `json:"login_selector,omitempty"`
	LoginTimeout  string `json:"login_timeout,omitempty"`
}

// StorageConfig controls the optional delivery log.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./wabulk.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// TelegramConfig enables operator notifications. The token is usually supplied
// through WABULK_TELEGRAM_TOKEN rather than the file.
type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	Token    string `json:"token,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
}

const (
	DefaultMaxMessages  = 1000
	DefaultSafetyDelay  = "100ms"
	DefaultInterval     = "1s"
	DefaultCancelKey    = "esc"
	DefaultContacts     = "contacts.xlsx"
	DefaultTemplate     = "Hello {name}, this is a test message!"
	DefaultDeepLink     = "https://wa.me/{phone}?text={text}"
	DefaultSendSelector = `//span[@data-icon="send"]`
	DefaultWaitTimeout  = "15s"
	DefaultSendDelay    = "2s"
	DefaultProfileDir   = "./chrome-profile"
	DefaultLoginURL     = "https://web.whatsapp.com/"
)

// Defaults returns a config that reproduces the stock behaviour with no file at all.
func Defaults() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Console: true},
		Looper: LooperConfig{
			MaxMessages: DefaultMaxMessages,
			SafetyDelay: DefaultSafetyDelay,
			Interval:    DefaultInterval,
			CancelKey:   DefaultCancelKey,
		},
		Send: SendConfig{
			Contacts:     DefaultContacts,
			Template:     DefaultTemplate,
			DeepLink:     DefaultDeepLink,
			SendSelector: DefaultSendSelector,
			WaitTimeout:  DefaultWaitTimeout,
			Delay:        DefaultSendDelay,
		},
		Browser: BrowserConfig{
			ProfileDir: DefaultProfileDir,
			LoginURL:   DefaultLoginURL,
		},
	}
}
