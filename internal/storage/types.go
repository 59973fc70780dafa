package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines files next to Path
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Delivery records the single attempt made for one contact.
type Delivery struct {
	RunID  string    `json:"run_id"`
	At     time.Time `json:"at"`
	Index  int       `json:"index"`
	Row    int       `json:"row"`
	Name   string    `json:"name"`
	Phone  string    `json:"phone"`
	OK     bool      `json:"ok"`
	Error  string    `json:"error,omitempty"`
	TookMS int64     `json:"took_ms"`
}

// Run is a finished run of either tool.
type Run struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"` // "send" | "enter"
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Total       int       `json:"total"`
	OK          int       `json:"ok"`
	Fail        int       `json:"fail"`
	Interrupted bool      `json:"interrupted"`
	Source      string    `json:"source,omitempty"` // contacts file or stop reason
}
