// Package schedule delays a run until a configured start time.
package schedule

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Kind describes the normalized form of a start spec.
type Kind int

const (
	KindCron Kind = iota
	KindDelay
	KindClock
)

// StartAt is a parsed start spec.
//
// Supported forms:
//   - Cron: "0 9 * * 1-5", "@daily", "@every 2h" (next fire time)
//   - Delay: "90m", "2h30m" (from now)
//   - Wall clock: "09:30" (today, or tomorrow if already past)
//
// Optional prefixes "cron:", "in:" and "at:" force a form.
type StartAt struct {
	Kind   Kind
	Source string // "cron" | "duration" | "hhmm"

	Cron  string
	Delay time.Duration
	Hour  int
	Min   int

	sched cron.Schedule
}

var reHHMM = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*$`)

func Parse(raw string) (StartAt, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return StartAt{}, fmt.Errorf("start time required")
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		return parseCron(strings.TrimSpace(s[len("cron:"):]))
	case strings.HasPrefix(low, "in:"):
		return parseDelay(strings.TrimSpace(s[len("in:"):]))
	case strings.HasPrefix(low, "at:"):
		return parseClock(strings.TrimSpace(s[len("at:"):]))
	}

	if strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@") {
		return parseCron(s)
	}
	if reHHMM.MatchString(s) {
		return parseClock(s)
	}
	if _, err := time.ParseDuration(s); err == nil {
		return parseDelay(s)
	}
	return StartAt{}, fmt.Errorf(
		"invalid start time %q (use cron like '0 9 * * *', HH:MM like '09:30', or duration like '45m')",
		raw,
	)
}

func parseCron(expr string) (StartAt, error) {
	if expr == "" {
		return StartAt{}, fmt.Errorf("cron expression required")
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return StartAt{}, fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return StartAt{Kind: KindCron, Source: "cron", Cron: expr, sched: sched}, nil
}

func parseDelay(v string) (StartAt, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return StartAt{}, fmt.Errorf("invalid delay %q: %w", v, err)
	}
	if d <= 0 {
		return StartAt{}, fmt.Errorf("delay must be > 0")
	}
	return StartAt{Kind: KindDelay, Source: "duration", Delay: d}, nil
}

func parseClock(v string) (StartAt, error) {
	h, m, err := parseHHMM(v)
	if err != nil {
		return StartAt{}, err
	}
	return StartAt{Kind: KindClock, Source: "hhmm", Hour: h, Min: m}, nil
}

func parseHHMM(v string) (int, int, error) {
	m := reHHMM.FindStringSubmatch(v)
	if len(m) != 3 {
		return 0, 0, fmt.Errorf("invalid HH:MM %q", v)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", v)
	}
	if mm > 59 {
		return 0, 0, fmt.Errorf("invalid minutes in %q", v)
	}
	return h, mm, nil
}

// Next returns the first start time strictly after now.
func (s StartAt) Next(now time.Time) time.Time {
	switch s.Kind {
	case KindCron:
		if s.sched == nil {
			return now
		}
		return s.sched.Next(now)
	case KindDelay:
		return now.Add(s.Delay)
	case KindClock:
		t := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Min, 0, 0, now.Location())
		if !t.After(now) {
			t = t.AddDate(0, 0, 1)
		}
		return t
	default:
		return now
	}
}

func (s StartAt) String() string {
	switch s.Kind {
	case KindCron:
		return "cron:" + s.Cron
	case KindDelay:
		return "in:" + s.Delay.String()
	case KindClock:
		return fmt.Sprintf("at:%02d:%02d", s.Hour, s.Min)
	default:
		return ""
	}
}

// Wait blocks until the next start time after time.Now(). It returns the
// time it waited for, or ctx's error.
func Wait(ctx context.Context, s StartAt) (time.Time, error) {
	next := s.Next(time.Now())
	t := time.NewTimer(time.Until(next))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return next, ctx.Err()
	case <-t.C:
		return next, nil
	}
}
