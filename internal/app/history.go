package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wabulk/internal/storage"
)

var ErrNoHistory = errors.New("delivery log disabled: set storage.driver to file or sqlite")

// History prints recent runs, or the deliveries of runID when it is set.
func (a *App) History(ctx context.Context, runID string, limit int) error {
	if a.store == nil {
		return ErrNoHistory
	}
	if runID != "" {
		ds, err := a.store.Deliveries(ctx, runID)
		if err != nil {
			return err
		}
		if len(ds) == 0 {
			return fmt.Errorf("no deliveries for run %s", runID)
		}
		for _, d := range ds {
			a.printf("%s\n", formatDelivery(d))
		}
		return nil
	}

	runs, err := a.store.Runs(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		a.printf("no runs recorded\n")
		return nil
	}
	for _, r := range runs {
		a.printf("%s\n", formatRun(r))
	}
	return nil
}

func formatRun(r storage.Run) string {
	line := fmt.Sprintf("%s  %-5s  %s  ok=%d fail=%d total=%d  took=%s",
		r.ID, r.Kind, r.StartedAt.Local().Format(time.DateTime),
		r.OK, r.Fail, r.Total, r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	if r.Interrupted {
		line += "  interrupted"
	}
	if r.Source != "" {
		line += "  " + r.Source
	}
	return line
}

func formatDelivery(d storage.Delivery) string {
	mark := "✅"
	if !d.OK {
		mark = "❌"
	}
	line := fmt.Sprintf("%4d %s %s (%s) row %d", d.Index, mark, d.Name, d.Phone, d.Row)
	if d.Error != "" {
		line += " - " + d.Error
	}
	return line
}
