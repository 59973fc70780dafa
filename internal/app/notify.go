package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"wabulk/internal/messenger"
	"wabulk/internal/storage"
	logx "wabulk/pkg/logx"
)

// notifyStatus reports READY plus a status line to systemd. Outside a unit
// NOTIFY_SOCKET is unset and this is a no-op.
func notifyStatus(log logx.Logger, status string) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady+"\nSTATUS="+status)
	if err != nil {
		log.Debug("sd_notify failed", logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify", logx.String("status", status))
	}
}

func notifyStopping(log logx.Logger) {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		log.Debug("sd_notify failed", logx.Err(err))
	}
}

func (a *App) recordRun(ctx context.Context, r storage.Run) {
	if a.store == nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.store.AppendRun(wctx, r); err != nil {
		a.log.Warn("record run failed", logx.String("run", r.ID), logx.Err(err))
	}
}

// recorder appends one delivery per messenger outcome.
type recorder struct {
	store storage.Store
	log   logx.Logger
}

func (r recorder) Observe(ctx context.Context, runID string, o messenger.Outcome) {
	d := storage.Delivery{
		RunID:  runID,
		At:     o.At,
		Index:  o.Index,
		Row:    o.Contact.Row,
		Name:   o.Contact.Name,
		Phone:  o.Contact.Phone,
		OK:     o.OK(),
		TookMS: o.Took.Milliseconds(),
	}
	if o.Err != nil {
		d.Error = o.Err.Error()
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.store.AppendDelivery(wctx, d); err != nil {
		r.log.Warn("record delivery failed", logx.Int("index", o.Index), logx.Err(err))
	}
}
