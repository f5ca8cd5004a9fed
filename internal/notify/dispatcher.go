// Package notify implements the dispatcher boundary: rendering a
// message body for one due reminder and handing it to the notification
// sink.
package notify

import (
	"context"
	"fmt"
	"time"

	"remindbot/internal/remind"
	"remindbot/internal/storage"
	"remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

// Dispatcher delivers reminders to a fixed target. A failure is logged
// and recorded; the caller still considers the reminder consumed, retry
// is deliberately not attempted.
type Dispatcher struct {
	sink     transport.Sink
	target   transport.Target
	renderer *Renderer
	store    storage.Store
	log      logx.Logger
}

func NewDispatcher(sink transport.Sink, target transport.Target, renderer *Renderer, store storage.Store, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{sink: sink, target: target, renderer: renderer, store: store, log: log}
}

func (d *Dispatcher) Dispatch(ctx context.Context, rem remind.Reminder) error {
	body, err := d.renderer.Render(rem)
	if err != nil {
		d.log.Warn("reminder render failed",
			logx.String("summary", rem.Event.Summary), logx.Err(err))
		d.record(rem, err)
		return err
	}

	err = d.sink.Send(ctx, d.target, body)
	d.record(rem, err)
	if err != nil {
		d.log.Warn("reminder delivery failed",
			logx.String("summary", rem.Event.Summary), logx.Time("due", rem.DueAt), logx.Err(err))
		return fmt.Errorf("send: %w", err)
	}
	d.log.Info("reminder sent",
		logx.String("summary", rem.Event.Summary), logx.Time("due", rem.DueAt))
	return nil
}

// record appends the attempt to the optional dispatch history.
// Best-effort: history must never block or fail a delivery.
func (d *Dispatcher) record(rem remind.Reminder, sendErr error) {
	if d.store == nil {
		return
	}
	e := storage.DispatchEntry{
		At:       time.Now(),
		EventUID: rem.Event.UID,
		Summary:  rem.Event.Summary,
		DueAt:    rem.DueAt,
		ChatID:   d.target.ChatID,
		OK:       sendErr == nil,
	}
	if sendErr != nil {
		e.Error = sendErr.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.store.AppendDispatch(ctx, e); err != nil {
		d.log.Warn("dispatch history append failed", logx.Err(err))
	}
}
