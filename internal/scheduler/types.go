package scheduler

import (
	"context"
	"time"

	"remindbot/internal/caldav"
	"remindbot/internal/remind"
)

// Dispatcher delivers one due reminder. A non-nil error means the
// delivery failed; the reminder is consumed either way (no retry).
type Dispatcher interface {
	Dispatch(ctx context.Context, r remind.Reminder) error
}

// Source is the calendar side of a sync pass.
//
// Calendars is called once per process lifetime (the list is cached by
// Sync); Events is called every pass with the forward-looking window.
type Source interface {
	Calendars(ctx context.Context) ([]caldav.Calendar, error)
	Events(ctx context.Context, cals []caldav.Calendar, from, to time.Time) ([]remind.Event, error)
}
