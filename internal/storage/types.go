package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the history store. Disabled means Open returns
// (nil, nil) and callers skip recording.
type Config struct {
	Enabled     bool
	Path        string
	BusyTimeout time.Duration // 0 means driver default

	// Retention bounds how long dispatch history is kept.
	Retention time.Duration
}

// DispatchEntry records one dispatch attempt.
// Keep it compact and schema-stable.
type DispatchEntry struct {
	At       time.Time
	EventUID string
	Summary  string
	DueAt    time.Time
	ChatID   int64
	OK       bool
	Error    string
}

// Store is the minimal persistence API used by the dispatcher.
type Store interface {
	AppendDispatch(ctx context.Context, e DispatchEntry) error
	RecentDispatches(ctx context.Context, limit int) ([]DispatchEntry, error)
	Close() error
}
