// Package transport defines the notification sink boundary so the
// dispatcher does not depend on a concrete messaging platform.
package transport

import "context"

// Target addresses one notification destination.
type Target struct {
	ChatID int64

	// ThreadID addresses a forum topic inside the chat. 0 means none.
	ThreadID int
}

// Sink delivers a rendered message body. The body is HTML-capable
// markup; the sink decides how (or whether) to honor it.
type Sink interface {
	Send(ctx context.Context, target Target, body string) error
}
