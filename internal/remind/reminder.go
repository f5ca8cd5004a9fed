// Package remind defines the reminder value type and the pure extraction
// step that turns fetched calendar events into an ordered queue of
// pending reminders.
package remind

import (
	"sort"
	"time"
)

// EventRef carries the read-only source event fields a reminder is
// rendered from.
type EventRef struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
}

// Reminder is one scheduled notification. Immutable after construction:
// a reminder is created by extraction, dispatched once, and discarded.
type Reminder struct {
	// DueAt is the absolute moment the notification should be delivered.
	DueAt time.Time

	// Event references the originating calendar event.
	Event EventRef

	// URL links back to the source calendar object and addresses
	// delivery in the rendered message.
	URL string
}

// Equal is the structural equality used for "no change" detection
// between sync passes: due time, originating event identity and target.
// Rendering-only fields (summary, description, location) are ignored on
// purpose so cosmetic edits don't re-arm the scheduler.
func (r Reminder) Equal(o Reminder) bool {
	return r.DueAt.Equal(o.DueAt) &&
		r.Event.UID == o.Event.UID &&
		r.Event.Start.Equal(o.Event.Start) &&
		r.URL == o.URL
}

// EqualQueues reports whether two reminder sequences are structurally
// equal: same reminders in the same order.
func EqualQueues(a, b []Reminder) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// sortByDue orders reminders ascending by due time. The sort is stable
// so reminders sharing a due time keep their extraction order.
func sortByDue(rs []Reminder) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].DueAt.Before(rs[j].DueAt)
	})
}
