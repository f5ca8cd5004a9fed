package remind

import "time"

// Event is one fetched calendar occurrence with its alarm trigger times
// already normalized to absolute timestamps by the source layer.
type Event struct {
	Ref EventRef
	URL string

	// Triggers holds the event's explicit alarm times. Empty means the
	// event carries no alarms of its own.
	Triggers []time.Time
}

// Extract derives the pending reminder queue from a set of events.
//
// Rules:
//   - every explicit trigger becomes one reminder;
//   - an event without explicit triggers gets exactly one synthetic
//     reminder at start-defaultOffset, but only when defaultOffset is
//     set — explicit triggers fully override the default, never both;
//   - reminders already due strictly before now are dropped (dueAt ==
//     now is retained);
//   - the result is stable-sorted ascending by due time.
//
// Extract is pure: it never mutates its inputs and has no side effects.
func Extract(events []Event, now time.Time, defaultOffset *time.Duration) []Reminder {
	var out []Reminder
	for _, ev := range events {
		if len(ev.Triggers) == 0 {
			if defaultOffset == nil {
				continue
			}
			due := ev.Ref.Start.Add(-*defaultOffset)
			if due.Before(now) {
				continue
			}
			out = append(out, Reminder{DueAt: due, Event: ev.Ref, URL: ev.URL})
			continue
		}
		for _, due := range ev.Triggers {
			if due.Before(now) {
				continue
			}
			out = append(out, Reminder{DueAt: due, Event: ev.Ref, URL: ev.URL})
		}
	}
	sortByDue(out)
	return out
}
