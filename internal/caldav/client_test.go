package caldav

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"remindbot/internal/remind"
	logx "remindbot/pkg/logx"
)

func decodeEvents(t *testing.T, body string) []ical.Event {
	t.Helper()
	ics := strings.ReplaceAll(strings.TrimSpace(body), "\n", "\r\n") + "\r\n"
	cal, err := ical.NewDecoder(strings.NewReader(ics)).Decode()
	if err != nil {
		t.Fatalf("decode ics: %v", err)
	}
	return cal.Events()
}

func testClient(t *testing.T, tz string) *Client {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return &Client{cfg: Config{Location: loc}, log: logx.Nop()}
}

// expandOne expands a single VEVENT over a window wide enough for the
// non-recurring fixtures in this file.
func expandOne(t *testing.T, c *Client, ve ical.Event, target string) remind.Event {
	t.Helper()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	evs, err := c.expandEvent(ve, target, from, to)
	if err != nil {
		t.Fatalf("expandEvent: %v", err)
	}
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	return evs[0]
}

func TestExpandEventDurationTrigger(t *testing.T) {
	t.Parallel()
	events := decodeEvents(t, `
BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:ev-1
SUMMARY:Standup
DESCRIPTION:Daily sync
LOCATION:Room 1
DTSTART:20240102T090000Z
BEGIN:VALARM
ACTION:DISPLAY
TRIGGER:-PT15M
END:VALARM
END:VEVENT
END:VCALENDAR`)

	c := testClient(t, "UTC")
	ev := expandOne(t, c, events[0], "https://dav.example.com/work/ev-1.ics")

	wantStart := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	if !ev.Ref.Start.Equal(wantStart) {
		t.Fatalf("Start = %v, want %v", ev.Ref.Start, wantStart)
	}
	if ev.Ref.Summary != "Standup" || ev.Ref.Location != "Room 1" {
		t.Fatalf("unexpected ref: %+v", ev.Ref)
	}
	if len(ev.Triggers) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(ev.Triggers))
	}
	if want := wantStart.Add(-15 * time.Minute); !ev.Triggers[0].Equal(want) {
		t.Fatalf("trigger = %v, want %v", ev.Triggers[0], want)
	}
}

func TestExpandEventAbsoluteTrigger(t *testing.T) {
	t.Parallel()
	events := decodeEvents(t, `
BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:ev-2
SUMMARY:Review
DTSTART:20240102T140000Z
BEGIN:VALARM
ACTION:DISPLAY
TRIGGER;VALUE=DATE-TIME:20240102T120000Z
END:VALARM
END:VEVENT
END:VCALENDAR`)

	c := testClient(t, "UTC")
	ev := expandOne(t, c, events[0], "u")
	if len(ev.Triggers) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(ev.Triggers))
	}
	if want := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC); !ev.Triggers[0].Equal(want) {
		t.Fatalf("trigger = %v, want %v", ev.Triggers[0], want)
	}
}

func TestExpandEventAllDayStartsAtMidnightInZone(t *testing.T) {
	t.Parallel()
	events := decodeEvents(t, `
BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:ev-3
SUMMARY:Holiday
DTSTART;VALUE=DATE:20240102
END:VEVENT
END:VCALENDAR`)

	c := testClient(t, "Europe/Berlin")
	ev := expandOne(t, c, events[0], "u")

	loc, _ := time.LoadLocation("Europe/Berlin")
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, loc)
	if !ev.Ref.Start.Equal(want) {
		t.Fatalf("Start = %v, want midnight in configured zone %v", ev.Ref.Start, want)
	}
	if len(ev.Triggers) != 0 {
		t.Fatalf("expected no explicit triggers, got %d", len(ev.Triggers))
	}
}

func TestExpandEventFloatingTimeUsesConfiguredZone(t *testing.T) {
	t.Parallel()
	events := decodeEvents(t, `
BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:ev-4
SUMMARY:Dinner
DTSTART:20240102T190000
END:VEVENT
END:VCALENDAR`)

	c := testClient(t, "Europe/Berlin")
	ev := expandOne(t, c, events[0], "u")

	loc, _ := time.LoadLocation("Europe/Berlin")
	want := time.Date(2024, 1, 2, 19, 0, 0, 0, loc)
	if !ev.Ref.Start.Equal(want) {
		t.Fatalf("Start = %v, want %v (configured zone, not UTC)", ev.Ref.Start, want)
	}
}

func TestExpandEventWithoutStartIsRejected(t *testing.T) {
	t.Parallel()
	events := decodeEvents(t, `
BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:ev-5
SUMMARY:Broken
DTSTAMP:20240101T000000Z
END:VEVENT
END:VCALENDAR`)

	c := testClient(t, "UTC")
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := c.expandEvent(events[0], "u", from, from.AddDate(0, 0, 7)); err == nil {
		t.Fatal("expected error for event without DTSTART")
	}
}

// A weekly event whose master start lies far before the query window
// must still yield occurrences inside the window, with relative alarm
// triggers resolved against each occurrence rather than the master.
func TestExpandEventWeeklyRecurrence(t *testing.T) {
	t.Parallel()
	events := decodeEvents(t, `
BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:ev-6
SUMMARY:Weekly sync
DTSTART:20250106T090000Z
RRULE:FREQ=WEEKLY
BEGIN:VALARM
ACTION:DISPLAY
TRIGGER:-PT15M
END:VALARM
END:VEVENT
END:VCALENDAR`)

	c := testClient(t, "UTC")
	from := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC)
	evs, err := c.expandEvent(events[0], "u", from, to)
	if err != nil {
		t.Fatalf("expandEvent: %v", err)
	}

	wantStarts := []time.Time{
		time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC),
	}
	if len(evs) != len(wantStarts) {
		t.Fatalf("expected %d occurrences, got %d: %+v", len(wantStarts), len(evs), evs)
	}
	for i, ev := range evs {
		if ev.Ref.UID != "ev-6" {
			t.Fatalf("occurrence %d UID = %q", i, ev.Ref.UID)
		}
		if !ev.Ref.Start.Equal(wantStarts[i]) {
			t.Fatalf("occurrence %d Start = %v, want %v", i, ev.Ref.Start, wantStarts[i])
		}
		if len(ev.Triggers) != 1 || !ev.Triggers[0].Equal(wantStarts[i].Add(-15*time.Minute)) {
			t.Fatalf("occurrence %d triggers = %v", i, ev.Triggers)
		}
	}
}

// A recurring event with no occurrence in the window contributes
// nothing instead of the stale master.
func TestExpandEventRecurrenceOutsideWindow(t *testing.T) {
	t.Parallel()
	events := decodeEvents(t, `
BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:ev-7
SUMMARY:Yearly
DTSTART:20250101T090000Z
RRULE:FREQ=YEARLY
END:VEVENT
END:VCALENDAR`)

	c := testClient(t, "UTC")
	from := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	evs, err := c.expandEvent(events[0], "u", from, from.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("expandEvent: %v", err)
	}
	if len(evs) != 0 {
		t.Fatalf("expected no occurrences, got %+v", evs)
	}
}
