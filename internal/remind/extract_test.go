package remind

import (
	"testing"
	"time"
)

func durPtr(d time.Duration) *time.Duration { return &d }

func TestExtractSortedAscending(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	events := []Event{
		{Ref: EventRef{UID: "c", Start: now.Add(72 * time.Hour)}, Triggers: []time.Time{now.Add(71 * time.Hour)}},
		{Ref: EventRef{UID: "a", Start: now.Add(24 * time.Hour)}, Triggers: []time.Time{now.Add(23 * time.Hour)}},
		{Ref: EventRef{UID: "b", Start: now.Add(48 * time.Hour)}, Triggers: []time.Time{now.Add(47 * time.Hour), now.Add(46 * time.Hour)}},
	}

	got := Extract(events, now, nil)
	if len(got) != 4 {
		t.Fatalf("expected 4 reminders, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].DueAt.Before(got[i-1].DueAt) {
			t.Fatalf("not sorted at %d: %v before %v", i, got[i].DueAt, got[i-1].DueAt)
		}
	}
}

func TestExtractExplicitTriggersOverrideDefault(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	start := now.Add(24 * time.Hour)
	events := []Event{
		{Ref: EventRef{UID: "e1", Start: start}, Triggers: []time.Time{start.Add(-time.Hour)}},
	}

	got := Extract(events, now, durPtr(15*time.Minute))
	if len(got) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(got))
	}
	if want := start.Add(-time.Hour); !got[0].DueAt.Equal(want) {
		t.Fatalf("DueAt = %v, want the explicit trigger %v", got[0].DueAt, want)
	}
}

func TestExtractSyntheticDefault(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	start := now.Add(24 * time.Hour)
	events := []Event{{Ref: EventRef{UID: "e1", Start: start}}}

	got := Extract(events, now, durPtr(15*time.Minute))
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 synthetic reminder, got %d", len(got))
	}
	if want := start.Add(-15 * time.Minute); !got[0].DueAt.Equal(want) {
		t.Fatalf("DueAt = %v, want %v", got[0].DueAt, want)
	}

	if got := Extract(events, now, nil); len(got) != 0 {
		t.Fatalf("expected no reminders without a default offset, got %d", len(got))
	}
}

func TestExtractDropsPastDue(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	events := []Event{
		{Ref: EventRef{UID: "past", Start: now}, Triggers: []time.Time{now.Add(-time.Second)}},
		{Ref: EventRef{UID: "exact", Start: now.Add(time.Hour)}, Triggers: []time.Time{now}},
		{Ref: EventRef{UID: "future", Start: now.Add(2 * time.Hour)}, Triggers: []time.Time{now.Add(time.Hour)}},
	}

	got := Extract(events, now, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(got))
	}
	// boundary: dueAt == now is retained
	if got[0].Event.UID != "exact" {
		t.Fatalf("expected the dueAt==now reminder retained first, got %q", got[0].Event.UID)
	}
}

func TestExtractSyntheticPastDueDropped(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	// start is 10 minutes out but the synthetic reminder lands in the past
	events := []Event{{Ref: EventRef{UID: "e1", Start: now.Add(10 * time.Minute)}}}

	if got := Extract(events, now, durPtr(15*time.Minute)); len(got) != 0 {
		t.Fatalf("expected past-due synthetic reminder dropped, got %d", len(got))
	}
}

func TestExtractConcreteStandupScenario(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	events := []Event{{Ref: EventRef{UID: "standup", Summary: "Standup", Start: start}}}

	got := Extract(events, now, durPtr(15*time.Minute))
	if len(got) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(got))
	}
	want := time.Date(2024, 1, 2, 8, 45, 0, 0, time.UTC)
	if !got[0].DueAt.Equal(want) {
		t.Fatalf("DueAt = %v, want %v", got[0].DueAt, want)
	}
}

func TestExtractStableOrderForEqualDueTimes(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	due := now.Add(time.Hour)
	events := []Event{
		{Ref: EventRef{UID: "first", Start: due.Add(time.Hour)}, Triggers: []time.Time{due}},
		{Ref: EventRef{UID: "second", Start: due.Add(2 * time.Hour)}, Triggers: []time.Time{due}},
	}

	got := Extract(events, now, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(got))
	}
	if got[0].Event.UID != "first" || got[1].Event.UID != "second" {
		t.Fatalf("equal due times must keep extraction order, got %q, %q", got[0].Event.UID, got[1].Event.UID)
	}
}

func TestEqualQueues(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	a := []Reminder{{DueAt: now, Event: EventRef{UID: "x", Start: now.Add(time.Hour)}, URL: "u"}}
	b := []Reminder{{DueAt: now, Event: EventRef{UID: "x", Start: now.Add(time.Hour)}, URL: "u"}}

	if !EqualQueues(a, b) {
		t.Fatal("identical queues must compare equal")
	}
	if !EqualQueues(nil, nil) || !EqualQueues(nil, []Reminder{}) {
		t.Fatal("empty queues must compare equal")
	}

	b[0].DueAt = now.Add(time.Minute)
	if EqualQueues(a, b) {
		t.Fatal("queues differing in due time must compare unequal")
	}

	// rendering-only fields do not affect equality
	b[0].DueAt = now
	b[0].Event.Summary = "changed"
	if !EqualQueues(a, b) {
		t.Fatal("summary changes must not affect structural equality")
	}
}
