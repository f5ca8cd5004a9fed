package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "remindbot/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{Enabled: false}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st != nil {
		t.Fatal("disabled storage must yield a nil store")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Enabled: true}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestAppendAndReadBack(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "history.db")
	st, err := Open(Config{Enabled: true, Path: path, Retention: time.Hour}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	entries := []DispatchEntry{
		{At: now.Add(-2 * time.Minute), EventUID: "ev-1", Summary: "Standup", DueAt: now.Add(-2 * time.Minute), ChatID: 42, OK: true},
		{At: now, EventUID: "ev-2", DueAt: now, ChatID: 42, OK: false, Error: "flood limit"},
	}
	for _, e := range entries {
		if err := st.AppendDispatch(ctx, e); err != nil {
			t.Fatalf("AppendDispatch: %v", err)
		}
	}

	got, err := st.RecentDispatches(ctx, 10)
	if err != nil {
		t.Fatalf("RecentDispatches: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	// newest first
	if got[0].EventUID != "ev-2" || got[0].OK || got[0].Error != "flood limit" {
		t.Fatalf("unexpected head entry: %+v", got[0])
	}
	if got[1].EventUID != "ev-1" || !got[1].OK || got[1].Summary != "Standup" {
		t.Fatalf("unexpected tail entry: %+v", got[1])
	}
	if !got[1].At.Equal(entries[0].At) {
		t.Fatalf("At = %v, want %v", got[1].At, entries[0].At)
	}
}
