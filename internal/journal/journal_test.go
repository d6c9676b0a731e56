package journal

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T, opts Options) *Journal {
	t.Helper()
	j, err := Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_AppendAndTail(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	j := openTest(t, Options{Now: func() time.Time { return t0 }})
	ctx := context.Background()

	first, err := j.Append(ctx, Entry{Kind: "index_move", ItemID: 5, Revision: 1, Changed: true,
		Payload: json.RawMessage(`{"itemId":5,"oldIndex":4,"newIndex":0}`)})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if first.ID == "" || !first.At.Equal(t0) {
		t.Fatalf("expected id and timestamp to be filled: %+v", first)
	}
	if _, err := j.Append(ctx, Entry{Kind: "selection_only", Search: "Item 1", Revision: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := j.Tail(ctx, 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Kind != "selection_only" || got[0].Search != "Item 1" || got[0].Changed {
		t.Fatalf("unexpected newest entry: %+v", got[0])
	}
	if got[1].ID != first.ID || got[1].ItemID != 5 || !got[1].Changed || string(got[1].Payload) != string(first.Payload) {
		t.Fatalf("unexpected oldest entry: %+v", got[1])
	}
}

func TestJournal_TrimsToMaxEntries(t *testing.T) {
	t.Parallel()

	j := openTest(t, Options{MaxEntries: 3})
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if _, err := j.Append(ctx, Entry{Kind: "anchor_move", ItemID: uint64(i)}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	n, err := j.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 entries, got %d", n)
	}
	tail, err := j.Tail(ctx, 0)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if tail[0].ItemID != 5 || tail[2].ItemID != 3 {
		t.Fatalf("expected items 5..3, got %d..%d", tail[0].ItemID, tail[2].ItemID)
	}
}

func TestJournal_FileBacked(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.sqlite")
	ctx := context.Background()

	j, err := Open(ctx, Options{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := j.Append(ctx, Entry{Kind: "full_replace"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	j = openTest(t, Options{Path: path})
	n, err := j.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the entry to survive reopen, got %d", n)
	}
}
