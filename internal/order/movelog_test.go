package order

import (
	"testing"
	"time"
)

// stepClock returns a time that advances one millisecond per call.
func stepClock() func() time.Time {
	t0 := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Millisecond)
	}
}

func TestMoveLog_SupersedesPriorRecord(t *testing.T) {
	t.Parallel()

	l := NewMoveLog(10, stepClock())
	l.Record(3, 1, 2)
	l.Record(4, 0, 0)
	l.Record(3, 5, 0)

	if l.Len() != 2 {
		t.Fatalf("Len: got %d want 2", l.Len())
	}
	recs := l.Records()
	if recs[0].ItemID != 4 || recs[1].ItemID != 3 || recs[1].PrevItemID != 5 {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if recs[1].Seq <= recs[0].Seq {
		t.Fatalf("expected increasing seq: %+v", recs)
	}
}

func TestMoveLog_EvictsOldestPastCapacity(t *testing.T) {
	t.Parallel()

	l := NewMoveLog(DefaultMoveLogCapacity, stepClock())
	for i := uint64(1); i <= 1001; i++ {
		l.Record(i, 0, 0)
	}
	if l.Len() != 1000 {
		t.Fatalf("Len: got %d want 1000", l.Len())
	}
	recs := l.Records()
	if recs[0].ItemID != 2 || recs[len(recs)-1].ItemID != 1001 {
		t.Fatalf("expected records for items 2..1001, got first=%d last=%d", recs[0].ItemID, recs[len(recs)-1].ItemID)
	}
	for i := 1; i < len(recs); i++ {
		if !recs[i].Timestamp.After(recs[i-1].Timestamp) {
			t.Fatalf("timestamps not increasing at %d", i)
		}
	}
}

func TestMoveLog_RepeatedRecordDoesNotGrow(t *testing.T) {
	t.Parallel()

	l := NewMoveLog(3, stepClock())
	for i := 0; i < 5; i++ {
		l.Record(7, 1, 2)
	}
	if l.Len() != 1 {
		t.Fatalf("Len: got %d want 1", l.Len())
	}
	if l.Head() != 5 {
		t.Fatalf("Head: got %d want 5", l.Head())
	}
}

func TestMoveLog_NewerIsNewestFirst(t *testing.T) {
	t.Parallel()

	l := NewMoveLog(10, stepClock())
	l.Record(1, 0, 0)
	l.Record(2, 0, 0)
	l.Record(3, 0, 0)

	got := l.Newer(1)
	if len(got) != 2 || got[0].ItemID != 3 || got[1].ItemID != 2 {
		t.Fatalf("Newer(1): %+v", got)
	}
	if len(l.Newer(l.Head())) != 0 {
		t.Fatalf("expected nothing newer than head")
	}
	if !l.Forget(2) || l.Forget(2) {
		t.Fatalf("Forget should succeed once")
	}
}
