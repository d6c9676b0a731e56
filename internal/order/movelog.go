package order

import (
	"time"

	"listd/internal/model"
)

const DefaultMoveLogCapacity = 1000

// MoveLog is a bounded set of anchor moves keyed by item id.
// Records are kept oldest first; a new record for an item supersedes its previous one.
//
// MoveLog is not safe for concurrent use; the owning store serializes access.
type MoveLog struct {
	capacity int
	now      func() time.Time

	seq     uint64
	records []model.MoveRecord
}

// NewMoveLog returns an empty log. capacity <= 0 selects DefaultMoveLogCapacity; a nil now uses time.Now.
func NewMoveLog(capacity int, now func() time.Time) *MoveLog {
	if capacity <= 0 {
		capacity = DefaultMoveLogCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &MoveLog{
		capacity: capacity,
		now:      now,
		records:  make([]model.MoveRecord, 0, capacity),
	}
}

// Record stamps and appends a move for itemID, dropping any prior record for the same item and
// evicting the oldest records past capacity.
func (l *MoveLog) Record(itemID, prevItemID, nextItemID uint64) model.MoveRecord {
	l.Forget(itemID)
	l.seq++
	rec := model.MoveRecord{
		ItemID:     itemID,
		PrevItemID: prevItemID,
		NextItemID: nextItemID,
		Timestamp:  l.now().UTC(),
		Seq:        l.seq,
	}
	l.records = append(l.records, rec)
	if over := len(l.records) - l.capacity; over > 0 {
		l.records = append(l.records[:0], l.records[over:]...)
	}
	return rec
}

// Forget removes the live record for itemID, if any.
func (l *MoveLog) Forget(itemID uint64) bool {
	for i := range l.records {
		if l.records[i].ItemID == itemID {
			l.records = append(l.records[:i], l.records[i+1:]...)
			return true
		}
	}
	return false
}

func (l *MoveLog) Len() int { return len(l.records) }

func (l *MoveLog) Capacity() int { return l.capacity }

// Head is the sequence number of the latest record ever written (0 when none).
func (l *MoveLog) Head() uint64 { return l.seq }

// Records returns a copy of the live records, oldest first.
func (l *MoveLog) Records() []model.MoveRecord {
	return append([]model.MoveRecord(nil), l.records...)
}

// Newer returns the live records stamped after since, newest first.
func (l *MoveLog) Newer(since uint64) []model.MoveRecord {
	out := make([]model.MoveRecord, 0)
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].Seq <= since {
			break
		}
		out = append(out, l.records[i])
	}
	return out
}
