package order

import "github.com/RoaringBitmap/roaring/v2/roaring64"

// Dedupe returns ids with zero ids and repeats dropped, keeping the first occurrence.
func Dedupe(ids []uint64) []uint64 {
	seen := roaring64.New()
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || !seen.CheckedAdd(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func indexOf(seq []uint64, id uint64) int {
	for i, x := range seq {
		if x == id {
			return i
		}
	}
	return -1
}

// Remove deletes every occurrence of id from seq in place.
func Remove(seq []uint64, id uint64) []uint64 {
	out := seq[:0]
	for _, x := range seq {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// InsertAt inserts id before index idx. An idx outside [0, len(seq)] appends.
func InsertAt(seq []uint64, id uint64, idx int) []uint64 {
	if idx < 0 || idx > len(seq) {
		return append(seq, id)
	}
	seq = append(seq, 0)
	copy(seq[idx+1:], seq[idx:])
	seq[idx] = id
	return seq
}

// Relocate moves id to newIndex, measured after id has been removed.
func Relocate(seq []uint64, id uint64, newIndex int) []uint64 {
	return InsertAt(Remove(seq, id), id, newIndex)
}

// PlaceByAnchors moves id next to its anchors within seq:
// after prev when prev is present, else before next when next is present, else at the head.
// An anchor equal to id never resolves.
func PlaceByAnchors(seq []uint64, id, prev, next uint64) []uint64 {
	seq = Remove(seq, id)
	if prev != 0 && prev != id {
		if i := indexOf(seq, prev); i >= 0 {
			return InsertAt(seq, id, i+1)
		}
	}
	if next != 0 && next != id {
		if i := indexOf(seq, next); i >= 0 {
			return InsertAt(seq, id, i)
		}
	}
	return InsertAt(seq, id, 0)
}
