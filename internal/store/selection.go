package store

import "github.com/RoaringBitmap/roaring/v2/roaring64"

// Selection is the set of item ids the client marked selected. It is independent of ordering.
// Membership lives in a bitmap; order keeps the ids as the client first sent them.
type Selection struct {
	bm    *roaring64.Bitmap
	order []uint64
}

func NewSelection() *Selection {
	return &Selection{bm: roaring64.New(), order: []uint64{}}
}

// Replace swaps the whole set for ids. Zero ids and repeats are dropped.
func (s *Selection) Replace(ids []uint64) {
	bm := roaring64.New()
	order := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id != 0 && bm.CheckedAdd(id) {
			order = append(order, id)
		}
	}
	s.bm = bm
	s.order = order
}

func (s *Selection) Contains(id uint64) bool { return s.bm.Contains(id) }

func (s *Selection) Len() int { return len(s.order) }

// IDs returns a copy of the selected ids in first-seen order (never nil).
func (s *Selection) IDs() []uint64 {
	return append(make([]uint64, 0, len(s.order)), s.order...)
}
