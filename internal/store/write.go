package store

import (
	"listd/internal/model"
	"listd/internal/order"
)

// Applied describes what a write changed.
type Applied struct {
	Kind     WriteKind
	Scope    string
	Revision uint64
	// Changed is false when the write touched only the selection or was a no-op move.
	Changed bool
	// Record is the move record the write appended to the move log, if any.
	Record *model.MoveRecord
}

// Apply mutates the store according to w. Nothing is resorted here; reads resolve lazily.
func (s *Store) Apply(w Write) Applied {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.HasSelection {
		s.selection.Replace(w.Selection)
	}

	res := Applied{Kind: w.Kind, Scope: w.Scope}
	switch w.Kind {
	case FullReplace:
		s.replaceLocked(w.Scope, w.Order)
		res.Changed = true
	case IndexMove:
		if s.resolver.Strategy() == order.StrategyAnchor {
			if rec, ok := s.indexAsAnchorLocked(w.Scope, w.ItemID, w.NewIndex); ok {
				res.Record = &rec
				res.Changed = true
			}
			break
		}
		res.Changed = s.indexMoveLocked(w.Scope, w.ItemID, w.OldIndex, w.NewIndex)
	case AnchorMove:
		if rec, ok := s.anchorMoveLocked(w.Scope, w.ItemID, w.PrevItemID, w.NextItemID); ok {
			res.Record = &rec
			res.Changed = true
		}
	}
	if res.Changed {
		s.rev++
	}
	res.Revision = s.rev
	return res
}

func (s *Store) replaceLocked(scope string, ids []uint64) {
	kept := make([]uint64, 0, len(ids))
	for _, id := range order.Dedupe(ids) {
		if s.cat.Has(id) {
			kept = append(kept, id)
		}
	}
	o := order.Overlay{IDs: kept, Since: s.moves.Head()}
	if scope == "" {
		s.global = o
		return
	}
	s.scopes.Put(scope, &o)
}

// overlayLocked returns the mutable overlay for scope, creating an empty scoped one if needed.
func (s *Store) overlayLocked(scope string) *order.Overlay {
	if scope == "" {
		return &s.global
	}
	if o, ok := s.scopes.Get(scope); ok {
		return o
	}
	o := &order.Overlay{}
	s.scopes.Put(scope, o)
	return o
}

// prepareOverlayLocked makes the overlay for scope ready for an in-place edit. An empty overlay
// is seeded from the scope's baseline once. Under the layered strategy, anchor moves newer than
// the overlay are folded into it first, so index positions match what the client sees.
func (s *Store) prepareOverlayLocked(scope string) *order.Overlay {
	o := s.overlayLocked(scope)
	cands := s.cat.Filter(scope)
	if s.resolver.Strategy() == order.StrategyLayered && len(s.moves.Newer(o.Since)) > 0 {
		o.IDs = append([]uint64(nil), s.resolveLocked(scope, cands)...)
		o.Since = s.moves.Head()
		return o
	}
	if o.Empty() {
		o.IDs = append([]uint64(nil), cands.IDs()...)
	}
	return o
}

func (s *Store) indexMoveLocked(scope string, itemID uint64, oldIndex, newIndex int) bool {
	o := s.prepareOverlayLocked(scope)
	if oldIndex == newIndex || itemID == 0 || !s.cat.Has(itemID) {
		// Seeding alone does not change the effective order.
		return false
	}
	o.IDs = order.Relocate(o.IDs, itemID, newIndex)
	return true
}

func (s *Store) anchorMoveLocked(scope string, itemID, prevItemID, nextItemID uint64) (model.MoveRecord, bool) {
	if itemID == 0 || !s.cat.Has(itemID) {
		return model.MoveRecord{}, false
	}
	if s.resolver.Strategy() == order.StrategyIndex {
		o := s.prepareOverlayLocked(scope)
		o.IDs = order.PlaceByAnchors(o.IDs, itemID, prevItemID, nextItemID)
	}
	return s.moves.Record(itemID, prevItemID, nextItemID), true
}

// indexAsAnchorLocked turns an index move into a move record: the item lands between its
// neighbours at newIndex in the order the scope currently resolves to. The overlay is untouched.
func (s *Store) indexAsAnchorLocked(scope string, itemID uint64, newIndex int) (model.MoveRecord, bool) {
	if itemID == 0 || !s.cat.Has(itemID) {
		return model.MoveRecord{}, false
	}
	cur := s.resolveLocked(scope, s.cat.Filter(scope))
	rest := make([]uint64, 0, len(cur))
	at := -1
	for i, id := range cur {
		if id == itemID {
			at = i
			continue
		}
		rest = append(rest, id)
	}
	newIndex = min(max(newIndex, 0), len(rest))
	if at == newIndex {
		return model.MoveRecord{}, false
	}
	var prev, next uint64
	if newIndex > 0 {
		prev = rest[newIndex-1]
	}
	if newIndex < len(rest) {
		next = rest[newIndex]
	}
	return s.moves.Record(itemID, prev, next), true
}
