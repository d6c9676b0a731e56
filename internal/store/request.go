package store

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"listd/internal/catalog"
	"listd/internal/order"
)

// SaveStateRequest is the loosely typed save-state payload as clients send it.
// Use Write to normalize it before it reaches the store.
type SaveStateRequest struct {
	SelectedIDs  *LooseIDs     `json:"selectedIds,omitempty"`
	CustomOrder  LooseIDs      `json:"customOrder,omitempty"`
	OrderChanges *OrderChanges `json:"orderChanges,omitempty"`
	Search       LooseString   `json:"search,omitempty"`
}

// OrderChanges carries either an index move ({itemId, oldIndex, newIndex}) or an anchor move
// ({itemId, prevItemId, nextItemId}). The presence of either anchor key selects the anchor shape.
type OrderChanges struct {
	ItemID     LooseID   `json:"itemId"`
	OldIndex   *LooseInt `json:"oldIndex,omitempty"`
	NewIndex   *LooseInt `json:"newIndex,omitempty"`
	PrevItemID *LooseID  `json:"prevItemId,omitempty"`
	NextItemID *LooseID  `json:"nextItemId,omitempty"`

	Anchored bool `json:"-"`
}

func IndexChange(itemID uint64, oldIndex, newIndex int) *OrderChanges {
	o, n := LooseInt(oldIndex), LooseInt(newIndex)
	return &OrderChanges{ItemID: LooseID(itemID), OldIndex: &o, NewIndex: &n}
}

// AnchorChange builds an anchor move. A zero anchor is sent as null.
func AnchorChange(itemID, prevItemID, nextItemID uint64) *OrderChanges {
	oc := &OrderChanges{ItemID: LooseID(itemID), Anchored: true}
	if prevItemID != 0 {
		p := LooseID(prevItemID)
		oc.PrevItemID = &p
	}
	if nextItemID != 0 {
		n := LooseID(nextItemID)
		oc.NextItemID = &n
	}
	return oc
}

func (oc *OrderChanges) UnmarshalJSON(b []byte) error {
	*oc = OrderChanges{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		// Not an object: leave the zero value, which is a no-op index move.
		return nil
	}
	if v, ok := raw["itemId"]; ok {
		oc.ItemID = LooseID(parseLooseUint(v))
	}
	if v, ok := raw["oldIndex"]; ok {
		n := LooseInt(parseLooseInt(v))
		oc.OldIndex = &n
	}
	if v, ok := raw["newIndex"]; ok {
		n := LooseInt(parseLooseInt(v))
		oc.NewIndex = &n
	}
	if v, ok := raw["prevItemId"]; ok {
		oc.Anchored = true
		if id := parseLooseUint(v); id != 0 {
			p := LooseID(id)
			oc.PrevItemID = &p
		}
	}
	if v, ok := raw["nextItemId"]; ok {
		oc.Anchored = true
		if id := parseLooseUint(v); id != 0 {
			n := LooseID(id)
			oc.NextItemID = &n
		}
	}
	return nil
}

func (oc OrderChanges) MarshalJSON() ([]byte, error) {
	m := map[string]any{"itemId": uint64(oc.ItemID)}
	if oc.Anchored {
		m["prevItemId"] = oc.PrevItemID
		m["nextItemId"] = oc.NextItemID
	} else {
		if oc.OldIndex != nil {
			m["oldIndex"] = int(*oc.OldIndex)
		}
		if oc.NewIndex != nil {
			m["newIndex"] = int(*oc.NewIndex)
		}
	}
	return json.Marshal(m)
}

// LooseID is an item id that accepts JSON numbers or numeric strings. Anything else decodes to 0.
type LooseID uint64

func (id *LooseID) UnmarshalJSON(b []byte) error {
	*id = LooseID(parseLooseUint(b))
	return nil
}

// LooseInt is an integer that accepts JSON numbers or numeric strings. Anything else decodes to 0.
type LooseInt int

func (n *LooseInt) UnmarshalJSON(b []byte) error {
	*n = LooseInt(parseLooseInt(b))
	return nil
}

// LooseIDs is a list of ids. A non-array value decodes to an empty list.
type LooseIDs []LooseID

func (ids *LooseIDs) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		*ids = LooseIDs{}
		return nil
	}
	out := make(LooseIDs, 0, len(raw))
	for _, v := range raw {
		out = append(out, LooseID(parseLooseUint(v)))
	}
	*ids = out
	return nil
}

func (ids LooseIDs) Uint64s() []uint64 {
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return out
}

// LooseString accepts a JSON string, or a number rendered as its literal text.
type LooseString string

func (s *LooseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = LooseString(str)
		return nil
	}
	if len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')) {
		*s = LooseString(b)
		return nil
	}
	*s = ""
	return nil
}

func looseText(b []byte) string {
	b = bytes.TrimSpace(b)
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(b)
}

func parseLooseInt(b []byte) int64 {
	s := looseText(b)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return 0
}

func parseLooseUint(b []byte) uint64 {
	n := parseLooseInt(b)
	if n < 0 {
		return 0
	}
	return uint64(n)
}

// WriteKind discriminates normalized save-state writes.
type WriteKind int

const (
	SelectionOnly WriteKind = iota
	FullReplace
	IndexMove
	AnchorMove
)

func (k WriteKind) String() string {
	switch k {
	case FullReplace:
		return "full_replace"
	case IndexMove:
		return "index_move"
	case AnchorMove:
		return "anchor_move"
	default:
		return "selection_only"
	}
}

// Write is a validated save-state request.
type Write struct {
	Kind WriteKind

	// HasSelection reports whether Selection replaces the selection set.
	HasSelection bool
	Selection    []uint64

	// Search is the raw search text; Scope is its normalized key ("" = global).
	Search string
	Scope  string

	Order []uint64

	ItemID     uint64
	OldIndex   int
	NewIndex   int
	PrevItemID uint64
	NextItemID uint64
}

// Write normalizes the request. It never fails: unusable fields degrade to their defaults.
func (r SaveStateRequest) Write() Write {
	w := Write{
		Search: string(r.Search),
		Scope:  catalog.Normalize(string(r.Search)),
	}
	if r.SelectedIDs != nil {
		w.HasSelection = true
		w.Selection = order.Dedupe(r.SelectedIDs.Uint64s())
	}

	if ids := order.Dedupe(r.CustomOrder.Uint64s()); len(ids) > 0 {
		w.Kind = FullReplace
		w.Order = ids
		return w
	}
	oc := r.OrderChanges
	if oc == nil {
		w.Kind = SelectionOnly
		return w
	}
	w.ItemID = uint64(oc.ItemID)
	if oc.Anchored {
		w.Kind = AnchorMove
		if oc.PrevItemID != nil {
			w.PrevItemID = uint64(*oc.PrevItemID)
		}
		if oc.NextItemID != nil {
			w.NextItemID = uint64(*oc.NextItemID)
		}
		return w
	}
	w.Kind = IndexMove
	if oc.OldIndex != nil {
		w.OldIndex = int(*oc.OldIndex)
	}
	if oc.NewIndex != nil {
		w.NewIndex = int(*oc.NewIndex)
	}
	return w
}
