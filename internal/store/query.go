package store

import (
	"listd/internal/catalog"
	"listd/internal/model"
)

const DefaultPageLimit = 20

// PageQuery is one listPage request. Offset and Limit are already sanitized by the caller.
type PageQuery struct {
	Search         string
	Offset         int
	Limit          int
	UseStoredOrder bool
}

// Page is the listPage payload.
type Page struct {
	Items   []model.PageItem `json:"items"`
	HasMore bool             `json:"hasMore"`
	Total   int              `json:"total"`
	Search  string           `json:"search"`
}

// Page filters the catalog by q.Search, orders the result (stored order when requested, else
// baseline), slices [Offset, Offset+Limit) and annotates selection.
func (s *Store) Page(q PageQuery) Page {
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	key := catalog.Normalize(q.Search)
	cands := s.cat.Filter(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := cands.IDs()
	if q.UseStoredOrder {
		ids = s.resolveLocked(key, cands)
	}
	total := len(ids)
	lo, hi := window(q.Offset, q.Limit, total)

	seen := make(map[uint64]struct{}, hi-lo)
	items := make([]model.PageItem, 0, hi-lo)
	for _, id := range ids[lo:hi] {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		it, ok := s.cat.Item(id)
		if !ok {
			continue
		}
		items = append(items, model.PageItem{Item: it, Selected: s.selection.Contains(id)})
	}
	return Page{
		Items:   items,
		HasMore: q.Offset < total && q.Limit < total-q.Offset,
		Total:   total,
		Search:  q.Search,
	}
}
