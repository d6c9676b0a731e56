package store

import (
	"errors"
	"sync"
	"time"

	"listd/internal/catalog"
	"listd/internal/model"
	"listd/internal/order"
)

const (
	DefaultIDChunkSize    = 5000
	MaxIDChunkSize        = 10000
	DefaultOrderSliceSize = 1000
	MaxOrderSliceSize     = 5000
)

type Options struct {
	Strategy          order.Strategy
	MoveLogCapacity   int
	MaxScopes         int
	ResolverCacheSize int

	// Now stamps move records; nil uses time.Now.
	Now func() time.Time
	// OnScopeEvicted is called (under the store lock) when a scoped overlay is dropped.
	OnScopeEvicted func(key string)
}

// Store is the process-scoped list state: the global overlay, scoped overlays, the move log and
// the selection set. Every read and write holds one mutex for its whole duration.
// The catalog is immutable and read without the lock.
type Store struct {
	cat *catalog.Catalog

	mu        sync.Mutex
	global    order.Overlay
	scopes    *order.Scopes
	moves     *order.MoveLog
	selection *Selection
	resolver  *order.Resolver

	// rev changes with every order-affecting write; resolved orders are cached per rev.
	rev uint64
}

func New(cat *catalog.Catalog, opts Options) (*Store, error) {
	if cat == nil {
		return nil, errors.New("store: nil catalog")
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = order.StrategyLayered
	}
	if _, err := order.ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	resolver, err := order.NewResolver(strategy, opts.ResolverCacheSize)
	if err != nil {
		return nil, err
	}
	// An evicted scope can go without a revision bump, so its memoized order goes with it.
	scopes, err := order.NewScopes(opts.MaxScopes, func(key string) {
		resolver.Forget(key)
		if opts.OnScopeEvicted != nil {
			opts.OnScopeEvicted(key)
		}
	})
	if err != nil {
		return nil, err
	}
	return &Store{
		cat:       cat,
		scopes:    scopes,
		moves:     order.NewMoveLog(opts.MoveLogCapacity, opts.Now),
		selection: NewSelection(),
		resolver:  resolver,
	}, nil
}

func (s *Store) Catalog() *catalog.Catalog { return s.cat }

func (s *Store) Strategy() order.Strategy { return s.resolver.Strategy() }

// resolveLocked returns the effective order of cands in scope. Callers hold s.mu.
func (s *Store) resolveLocked(scope string, cands *catalog.Subset) []uint64 {
	if scope == "" {
		return s.resolver.Resolve("", s.rev, cands, &s.global, s.moves)
	}
	overlay, _ := s.scopes.Get(scope)
	return s.resolver.Resolve(scope, s.rev, cands, overlay, s.moves)
}

// Summary is the getStateSummary payload.
type Summary struct {
	SelectedIDs              []uint64 `json:"selectedIds"`
	CustomOrderLength        int      `json:"customOrderLength"`
	SearchFiltersCount       int      `json:"searchFiltersCount"`
	ContextualPositionsCount int      `json:"contextualPositionsCount"`
}

func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		SelectedIDs:              s.selection.IDs(),
		CustomOrderLength:        len(s.global.IDs),
		SearchFiltersCount:       s.scopes.Len(),
		ContextualPositionsCount: s.moves.Len(),
	}
}

// OrderSlice is the getOrderSlice payload.
type OrderSlice struct {
	OrderSlice []uint64 `json:"orderSlice"`
	Start      int      `json:"start"`
	Total      int      `json:"total"`
	Search     string   `json:"search"`
}

// OrderSlice returns raw overlay ids [start, start+count): the scoped overlay when search is
// non-empty and one exists, else the global overlay.
func (s *Store) OrderSlice(start, count int, search string) OrderSlice {
	if start < 0 {
		start = 0
	}
	if count <= 0 {
		count = DefaultOrderSliceSize
	}
	if count > MaxOrderSliceSize {
		count = MaxOrderSliceSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.global.IDs
	if key := catalog.Normalize(search); key != "" {
		if o, ok := s.scopes.Get(key); ok {
			src = o.IDs
		}
	}
	lo, hi := window(start, count, len(src))
	return OrderSlice{
		OrderSlice: append(make([]uint64, 0, hi-lo), src[lo:hi]...),
		Start:      start,
		Total:      len(src),
		Search:     search,
	}
}

// MoveRecords returns a copy of the live move log, oldest first.
func (s *Store) MoveRecords() []model.MoveRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moves.Records()
}

// Stats is a point-in-time view used for metrics.
type Stats struct {
	Revision          uint64
	GlobalOrderLength int
	Scopes            int
	MoveLogSize       int
	MoveLogCapacity   int
	Selected          int
	ResolverHits      uint64
	ResolverMisses    uint64
}

func (s *Store) Stats() Stats {
	hits, misses := s.resolver.Stats()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Revision:          s.rev,
		GlobalOrderLength: len(s.global.IDs),
		Scopes:            s.scopes.Len(),
		MoveLogSize:       s.moves.Len(),
		MoveLogCapacity:   s.moves.Capacity(),
		Selected:          s.selection.Len(),
		ResolverHits:      hits,
		ResolverMisses:    misses,
	}
}

// window clamps [start, start+count) to [0, n].
func window(start, count, n int) (lo, hi int) {
	if start < 0 {
		start = 0
	}
	if count < 0 {
		count = 0
	}
	lo = start
	if lo > n {
		lo = n
	}
	hi = n
	if count < n-lo {
		hi = lo + count
	}
	return lo, hi
}
