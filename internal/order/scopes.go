package order

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultMaxScopes = 256

// Overlay is a manual ordering for one scope.
// Since is the MoveLog head at the time the overlay was last replaced wholesale; only
// records stamped after it are replayed on top of the overlay.
type Overlay struct {
	IDs   []uint64
	Since uint64
}

func (o *Overlay) Empty() bool { return o == nil || len(o.IDs) == 0 }

// Scopes holds the search-scoped overlays, evicting the least recently used key past capacity.
type Scopes struct {
	cache *lru.Cache[string, *Overlay]
}

// NewScopes returns an empty scope table. onEvict, if non-nil, is called with each evicted key.
func NewScopes(size int, onEvict func(key string)) (*Scopes, error) {
	if size <= 0 {
		size = DefaultMaxScopes
	}
	cache, err := lru.NewWithEvict[string, *Overlay](size, func(key string, _ *Overlay) {
		if onEvict != nil {
			onEvict(key)
		}
	})
	if err != nil {
		return nil, err
	}
	return &Scopes{cache: cache}, nil
}

// Get returns the overlay for key and marks it as used.
func (s *Scopes) Get(key string) (*Overlay, bool) {
	return s.cache.Get(key)
}

// Peek returns the overlay for key without touching its recency.
func (s *Scopes) Peek(key string) (*Overlay, bool) {
	return s.cache.Peek(key)
}

func (s *Scopes) Put(key string, o *Overlay) {
	s.cache.Add(key, o)
}

func (s *Scopes) Len() int { return s.cache.Len() }

// Keys returns scope keys from least to most recently used.
func (s *Scopes) Keys() []string { return s.cache.Keys() }
