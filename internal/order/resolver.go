package order

import (
	"fmt"
	"strings"
	"sync/atomic"

	"listd/internal/model"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Strategy selects how overlays and the move log combine into an effective order.
type Strategy string

const (
	// StrategyLayered applies the scope overlay by index, then replays newer anchor moves on top.
	StrategyLayered Strategy = "layered"
	// StrategyIndex applies the scope overlay by index only. Anchor moves are folded into the
	// overlay at write time instead of being replayed.
	StrategyIndex Strategy = "index"
	// StrategyAnchor replays the whole move log over the baseline and ignores overlays. Index
	// moves are recorded as anchor moves against the order the client saw.
	StrategyAnchor Strategy = "anchor"
)

const DefaultResolverCacheSize = 8

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyLayered:
		return StrategyLayered, nil
	case StrategyIndex:
		return StrategyIndex, nil
	case StrategyAnchor:
		return StrategyAnchor, nil
	default:
		return "", fmt.Errorf("unknown ordering strategy: %q (want layered|index|anchor)", s)
	}
}

// Candidates is the filtered item set a resolution runs over, in baseline order.
type Candidates interface {
	IDs() []uint64
	Contains(id uint64) bool
}

// IndexOrder orders candidates by their position in overlay. Candidates missing from the overlay
// follow in baseline order. Overlay ids that are not candidates, and repeats, are skipped.
func IndexOrder(c Candidates, overlay []uint64) []uint64 {
	base := c.IDs()
	if len(overlay) == 0 {
		return base
	}
	out := make([]uint64, 0, len(base))
	placed := roaring64.New()
	for _, id := range overlay {
		if !c.Contains(id) || !placed.CheckedAdd(id) {
			continue
		}
		out = append(out, id)
	}
	for _, id := range base {
		if !placed.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// AnchorReplay applies records (newest first) to seq. Each record whose item is in seq is
// removed and reinserted after its previous anchor, else before its next anchor, else at the
// head. Anchors resolve against the sequence as it stands at that step.
//
// seq is not modified.
func AnchorReplay(seq []uint64, records []model.MoveRecord) []uint64 {
	if len(seq) == 0 || len(records) == 0 {
		return seq
	}

	pos := make(map[uint64]int32, 3*len(records))
	for _, r := range records {
		pos[r.ItemID] = -1
		if r.PrevItemID != 0 {
			pos[r.PrevItemID] = -1
		}
		if r.NextItemID != 0 {
			pos[r.NextItemID] = -1
		}
	}
	found := 0
	for i, id := range seq {
		if p, ok := pos[id]; ok && p < 0 {
			pos[id] = int32(i)
			found++
			if found == len(pos) {
				break
			}
		}
	}

	// Circular doubly linked list over seq positions; index n is the head sentinel.
	n := int32(len(seq))
	next := make([]int32, n+1)
	prev := make([]int32, n+1)
	for i := int32(0); i <= n; i++ {
		next[i] = (i + 1) % (n + 1)
		prev[i] = (i + n) % (n + 1)
	}
	unlink := func(i int32) {
		next[prev[i]] = next[i]
		prev[next[i]] = prev[i]
	}
	insertAfter := func(i, at int32) {
		next[i] = next[at]
		prev[i] = at
		prev[next[at]] = i
		next[at] = i
	}
	resolve := func(anchor, item uint64) int32 {
		if anchor == 0 || anchor == item {
			return -1
		}
		p, ok := pos[anchor]
		if !ok {
			return -1
		}
		return p
	}

	moved := false
	for _, r := range records {
		i, ok := pos[r.ItemID]
		if !ok || i < 0 {
			continue
		}
		moved = true
		unlink(i)
		// prev wins whenever it resolves, including when next now sits before it.
		switch p, nx := resolve(r.PrevItemID, r.ItemID), resolve(r.NextItemID, r.ItemID); {
		case p >= 0:
			insertAfter(i, p)
		case nx >= 0:
			insertAfter(i, prev[nx])
		default:
			insertAfter(i, n)
		}
	}
	if !moved {
		return seq
	}

	out := make([]uint64, 0, len(seq))
	for i := next[n]; i != n; i = next[i] {
		out = append(out, seq[i])
	}
	return out
}

// Resolver computes effective orders and memoizes them per scope.
type Resolver struct {
	strategy Strategy
	cache    *lru.Cache[string, resolved]

	hits   atomic.Uint64
	misses atomic.Uint64
}

type resolved struct {
	rev uint64
	ids []uint64
}

func NewResolver(strategy Strategy, cacheSize int) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultResolverCacheSize
	}
	cache, err := lru.New[string, resolved](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Resolver{strategy: strategy, cache: cache}, nil
}

func (r *Resolver) Strategy() Strategy { return r.strategy }

// Resolve returns the effective order of c within scope. rev must change whenever the overlay or
// the move log changes; results for the same (scope, rev) are served from cache.
// The returned slice is shared and must not be modified.
func (r *Resolver) Resolve(scope string, rev uint64, c Candidates, overlay *Overlay, log *MoveLog) []uint64 {
	if hit, ok := r.cache.Get(scope); ok && hit.rev == rev {
		r.hits.Add(1)
		return hit.ids
	}
	r.misses.Add(1)

	ids := c.IDs()
	switch r.strategy {
	case StrategyAnchor:
		if log != nil {
			ids = AnchorReplay(ids, log.Newer(0))
		}
	default:
		var since uint64
		if !overlay.Empty() {
			ids = IndexOrder(c, overlay.IDs)
			since = overlay.Since
		}
		if r.strategy == StrategyLayered && log != nil {
			ids = AnchorReplay(ids, log.Newer(since))
		}
	}
	r.cache.Add(scope, resolved{rev: rev, ids: ids})
	return ids
}

// Forget drops the memoized order for scope.
func (r *Resolver) Forget(scope string) {
	r.cache.Remove(scope)
}

// Stats reports cache hits and misses since construction.
func (r *Resolver) Stats() (hits, misses uint64) {
	return r.hits.Load(), r.misses.Load()
}
