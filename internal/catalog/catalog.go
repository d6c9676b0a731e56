package catalog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"listd/internal/model"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultSize            = 1_000_000
	DefaultValuePrefix     = "Item"
	DefaultFilterCacheSize = 64

	// MaxSize keeps every position plus one sentinel addressable as an int32.
	MaxSize = math.MaxInt32 - 1
)

// Catalog is the immutable backing collection. Item ids are dense: 1..Len().
type Catalog struct {
	items  []model.Item
	folded []string
	all    *Subset

	filters *lru.Cache[string, *Subset]
}

type Option func(*options)

type options struct {
	prefix          string
	filterCacheSize int
}

func WithValuePrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithFilterCacheSize bounds how many distinct search results are memoized.
func WithFilterCacheSize(n int) Option {
	return func(o *options) { o.filterCacheSize = n }
}

// New generates a catalog of size items: id i+1, value "<prefix> <i+1>", baseline position i+1.
func New(size int, opts ...Option) (*Catalog, error) {
	if size < 0 {
		return nil, errors.New("catalog size must be >= 0")
	}
	if size > MaxSize {
		return nil, fmt.Errorf("catalog size %d exceeds %d", size, MaxSize)
	}
	o := options{prefix: DefaultValuePrefix, filterCacheSize: DefaultFilterCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.filterCacheSize <= 0 {
		o.filterCacheSize = DefaultFilterCacheSize
	}
	filters, err := lru.New[string, *Subset](o.filterCacheSize)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		items:   make([]model.Item, size),
		folded:  make([]string, size),
		filters: filters,
	}
	foldedPrefix := Normalize(o.prefix)
	for i := 0; i < size; i++ {
		n := uint64(i + 1)
		digits := strconv.FormatUint(n, 10)
		value := o.prefix + " " + digits
		c.items[i] = model.Item{
			ID:           n,
			Value:        value,
			Position:     n,
			NumericValue: numericSuffix(value),
		}
		c.folded[i] = foldedPrefix + " " + digits
	}

	ids := make([]uint64, size)
	for i := range ids {
		ids[i] = uint64(i + 1)
	}
	members := roaring64.New()
	if size > 0 {
		members.AddRange(1, uint64(size)+1)
	}
	c.all = &Subset{ids: ids, members: members}
	return c, nil
}

// Normalize folds a search string into its scope key.
func Normalize(search string) string {
	if search == "" {
		return ""
	}
	return cases.Lower(language.Und).String(search)
}

func (c *Catalog) Len() int { return len(c.items) }

func (c *Catalog) Has(id uint64) bool {
	return id >= 1 && id <= uint64(len(c.items))
}

func (c *Catalog) Item(id uint64) (model.Item, bool) {
	if !c.Has(id) {
		return model.Item{}, false
	}
	return c.items[id-1], true
}

// All returns every id in baseline order.
func (c *Catalog) All() *Subset { return c.all }

// Filter returns the ids whose value contains key (already normalized), in baseline order.
// An empty key matches everything.
func (c *Catalog) Filter(key string) *Subset {
	if key == "" {
		return c.all
	}
	if s, ok := c.filters.Get(key); ok {
		return s
	}
	ids := make([]uint64, 0)
	for i, v := range c.folded {
		if strings.Contains(v, key) {
			ids = append(ids, uint64(i+1))
		}
	}
	members := roaring64.New()
	members.AddMany(ids)
	s := &Subset{ids: ids, members: members}
	c.filters.Add(key, s)
	return s
}

// Subset is a filtered view of the catalog in baseline order. It is read-only.
type Subset struct {
	ids     []uint64
	members *roaring64.Bitmap
}

func (s *Subset) IDs() []uint64 { return s.ids }

func (s *Subset) Len() int { return len(s.ids) }

func (s *Subset) Contains(id uint64) bool { return s.members.Contains(id) }

// numericSuffix extracts the trailing number of a generated value. Values without one sort last.
func numericSuffix(value string) uint64 {
	i := strings.LastIndexByte(value, ' ')
	if i < 0 {
		return math.MaxUint64
	}
	n, err := strconv.ParseUint(value[i+1:], 10, 64)
	if err != nil {
		return math.MaxUint64
	}
	return n
}
