package demand

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/weatherdesk/degreeday/internal/grid"
)

// ErrNoMass reports that the weight grid, resampled onto the requested axes,
// carries no weight at all: the field's domain does not overlap the demand
// grid. Non-fatal; the caller falls back to the unweighted mean.
var ErrNoMass = errors.New("weight grid has no mass over target axes")

// Weights serves the built weight grid resampled onto arbitrary target axes,
// with an LRU cache keyed by the axes' signature. Model grids repeat across
// forecast days and runs, so in steady state every lookup after the first
// per model is a cache hit. Safe for concurrent use.
type Weights struct {
	source *grid.Grid
	cache  *lruCache
}

// NewWeights wraps a normalized weight grid. maxEntries bounds the number of
// distinct target grids cached; one per model is typical.
func NewWeights(source *grid.Grid, maxEntries int) *Weights {
	return &Weights{source: source, cache: newLRUCache(maxEntries)}
}

// For returns the weight grid resampled onto the given axes, clamped to
// non-negative and re-normalized to sum 1 over those axes. The result is
// shared across callers and must be treated as immutable.
func (w *Weights) For(lats, lons []float64) (*grid.Grid, error) {
	key := axesKey(lats, lons)
	if g, ok := w.cache.get(key); ok {
		return g, nil
	}

	resampled, err := w.source.Resample(lats, lons)
	if err != nil {
		return nil, fmt.Errorf("resample weights: %w", err)
	}
	var total float64
	for _, row := range resampled.Values {
		for j, v := range row {
			if v < 0 {
				row[j] = 0
				continue
			}
			total += v
		}
	}
	if total == 0 {
		return nil, ErrNoMass
	}
	for _, row := range resampled.Values {
		for j := range row {
			row[j] /= total
		}
	}

	w.cache.put(key, resampled)
	return resampled, nil
}

// axesKey builds a collision-resistant signature of the target axes.
func axesKey(lats, lons []float64) string {
	h := sha256.New()
	var buf [8]byte
	writeAxis := func(axis []float64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(axis)))
		h.Write(buf[:])
		for _, v := range axis {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	writeAxis(lats)
	writeAxis(lons)
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// lruCache is a simple thread-safe LRU cache for resampled weight grids.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value *grid.Grid
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (*grid.Grid, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.remove(e)
	c.pushFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value *grid.Grid) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.value = value
		c.remove(e)
		c.pushFront(e)
		return
	}
	if len(c.entries) >= c.maxEntries {
		c.evictTail()
	}
	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.pushFront(e)
}

func (c *lruCache) pushFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
