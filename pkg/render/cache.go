package render

import (
	"context"
	"sync"

	"github.com/tablemap/tablemap/pkg/observability"
)

// Variant discriminates one rendered entity bitmap. Two bitmaps of the same
// entity at the same zoom are interchangeable only when every field matches.
type Variant struct {
	Fingerprint        string // hash of the entity's defining SQL
	HasMeta            bool   // column metadata was available
	ShowColumns        bool
	ShowKeyColumnsOnly bool
	ShowNulls          bool
	StatsHash          string // hash of the statistics footer content
	Dragged            bool
}

// Cache memoizes rendered entity bitmaps per zoom level and identity.
//
// Each (zoom, identity) slot holds one entry per variant, so toggling a
// display option back and forth reuses both bitmaps. Storing a variant whose
// schema content changed (fingerprint or metadata availability) evicts every
// other variant of that identity at every zoom level, since those bitmaps
// show an outdated entity. Presentation-only changes evict nothing.
type Cache struct {
	mu    sync.RWMutex
	zooms map[float64]map[string]map[Variant]BitmapPair
}

// NewCache creates an empty render cache.
func NewCache() *Cache {
	return &Cache{zooms: make(map[float64]map[string]map[Variant]BitmapPair)}
}

// Has reports whether a bitmap for exactly this variant is cached.
func (c *Cache) Has(zoom float64, identity string, v Variant) bool {
	_, ok := c.Get(context.Background(), zoom, identity, v)
	return ok
}

// Get returns the cached bitmaps for the variant, if present.
func (c *Cache) Get(ctx context.Context, zoom float64, identity string, v Variant) (BitmapPair, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if pair, ok := c.zooms[zoom][identity][v]; ok {
		observability.Cache().OnCacheHit(ctx, "render")
		return pair, true
	}
	observability.Cache().OnCacheMiss(ctx, "render")
	return BitmapPair{}, false
}

// Put stores the bitmaps for a variant, evicting every stale variant of the
// same identity when the schema content changed.
func (c *Cache) Put(ctx context.Context, zoom float64, identity string, v Variant, pair BitmapPair) {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for _, entries := range c.zooms {
		variants := entries[identity]
		for old := range variants {
			if old.Fingerprint != v.Fingerprint || old.HasMeta != v.HasMeta {
				delete(variants, old)
				evicted++
			}
		}
		if len(variants) == 0 {
			delete(entries, identity)
		}
	}
	if evicted > 0 {
		observability.Cache().OnCacheEvict(ctx, "render", evicted)
	}

	if c.zooms[zoom] == nil {
		c.zooms[zoom] = make(map[string]map[Variant]BitmapPair)
	}
	if c.zooms[zoom][identity] == nil {
		c.zooms[zoom][identity] = make(map[Variant]BitmapPair)
	}
	c.zooms[zoom][identity][v] = pair
	observability.Cache().OnCacheSet(ctx, "render", pair.size())
}

// Drop removes an identity from every zoom level.
func (c *Cache) Drop(ctx context.Context, identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for _, entries := range c.zooms {
		if variants, ok := entries[identity]; ok {
			delete(entries, identity)
			evicted += len(variants)
		}
	}
	if evicted > 0 {
		observability.Cache().OnCacheEvict(ctx, "render", evicted)
	}
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zooms = make(map[float64]map[string]map[Variant]BitmapPair)
}

// Len returns the number of cached variants across all zoom levels.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, entries := range c.zooms {
		for _, variants := range entries {
			n += len(variants)
		}
	}
	return n
}

// size approximates the pixel payload for cache instrumentation.
func (p BitmapPair) size() int {
	n := 0
	if p.Normal != nil {
		b := p.Normal.Bounds()
		n += b.Dx() * b.Dy() * 4
	}
	if p.Selected != nil {
		b := p.Selected.Bounds()
		n += b.Dx() * b.Dy() * 4
	}
	return n
}
