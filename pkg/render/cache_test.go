package render

import (
	"context"
	"image"
	"testing"
)

func testVariant() Variant {
	return Variant{
		Fingerprint: "abc123",
		HasMeta:     true,
		ShowColumns: true,
		StatsHash:   "s1",
	}
}

func testPair() BitmapPair {
	return BitmapPair{Normal: image.NewRGBA(image.Rect(0, 0, 10, 10))}
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	v := testVariant()

	if _, ok := c.Get(ctx, 1.0, "users", v); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	pair := testPair()
	c.Put(ctx, 1.0, "users", v, pair)

	got, ok := c.Get(ctx, 1.0, "users", v)
	if !ok {
		t.Fatal("expected hit after put")
	}
	if got.Normal != pair.Normal {
		t.Error("returned different bitmap")
	}
	if !c.Has(1.0, "users", v) {
		t.Error("Has should report the stored variant")
	}
}

func TestCacheVariantMismatchIsMiss(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	c.Put(ctx, 1.0, "users", testVariant(), testPair())

	v := testVariant()
	v.ShowNulls = true
	if _, ok := c.Get(ctx, 1.0, "users", v); ok {
		t.Error("different presentation variant must miss")
	}
	v = testVariant()
	if _, ok := c.Get(ctx, 2.0, "users", v); ok {
		t.Error("different zoom must miss")
	}
}

func TestCacheKeepsAllVariants(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	v := testVariant()
	nulls := v
	nulls.ShowNulls = true

	c.Put(ctx, 1.0, "users", v, testPair())
	c.Put(ctx, 1.0, "users", nulls, testPair())

	// Toggling a display option and back must hit both ways.
	if _, ok := c.Get(ctx, 1.0, "users", nulls); !ok {
		t.Error("second variant missing")
	}
	if _, ok := c.Get(ctx, 1.0, "users", v); !ok {
		t.Error("storing a second variant must not evict the first")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCacheCrossZoomEviction(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	v := testVariant()
	c.Put(ctx, 1.0, "users", v, testPair())
	c.Put(ctx, 2.0, "users", v, testPair())
	c.Put(ctx, 1.0, "orders", v, testPair())

	// A presentation-only change keeps the other zoom level.
	v2 := v
	v2.ShowNulls = true
	c.Put(ctx, 1.0, "users", v2, testPair())
	if _, ok := c.Get(ctx, 2.0, "users", v); !ok {
		t.Error("presentation change must not evict other zoom levels")
	}

	// A schema change evicts the identity everywhere else.
	v3 := v
	v3.Fingerprint = "changed"
	c.Put(ctx, 1.0, "users", v3, testPair())
	if _, ok := c.Get(ctx, 2.0, "users", v); ok {
		t.Error("schema change must evict the identity at other zoom levels")
	}
	if _, ok := c.Get(ctx, 1.0, "orders", v); !ok {
		t.Error("other identities must survive the eviction")
	}
}

func TestCacheDropAndClear(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	v := testVariant()
	c.Put(ctx, 1.0, "users", v, testPair())
	c.Put(ctx, 2.0, "users", v, testPair())
	c.Put(ctx, 1.0, "orders", v, testPair())

	c.Drop(ctx, "users")
	if c.Len() != 1 {
		t.Errorf("after drop: %d entries, want 1", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("after clear: %d entries, want 0", c.Len())
	}
}
