package semcache

import (
	"context"
	"fmt"
	"testing"
)

func TestMemoryCacheHitAndMiss(t *testing.T) {
	cache := NewMemoryCache(0.2, 10)

	err := cache.Store(context.Background(), Entry{
		Vector: []float32{1, 0},
		Reply:  "Your EMI will be ₹21,494 per month.",
	})
	if err != nil {
		t.Fatal(err)
	}

	entry, hit, err := cache.Check(context.Background(), []float32{0.99, 0.14})
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Fatal("near-identical query should hit")
	}
	if entry.Reply != "Your EMI will be ₹21,494 per month." {
		t.Errorf("Reply = %q", entry.Reply)
	}

	_, hit, err = cache.Check(context.Background(), []float32{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("orthogonal query should miss")
	}
}

func TestMemoryCacheReturnsClosestEntry(t *testing.T) {
	cache := NewMemoryCache(0.5, 10)

	entries := []Entry{
		{Vector: []float32{1, 0}, Reply: "loan answer"},
		{Vector: []float32{0.8, 0.6}, Reply: "other answer"},
	}
	for _, e := range entries {
		if err := cache.Store(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}

	entry, hit, err := cache.Check(context.Background(), []float32{0.99, 0.05})
	if err != nil {
		t.Fatal(err)
	}
	if !hit || entry.Reply != "loan answer" {
		t.Errorf("got %+v, want closest entry", entry)
	}
}

func TestMemoryCacheBounded(t *testing.T) {
	cache := NewMemoryCache(0.2, 3)

	for i := 0; i < 10; i++ {
		err := cache.Store(context.Background(), Entry{
			Vector: []float32{1, 0},
			Reply:  fmt.Sprintf("reply %d", i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	if got := cache.Len(); got != 3 {
		t.Errorf("Len = %d, want bounded at 3", got)
	}
}

func TestNoopCacheAlwaysMisses(t *testing.T) {
	cache := NewNoopCache()

	if err := cache.Store(context.Background(), Entry{Vector: []float32{1, 0}, Reply: "x"}); err != nil {
		t.Fatal(err)
	}
	_, hit, err := cache.Check(context.Background(), []float32{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("noop cache must never hit")
	}
}
