package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ephtile/internal/resource"
)

func TestLRUBlockCache(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 100})
	c := NewLRUBlockCache(50, rc) // Cache limit 50, Global limit 100
	ctx := context.Background()

	k1 := Key{Path: "Norder3/Dir0/Npix1.eph", Size: 100, Block: 0}
	k2 := Key{Path: "Norder3/Dir0/Npix1.eph", Size: 100, Block: 1}
	k3 := Key{Path: "Norder3/Dir0/Npix1.eph", Size: 100, Block: 2}

	c.Set(ctx, k1, make([]byte, 20))
	assert.Equal(t, int64(20), c.Size())
	assert.Equal(t, int64(20), rc.MemoryUsage())

	c.Set(ctx, k2, make([]byte, 20))
	assert.Equal(t, int64(40), c.Size())
	assert.Equal(t, int64(40), rc.MemoryUsage())

	// 60 > 50 evicts k1.
	c.Set(ctx, k3, make([]byte, 20))
	assert.Equal(t, int64(40), c.Size())
	assert.Equal(t, int64(40), rc.MemoryUsage())

	_, ok := c.Get(ctx, k1)
	assert.False(t, ok)
	_, ok = c.Get(ctx, k2)
	assert.True(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	// Replacing an entry adjusts the accounted size.
	c.Set(ctx, k2, make([]byte, 5))
	assert.Equal(t, int64(25), c.Size())
	assert.Equal(t, int64(25), rc.MemoryUsage())

	// Oversized blocks are ignored.
	c.Set(ctx, Key{Path: "big"}, make([]byte, 51))
	assert.Equal(t, 2, c.Len())

	require.NoError(t, c.Close())
	assert.Zero(t, c.Size())
	assert.Zero(t, rc.MemoryUsage())
}

func TestLRUBlockCache_RecencyOrder(t *testing.T) {
	c := NewLRUBlockCache(30, nil)
	ctx := context.Background()

	a, b, d := Key{Path: "a"}, Key{Path: "b"}, Key{Path: "d"}
	c.Set(ctx, a, make([]byte, 10))
	c.Set(ctx, b, make([]byte, 10))
	c.Set(ctx, Key{Path: "c"}, make([]byte, 10))

	// Touch a so b becomes the eviction candidate.
	_, ok := c.Get(ctx, a)
	require.True(t, ok)
	c.Set(ctx, d, make([]byte, 10))

	_, ok = c.Get(ctx, a)
	assert.True(t, ok)
	_, ok = c.Get(ctx, b)
	assert.False(t, ok)
}

func TestLRUBlockCache_BudgetDenied(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 10})
	require.True(t, rc.TryAcquireMemory(8))

	c := NewLRUBlockCache(100, rc)
	c.Set(context.Background(), Key{Path: "x"}, make([]byte, 5))
	assert.Zero(t, c.Len())
	assert.Equal(t, int64(8), rc.MemoryUsage())
}

func TestLRUBlockCache_Invalidate(t *testing.T) {
	c := NewLRUBlockCache(1000, nil)
	ctx := context.Background()
	for i := int64(0); i < 4; i++ {
		c.Set(ctx, Key{Path: "a.eph", Block: i}, []byte{1})
		c.Set(ctx, Key{Path: "b.eph", Block: i}, []byte{2})
	}

	c.Invalidate(func(k Key) bool { return k.Path == "a.eph" })
	assert.Equal(t, 4, c.Len())
	_, ok := c.Get(ctx, Key{Path: "b.eph", Block: 3})
	assert.True(t, ok)
}

func TestShardedLRUBlockCache(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	c := NewShardedLRUBlockCache(16*1024, rc)
	ctx := context.Background()

	for i := 0; i < 64; i++ {
		c.Set(ctx, Key{Path: fmt.Sprintf("Npix%d.eph", i)}, make([]byte, 16))
	}
	assert.Equal(t, int64(64*16), c.Size())
	assert.Equal(t, int64(64*16), rc.MemoryUsage())

	v, ok := c.Get(ctx, Key{Path: "Npix7.eph"})
	require.True(t, ok)
	assert.Len(t, v, 16)
	_, ok = c.Get(ctx, Key{Path: "Npix7.eph", Block: 1})
	assert.False(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	c.Invalidate(func(k Key) bool { return k.Path == "Npix7.eph" })
	_, ok = c.Get(ctx, Key{Path: "Npix7.eph"})
	assert.False(t, ok)

	require.NoError(t, c.Close())
	assert.Zero(t, c.Size())
	assert.Zero(t, rc.MemoryUsage())
}
