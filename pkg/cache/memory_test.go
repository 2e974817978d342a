package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingObserver struct {
	hits, misses int
}

func (o *countingObserver) CacheLookup(_, result string) {
	if result == "hit" {
		o.hits++
		return
	}
	o.misses++
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	observer := &countingObserver{}
	c := NewMemoryCache(time.Minute, time.Minute, observer, zaptest.NewLogger(t))

	var calories int
	found, err := c.Get(ctx, "estimate:apple", &calories)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "estimate:apple", 95, time.Minute))
	found, err = c.Get(ctx, "estimate:apple", &calories)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 95, calories)

	assert.Equal(t, 1, observer.hits)
	assert.Equal(t, 1, observer.misses)
	assert.NoError(t, c.Ping(ctx))
}

func TestMemoryCache_Structs(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute, nil, zaptest.NewLogger(t))

	type entry struct {
		Calories int `json:"calories"`
	}
	require.NoError(t, c.Set(ctx, "k", entry{Calories: 300}, time.Minute))

	var got entry
	found, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 300, got.Calories)
}

func TestMemoryCache_Expiration(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute, nil, zaptest.NewLogger(t))

	require.NoError(t, c.Set(ctx, "k", 1, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var v int
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}
