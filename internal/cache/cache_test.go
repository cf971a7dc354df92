package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoopCacheAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c StatsCache = NoopCache{}

	require.NoError(t, c.Set(ctx, "k", "f", []byte("v")))
	value, ok, err := c.Get(ctx, "k", "f")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, value)
	require.NoError(t, c.Invalidate(ctx, "k"))
}
