package bigcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderRoundTrip(t *testing.T) {
	ctx := context.Background()
	p, err := New(Config{LifeWindow: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(ctx) })

	_, ok, err := p.Get(ctx, "total:roles:1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.Set(ctx, "total:roles:1", []byte("snap"), 1, 0)
	require.NoError(t, err)
	require.True(t, ok)

	b, ok, err := p.Get(ctx, "total:roles:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("snap"), b)

	require.NoError(t, p.Del(ctx, "total:roles:1"))
	require.NoError(t, p.Del(ctx, "total:roles:1"), "deleting a missing key is not an error")
	_, ok, _ = p.Get(ctx, "total:roles:1")
	assert.False(t, ok)
}

func TestNewRejectsZeroLifeWindow(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
