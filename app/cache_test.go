package app

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCacheStoreMemory(t *testing.T) {
	store, err := NewCacheStore("")
	require.NoError(t, err)

	_, ok := store.(*persist.MemoryStore)
	assert.True(t, ok)
}

func TestNewCacheStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewCacheStore(mr.Addr())
	require.NoError(t, err)

	require.NoError(t, store.Set("feed", "cached", time.Minute))

	var out string
	require.NoError(t, store.Get("feed", &out))
	assert.Equal(t, "cached", out)
	assert.Len(t, mr.Keys(), 1)
}

func TestNewCacheStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewCacheStore(addr)
	assert.Error(t, err)
}
