package kvstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetRemove(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "auth_token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "auth_token", "t1"))
	require.NoError(t, store.Set(ctx, "auth_token", "t2"))

	val, err := store.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "t2", val)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Remove(ctx, "auth_token"))
	_, err = store.Get(ctx, "auth_token")
	assert.ErrorIs(t, err, ErrNotFound)

	// removing again is fine
	assert.NoError(t, store.Remove(ctx, "auth_token"))
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%10)
			_ = store.Set(ctx, key, "v")
			_, _ = store.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, store.Len())
}
