package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("admits up to the limit and rejects the overflow", func(t *testing.T) {
		store := NewInMemoryStore()
		const limit = 5
		for i := 0; i < limit; i++ {
			ok, err := store.Allow(ctx, "1.2.3.4", limit, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok, "request %d should pass", i+1)
		}

		ok, err := store.Allow(ctx, "1.2.3.4", limit, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok, "request over the limit must be rejected")
	})

	t.Run("keys are independent", func(t *testing.T) {
		store := NewInMemoryStore()
		for i := 0; i < 3; i++ {
			_, err := store.Allow(ctx, "1.2.3.4", 3, time.Minute)
			require.NoError(t, err)
		}
		ok, err := store.Allow(ctx, "5.6.7.8", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired windows are pruned", func(t *testing.T) {
		store := NewInMemoryStore()
		for i := 0; i < 100; i++ {
			_, err := store.Allow(ctx, fmt.Sprintf("10.0.0.%d", i), 1, time.Millisecond)
			require.NoError(t, err)
		}

		time.Sleep(5 * time.Millisecond)

		_, err := store.Allow(ctx, "1.2.3.4", 1, time.Minute)
		require.NoError(t, err)

		store.mu.Lock()
		remaining := len(store.windows)
		store.mu.Unlock()
		assert.Equal(t, 1, remaining, "expired windows must not accumulate")
	})

	t.Run("a new window resets the count", func(t *testing.T) {
		store := NewInMemoryStore()
		ok, err := store.Allow(ctx, "1.2.3.4", 1, time.Millisecond)
		require.NoError(t, err)
		assert.True(t, ok)

		time.Sleep(5 * time.Millisecond)

		ok, err = store.Allow(ctx, "1.2.3.4", 1, time.Millisecond)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
