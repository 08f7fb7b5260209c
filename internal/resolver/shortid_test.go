package resolver

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concord-ai/concord/internal/evolution"
	"github.com/concord-ai/concord/pkg/docstore"
)

func setupResolver(t *testing.T) (*docstore.Client, *evolution.Manager) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := docstore.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, evolution.NewManager(store)
}

func TestResolveThreadID(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves a full id", func(t *testing.T) {
		store, m := setupResolver(t)
		id, err := m.CreateThread(ctx, "full id thread", "desc", "claude", "incremental", nil)
		require.NoError(t, err)

		resolved, err := ResolveThreadID(ctx, store, id)
		require.NoError(t, err)
		assert.Equal(t, id, resolved)
	})

	t.Run("resolves a unique prefix", func(t *testing.T) {
		store, m := setupResolver(t)
		id, err := m.CreateThread(ctx, "prefix thread", "desc", "claude", "incremental", nil)
		require.NoError(t, err)

		resolved, err := ResolveThreadID(ctx, store, id[:len("thread_")+6])
		require.NoError(t, err)
		assert.Equal(t, id, resolved)
	})

	t.Run("resolves without the thread_ prefix", func(t *testing.T) {
		store, m := setupResolver(t)
		id, err := m.CreateThread(ctx, "bare prefix thread", "desc", "claude", "incremental", nil)
		require.NoError(t, err)

		resolved, err := ResolveThreadID(ctx, store, id[len("thread_"):])
		require.NoError(t, err)
		assert.Equal(t, id, resolved)
	})

	t.Run("rejects too-short prefixes", func(t *testing.T) {
		store, _ := setupResolver(t)

		_, err := ResolveThreadID(ctx, store, "abc")
		assert.ErrorContains(t, err, "at least 6 characters")
	})

	t.Run("unknown full id fails", func(t *testing.T) {
		store, _ := setupResolver(t)

		_, err := ResolveThreadID(ctx, store, "thread_000000000000")
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("unknown prefix fails", func(t *testing.T) {
		store, _ := setupResolver(t)

		_, err := ResolveThreadID(ctx, store, "ffffff")
		assert.True(t, IsNotFoundError(err))
	})
}

func TestFormatAmbiguousError(t *testing.T) {
	err := &AmbiguousError{
		ShortID: "thread_ab",
		Matches: []string{"thread_ab0000000001", "thread_ab0000000002"},
	}
	msg := FormatAmbiguousError(err)
	assert.Contains(t, msg, "matches 2 threads")
	assert.Contains(t, msg, "thread_ab0000000001")
	assert.Contains(t, msg, "longer prefix")
}
