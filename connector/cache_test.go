package connector

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anuj67851/graph-rag-metadata/helper"
)

func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cache, err := NewRedisCache(mr.Addr(), "", 0, "query:", helper.NewTestLogger())
	require.NoError(t, err)
	require.NotNil(t, cache)

	return cache, mr
}

func TestNewRedisCache(t *testing.T) {
	t.Run("connects to reachable server", func(t *testing.T) {
		cache, _ := setupTestCache(t)
		defer cache.Close()
		assert.NotNil(t, cache.client)
	})

	t.Run("unreachable server returns error", func(t *testing.T) {
		_, err := NewRedisCache("localhost:1", "", 0, "query:", helper.NewTestLogger())
		assert.Error(t, err)
	})
}

func TestRedisCache_Key(t *testing.T) {
	cache, _ := setupTestCache(t)
	defer cache.Close()

	t.Run("stable under filter permutation", func(t *testing.T) {
		a := cache.Key("what is radium", []string{"a.pdf", "b.pdf", "c.pdf"})
		b := cache.Key("what is radium", []string{"c.pdf", "a.pdf", "b.pdf"})
		assert.Equal(t, a, b)
	})

	t.Run("prefixed", func(t *testing.T) {
		key := cache.Key("what is radium", nil)
		assert.Contains(t, key, "query:")
	})

	t.Run("distinct filter sets give distinct keys", func(t *testing.T) {
		unfiltered := cache.Key("what is radium", nil)
		filtered := cache.Key("what is radium", []string{"x.pdf"})
		assert.NotEqual(t, unfiltered, filtered)
	})

	t.Run("distinct queries give distinct keys", func(t *testing.T) {
		a := cache.Key("what is radium", nil)
		b := cache.Key("what is polonium", nil)
		assert.NotEqual(t, a, b)
	})

	t.Run("empty filter equals absent filter", func(t *testing.T) {
		absent := cache.Key("what is radium", nil)
		empty := cache.Key("what is radium", []string{})
		assert.Equal(t, absent, empty)
	})
}

func TestRedisCache_RoundTrip(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer cache.Close()
	ctx := context.Background()

	t.Run("set then get returns the value", func(t *testing.T) {
		key := cache.Key("round trip", nil)
		require.NoError(t, cache.Set(ctx, key, []byte(`{"answer":"42"}`), time.Hour))

		data, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"answer":"42"}`), data)
	})

	t.Run("get on absent key is a miss", func(t *testing.T) {
		data, err := cache.Get(ctx, cache.Key("never written", nil))
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("filtered and unfiltered responses do not collide", func(t *testing.T) {
		unfiltered := cache.Key("same query", nil)
		filtered := cache.Key("same query", []string{"x.pdf"})
		require.NoError(t, cache.Set(ctx, unfiltered, []byte("global answer"), time.Hour))

		data, err := cache.Get(ctx, filtered)
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("entry expires after TTL", func(t *testing.T) {
		key := cache.Key("expiring", nil)
		require.NoError(t, cache.Set(ctx, key, []byte("soon gone"), time.Minute))

		mr.FastForward(2 * time.Minute)

		data, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, data)
	})
}

func TestRedisCache_Delete(t *testing.T) {
	cache, _ := setupTestCache(t)
	defer cache.Close()
	ctx := context.Background()

	key := cache.Key("to delete", nil)
	require.NoError(t, cache.Set(ctx, key, []byte("value"), time.Hour))
	require.NoError(t, cache.Delete(ctx, key))

	data, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRedisCache_ServerGone(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer cache.Close()
	ctx := context.Background()

	key := cache.Key("unreachable", nil)
	mr.Close()

	_, err := cache.Get(ctx, key)
	assert.Error(t, err)
	assert.Error(t, cache.Set(ctx, key, []byte("value"), time.Hour))
}

func TestNewRedisCacheFromClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	cache := NewRedisCacheFromClient(client, "query:", helper.NewTestLogger())
	defer cache.Close()

	ctx := context.Background()
	key := cache.Key("wrapped client", nil)
	require.NoError(t, cache.Set(ctx, key, []byte("value"), time.Hour))

	data, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), data)
}
