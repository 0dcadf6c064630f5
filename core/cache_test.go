package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cache := NewRedisCache(mr.Addr(), "", 0, 2, zap.NewNop().Sugar())
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Ping(ctx))

	stored := SentimentResult{Overall: SentimentPositive, Positive: 2}
	require.NoError(t, cache.Set(ctx, SentimentCacheKey("hello"), stored, time.Minute))

	var loaded SentimentResult
	found, err := cache.Get(ctx, SentimentCacheKey("hello"), &loaded)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, stored, loaded)
}

func TestRedisCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	var dest SentimentResult
	found, err := cache.Get(context.Background(), SentimentCacheKey("absent"), &dest)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCacheDelete(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	key := TranslateCacheKey("hello", "eng_Latn", "zul_Latn")
	require.NoError(t, cache.Set(ctx, key, "sawubona", time.Minute))
	require.NoError(t, cache.Delete(ctx, key))

	var dest string
	found, err := cache.Get(ctx, key, &dest)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCacheRejectsOversizedValues(t *testing.T) {
	cache, _ := newTestCache(t)

	huge := strings.Repeat("x", 2*1024*1024)
	err := cache.Set(context.Background(), "transcribe:huge", huge, time.Minute)
	assert.Error(t, err)
}

func TestRedisCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	key := TranslateCacheKey("hi", "eng_Latn", "zul_Latn")
	require.NoError(t, cache.Set(ctx, key, "sawubona", time.Second))

	mr.FastForward(2 * time.Second)

	var dest string
	found, err := cache.Get(ctx, key, &dest)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheKeysAreDistinctAndOpaque(t *testing.T) {
	a := TranslateCacheKey("text", "eng_Latn", "zul_Latn")
	b := TranslateCacheKey("text", "zul_Latn", "eng_Latn")
	assert.NotEqual(t, a, b)

	// User text never appears in the key.
	key := SentimentCacheKey("some private message")
	assert.NotContains(t, key, "private")
	assert.True(t, strings.HasPrefix(key, CacheKeySentimentPrefix))
}
